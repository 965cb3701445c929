package handler

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"shotbrain/internal/model"
	"shotbrain/internal/service"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// openUpload opens the buffered multipart part. Replaced in tests.
var openUpload = func(fh *multipart.FileHeader) (multipart.File, error) { return fh.Open() }

// maxListLimit caps the JSON history endpoint.
const maxListLimit = 100

// Config holds what the routes need besides the service.
type Config struct {
	Title         string
	UploadDir     string
	StaticDir     string
	UploadsPrefix string
	RecentLimit   int
	Logger        *slog.Logger
}

func (cfg *Config) defaults() {
	if cfg.Title == "" {
		cfg.Title = "ShotBrain"
	}
	if cfg.UploadsPrefix == "" {
		cfg.UploadsPrefix = service.DefaultUploadsPrefix
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

type indexPage struct {
	Title  string
	Accept string
	Items  []model.UploadView
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// db may be nil, in which case /health does not check a database.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.UploadService, cfg Config) {
	cfg.defaults()

	accept := make([]string, 0, len(service.AllowedExtensions))
	for _, ext := range service.AllowedExtensions {
		accept = append(accept, "."+ext)
	}

	if cfg.UploadDir != "" {
		app.Static(cfg.UploadsPrefix, cfg.UploadDir, fiber.Static{Browse: false})
	}
	if cfg.StaticDir != "" {
		app.Static("/static", cfg.StaticDir, fiber.Static{Browse: false})
	}

	// Checks the database when one is configured
	// @Summary Health check
	// @Produce json
	// @Success 200 {object} map[string]string
	// @Router /health [get]
	app.Get("/health", func(c *fiber.Ctx) error {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
			}
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/", func(c *fiber.Ctx) error {
		res, err := svc.Recent(c.UserContext(), cfg.RecentLimit)
		if err != nil {
			cfg.Logger.Error("list_recent_failed", "error", err, "request_id", requestIDFromCtx(c))
			return writeInternal(c)
		}

		var buf bytes.Buffer
		if err := indexTmpl.Execute(&buf, indexPage{Title: cfg.Title, Accept: strings.Join(accept, ","), Items: res.Items}); err != nil {
			cfg.Logger.Error("render_index_failed", "error", err, "request_id", requestIDFromCtx(c))
			return writeInternal(c)
		}
		return c.Type("html").Send(buf.Bytes())
	})

	// @Summary List recent uploads
	// @Produce json
	// @Param limit query int false "number of entries, newest first"
	// @Success 200 {object} service.UploadListResult
	// @Router /api/uploads [get]
	app.Get("/api/uploads", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(cfg.RecentLimit)))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		if limit <= 0 {
			limit = cfg.RecentLimit
		}
		limit = min(limit, maxListLimit)

		res, err := svc.Recent(c.UserContext(), limit)
		if err != nil {
			cfg.Logger.Error("list_recent_failed", "error", err, "request_id", requestIDFromCtx(c))
			return writeInternal(c)
		}
		return c.JSON(res)
	})

	// Upload an image (multipart/form-data, field name: file; optional field: lang)
	// @Summary Upload an image and extract its text
	// @Accept multipart/form-data
	// @Param file formData file true "image"
	// @Param lang formData string false "OCR language hint, e.g. eng or eng+deu"
	// @Success 303
	// @Router /upload [post]
	app.Post("/upload", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil || fh.Filename == "" {
			return writeError(c, fiber.StatusBadRequest, "NO_FILE", MsgNoFile)
		}

		f, err := openUpload(fh)
		if err != nil {
			cfg.Logger.Error("upload_open_failed",
				"error", err,
				"filename", fh.Filename,
				"request_id", requestIDFromCtx(c),
			)
			return writeInternal(c)
		}
		defer f.Close()

		_, err = svc.Upload(c.UserContext(), fh.Filename, f, service.UploadOptions{
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Language:    c.FormValue("lang"),
		})
		switch {
		case err == nil:
			return c.Redirect("/", fiber.StatusSeeOther)
		case errors.Is(err, service.ErrNoFile):
			return writeError(c, fiber.StatusBadRequest, "NO_FILE", MsgNoFile)
		case errors.Is(err, service.ErrUnsupportedType):
			return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_TYPE", MsgUnsupportedType)
		default:
			cfg.Logger.Error("upload_failed",
				"error", err,
				"filename", fh.Filename,
				"request_id", requestIDFromCtx(c),
			)
			return writeInternal(c)
		}
	})
}
