package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shotbrain/internal/imageinfo"
	"shotbrain/internal/model"
	"shotbrain/internal/repository"
	"shotbrain/internal/storage"
)

var (
	ErrNoFile            = errors.New("no file uploaded")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrStorageFailure    = errors.New("storage failure")
	ErrExtractionFailure = errors.New("extraction failure")
)

// AllowedExtensions lists the accepted image extensions, lower case, without the dot.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "webp", "bmp", "tif", "tiff"}

// DefaultUploadsPrefix is the URL prefix stored images are served under.
const DefaultUploadsPrefix = "/uploads"

// mirrorKeyPrefix namespaces mirrored objects inside the bucket.
const mirrorKeyPrefix = "uploads"

// maxRecordAttempts bounds the renames done when the history already holds a filename.
const maxRecordAttempts = 64

// TextExtractor recognizes text in an image file.
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath, languageHint string) (string, error)
}

// UploadOptions carries optional request details for Upload.
type UploadOptions struct {
	ContentType string
	// Size is the length announced by the client; when positive, a stored file
	// of any other length is rejected as a storage failure.
	Size int64
	// Language is an OCR language hint such as "eng" or "eng+deu"; empty uses the configured default.
	Language string
}

// UploadListResult is the service-level DTO for the recent history.
type UploadListResult struct {
	Items []model.UploadView `json:"data"`
	Total int                `json:"total"`
}

// UploadService defines the use cases for image uploads.
type UploadService interface {
	// Upload validates and stores the image, recognizes its text, and appends it to the history.
	// When recognition fails the stored file is left in place and nothing is appended.
	// When the append fails the stored file is removed.
	Upload(ctx context.Context, originalFilename string, r io.Reader, opt UploadOptions) (*model.UploadRecord, error)

	// Recent returns the newest n history entries with their display URLs.
	Recent(ctx context.Context, n int) (*UploadListResult, error)
}

// Option configures an uploadService.
type Option func(*uploadService)

// WithMirror copies every stored image to an object store. Mirror failures are logged only.
func WithMirror(s storage.Storage) Option {
	return func(u *uploadService) { u.mirror = s }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *uploadService) { u.logger = l }
}

// WithMetrics enables pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(u *uploadService) { u.metrics = m }
}

// WithUploadsPrefix sets the URL prefix used for UploadView.ImageURL.
func WithUploadsPrefix(prefix string) Option {
	return func(u *uploadService) { u.prefix = prefix }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(u *uploadService) { u.now = now }
}

type uploadService struct {
	store     storage.ContentStore
	extractor TextExtractor
	repo      repository.UploadRepository

	mirror  storage.Storage
	logger  *slog.Logger
	metrics *Metrics
	prefix  string
	now     func() time.Time
	tracer  trace.Tracer
}

// NewUploadService constructs a new UploadService.
func NewUploadService(store storage.ContentStore, extractor TextExtractor, repo repository.UploadRepository, opts ...Option) UploadService {
	s := &uploadService{
		store:     store,
		extractor: extractor,
		repo:      repo,
		logger:    slog.Default(),
		prefix:    DefaultUploadsPrefix,
		now:       time.Now,
		tracer:    otel.Tracer("shotbrain/internal/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SanitizeFilename replaces every space with an underscore. Nothing else is changed.
func SanitizeFilename(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// Extension returns the lower-cased text after the last dot, or "" when there is no dot.
func Extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// ValidateFilename checks that name is present and carries an allowed extension.
func ValidateFilename(name string) error {
	if name == "" {
		return ErrNoFile
	}
	ext := Extension(name)
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return ErrUnsupportedType
}

// ingest validates, sanitizes and stores the upload. It returns the stored object
// and the sanitized name collision candidates derive from.
func (s *uploadService) ingest(ctx context.Context, originalFilename string, r io.Reader, size int64) (storage.ObjectInfo, string, error) {
	if originalFilename == "" {
		return storage.ObjectInfo{}, "", ErrNoFile
	}
	name := SanitizeFilename(originalFilename)
	if err := ValidateFilename(name); err != nil {
		return storage.ObjectInfo{}, "", err
	}
	if r == nil {
		return storage.ObjectInfo{}, "", ErrNoFile
	}

	ctx, span := s.tracer.Start(ctx, "upload.ingest", trace.WithAttributes(attribute.String("upload.filename", name)))
	defer span.End()

	obj, err := s.store.Create(ctx, name, r)
	if err == nil && size > 0 && obj.Size != size {
		s.discard(ctx, obj.Key)
		err = fmt.Errorf("incomplete upload: stored %d of %d bytes", obj.Size, size)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return storage.ObjectInfo{}, "", goerr.Wrap(fmt.Errorf("%w: %w", ErrStorageFailure, err), "failed to store upload",
			goerr.V("filename", name))
	}
	span.SetAttributes(attribute.String("upload.stored_as", obj.Key), attribute.Int64("upload.size", obj.Size))
	return obj, name, nil
}

func (s *uploadService) Upload(ctx context.Context, originalFilename string, r io.Reader, opt UploadOptions) (*model.UploadRecord, error) {
	obj, name, err := s.ingest(ctx, originalFilename, r, opt.Size)
	if err != nil {
		if errors.Is(err, ErrNoFile) || errors.Is(err, ErrUnsupportedType) {
			s.metrics.observeUpload(resultRejected)
		} else {
			s.metrics.observeUpload(resultStorageFailure)
		}
		return nil, err
	}

	storedPath := s.store.Path(obj.Key)
	logger := s.logger.With("filename", obj.Key)

	info, err := imageinfo.Probe(storedPath)
	if err != nil {
		logger.Debug("image_probe_failed", "error", err.Error())
	}

	contentType := opt.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/octet-stream"
		if info.Format != "" {
			contentType = "image/" + info.Format
		}
	}

	text, err := s.extract(ctx, storedPath, opt.Language)
	if err != nil {
		s.metrics.observeUpload(resultExtractionFailed)
		return nil, goerr.Wrap(fmt.Errorf("%w: %w", ErrExtractionFailure, err), "failed to extract text",
			goerr.V("filename", obj.Key), goerr.V("path", storedPath))
	}

	rec := &model.UploadRecord{
		Filename:    obj.Key,
		Text:        text,
		Size:        obj.Size,
		ContentType: contentType,
		Width:       info.Width,
		Height:      info.Height,
		Format:      info.Format,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.record(ctx, name, rec); err != nil {
		s.metrics.observeUpload(resultRecordFailure)
		return nil, goerr.Wrap(err, "failed to record upload", goerr.V("filename", rec.Filename))
	}
	if rec.Filename != obj.Key {
		logger = s.logger.With("filename", rec.Filename)
		obj.Key = rec.Filename
	}

	s.mirrorObject(ctx, logger, obj, s.store.Path(obj.Key), originalFilename, contentType)
	s.metrics.observeUpload(resultOK)
	logger.Info("upload_processed", "size", obj.Size, "text_length", len(text))
	return rec, nil
}

// record appends rec to the history. When the history already holds the
// filename (the content directory was reset but the history was kept), the
// stored file moves to the next free candidate and the append is retried.
// On failure the stored file is removed.
func (s *uploadService) record(ctx context.Context, name string, rec *model.UploadRecord) error {
	next := 1
	for attempt := 0; ; attempt++ {
		err := s.repo.Append(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateFilename) || attempt >= maxRecordAttempts {
			s.discard(ctx, rec.Filename)
			return err
		}

		moved, n, err := s.relocate(ctx, name, rec.Filename, next)
		if err != nil {
			s.discard(ctx, rec.Filename)
			return fmt.Errorf("%w: %w", ErrStorageFailure, err)
		}
		s.logger.Info("upload_renamed", "from", rec.Filename, "to", moved)
		rec.Filename = moved
		next = n + 1
	}
}

// relocate moves current to the first free candidate of name with index >= from,
// returning the new name and its index.
func (s *uploadService) relocate(ctx context.Context, name, current string, from int) (string, int, error) {
	for n := from; ; n++ {
		candidate := storage.CandidateName(name, n)
		err := s.store.Rename(ctx, current, candidate)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, err
		}
		return candidate, n, nil
	}
}

func (s *uploadService) discard(ctx context.Context, name string) {
	if err := s.store.Remove(ctx, name); err != nil {
		s.logger.Warn("upload_cleanup_failed", "filename", name, "error", err.Error())
	}
}

func (s *uploadService) extract(ctx context.Context, storedPath, language string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "upload.extract")
	defer span.End()

	start := time.Now()
	text, err := s.extractor.ExtractText(ctx, storedPath, language)
	s.metrics.observeOCR(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ocr failed")
		return "", err
	}
	span.SetAttributes(attribute.Int("ocr.text_length", len(text)))
	return text, nil
}

func (s *uploadService) mirrorObject(ctx context.Context, logger *slog.Logger, obj storage.ObjectInfo, storedPath, originalFilename, contentType string) {
	if s.mirror == nil {
		return
	}
	f, err := os.Open(storedPath)
	if err != nil {
		logger.Warn("mirror_open_failed", "error", err.Error())
		return
	}
	defer f.Close()

	_, err = s.mirror.Put(ctx, path.Join(mirrorKeyPrefix, obj.Key), f, storage.PutObjectOptions{
		Size:        obj.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		logger.Warn("mirror_put_failed", "error", err.Error())
	}
}

// Recent maps the newest history records to views.
func (s *uploadService) Recent(ctx context.Context, n int) (*UploadListResult, error) {
	res, err := s.repo.ListRecent(ctx, n)
	if err != nil {
		return nil, err
	}
	items := make([]model.UploadView, 0, len(res.Items))
	for _, rec := range res.Items {
		items = append(items, model.NewUploadView(rec, s.prefix))
	}
	return &UploadListResult{Items: items, Total: res.Total}, nil
}
