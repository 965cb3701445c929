package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"shotbrain/internal/http/middleware"
)

// Messages shown to clients for rejected uploads.
const (
	MsgNoFile          = "No file uploaded."
	MsgUnsupportedType = "Unsupported file type."
)

// errorPayload is the body of every error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusErrors maps framework errors to safe codes and messages.
var statusErrors = map[int]errorEnvelope{
	fiber.StatusBadRequest:            {"BAD_REQUEST", "bad request"},
	fiber.StatusNotFound:              {"NOT_FOUND", "resource not found"},
	fiber.StatusMethodNotAllowed:      {"METHOD_NOT_ALLOWED", "method not allowed"},
	fiber.StatusRequestEntityTooLarge: {"PAYLOAD_TOO_LARGE", "upload too large"},
}

var internalError = errorEnvelope{"INTERNAL_ERROR", "internal server error"}

func requestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return id
}

// writeError sends the JSON error envelope. message must be safe to show;
// internal error text never goes here.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

func writeInternal(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusInternalServerError, internalError.Code, internalError.Message)
}

// ErrorHandler is the Fiber global error handler. Unknown errors become 500s.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			return writeInternal(c)
		}
		env, ok := statusErrors[fe.Code]
		if !ok {
			return writeError(c, fe.Code, internalError.Code, internalError.Message)
		}
		return writeError(c, fe.Code, env.Code, env.Message)
	}
}
