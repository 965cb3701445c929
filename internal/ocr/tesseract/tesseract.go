// Package tesseract adapts the gosseract client to ocr.Engine.
package tesseract

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"shotbrain/internal/ocr"
)

// Engine wraps a single gosseract client. CPU only; not safe for concurrent use.
type Engine struct {
	client    *gosseract.Client
	languages []string
}

var _ ocr.Engine = (*Engine)(nil)

// New builds an Engine. It matches ocr.Factory.
func New() (ocr.Engine, error) {
	return &Engine{client: gosseract.NewClient()}, nil
}

// Recognize returns one fragment per text line, in tesseract's layout order.
func (e *Engine) Recognize(ctx context.Context, imagePath string, languages []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// SetLanguage forces a model reload, so only call it on change.
	if len(languages) > 0 && !slices.Equal(languages, e.languages) {
		if err := e.client.SetLanguage(languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
		e.languages = append([]string(nil), languages...)
	}
	if err := e.client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	fragments := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if s := strings.TrimSpace(b.Word); s != "" {
			fragments = append(fragments, s)
		}
	}
	return fragments, nil
}

// Close frees the underlying tesseract API.
func (e *Engine) Close() error {
	return e.client.Close()
}
