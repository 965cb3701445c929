// Package ocr turns an image on disk into plain text through a pluggable engine.
//
// The engine is expensive to build (it loads trained models), so an Extractor
// constructs it once, on first use, and reuses it for every later call.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// DefaultLanguage is used when neither a hint nor configured languages are given.
const DefaultLanguage = "eng"

// ErrClosed is returned by ExtractText after Close.
var ErrClosed = errors.New("ocr extractor closed")

// Engine recognizes text in an image file.
// Implementations do not need to be safe for concurrent use.
type Engine interface {
	// Recognize returns the text fragments of the detected regions in the
	// engine's own traversal order.
	Recognize(ctx context.Context, imagePath string, languages []string) ([]string, error)
	Close() error
}

// Factory builds an Engine.
type Factory func() (Engine, error)

// Extractor owns a lazily built Engine.
type Extractor struct {
	factory   Factory
	languages []string

	once    sync.Once
	engine  Engine
	initErr error

	// mu serializes engine calls and guards closed.
	mu     sync.Mutex
	closed bool
}

// NewExtractor returns an Extractor that will build its engine with factory.
// languages are used when a call passes no hint, and bound what a hint may select.
func NewExtractor(factory Factory, languages ...string) *Extractor {
	if len(languages) == 0 {
		languages = []string{DefaultLanguage}
	}
	return &Extractor{
		factory:   factory,
		languages: append([]string(nil), languages...),
	}
}

// ExtractText recognizes the text in imagePath.
// A languageHint such as "eng" or "eng+deu" narrows the configured languages;
// languages outside the configured set are ignored.
// Fragments are joined with newlines and the result is trimmed.
func (e *Extractor) ExtractText(ctx context.Context, imagePath, languageHint string) (string, error) {
	engine, err := e.get()
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return "", ErrClosed
	}

	fragments, err := engine.Recognize(ctx, imagePath, e.resolveLanguages(languageHint))
	if err != nil {
		return "", fmt.Errorf("recognize %s: %w", imagePath, err)
	}
	return strings.TrimSpace(strings.Join(fragments, "\n")), nil
}

// Close releases the engine if it was built. Later calls to ExtractText fail.
func (e *Extractor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	// Block a racing first call from building an engine after Close.
	e.once.Do(func() { e.initErr = ErrClosed })
	if e.engine == nil {
		return nil
	}
	return e.engine.Close()
}

func (e *Extractor) get() (Engine, error) {
	e.once.Do(func() {
		engine, err := e.factory()
		if err != nil {
			e.initErr = fmt.Errorf("init ocr engine: %w", err)
			return
		}
		e.engine = engine
	})
	return e.engine, e.initErr
}

// resolveLanguages keeps the hinted languages that are configured, in hint order.
// Unconfigured languages are dropped so clients cannot make the engine load
// arbitrary models; an empty result falls back to the configured set.
func (e *Extractor) resolveLanguages(hint string) []string {
	var langs []string
	for _, l := range strings.Split(hint, "+") {
		l = strings.TrimSpace(l)
		if l != "" && slices.Contains(e.languages, l) && !slices.Contains(langs, l) {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		return e.languages
	}
	return langs
}
