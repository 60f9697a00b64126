// Package pdfdesk reorganizes, annotates, merges and splits PDF documents
package pdfdesk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pyhub-apps/pdfdesk-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/config"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/geometry"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfdesk-golang/pkg/session"
)

// Re-export types for the public API
type (
	Session    = session.Session
	Output     = session.Output
	Option     = session.Option
	Config     = config.Config
	Annotation = annotation.Annotation
	Kind       = annotation.Kind
	Style      = annotation.Style
	Point      = geometry.Point
	Size       = geometry.Size
	PageText   = pdf.PageText
)

// Re-export annotation kinds and options
const (
	Text      = annotation.Text
	Cross     = annotation.Cross
	Check     = annotation.Check
	Rectangle = annotation.Rectangle
)

var (
	WithRasterizer   = session.WithRasterizer
	WithTextSource   = session.WithTextSource
	NewDefaultConfig = config.NewDefaultConfig
	LoadConfig       = config.Load
)

// Open starts a session on a PDF file. cfg may be nil for defaults.
func Open(ctx context.Context, path string, cfg *Config, opts ...Option) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return OpenBytes(ctx, data, filepath.Base(path), cfg, opts...)
}

// OpenBytes starts a session on an in-memory document. name is used to derive output names.
func OpenBytes(ctx context.Context, data []byte, name string, cfg *Config, opts ...Option) (*Session, error) {
	return session.Open(ctx, newService(cfg), data, name, cfg, opts...)
}

// Merge concatenates the given PDF files in order.
func Merge(ctx context.Context, paths []string, cfg *Config) (Output, error) {
	inputs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return Output{}, fmt.Errorf("failed to read %s: %w", p, err)
		}
		inputs = append(inputs, data)
	}
	return session.Merge(ctx, newService(cfg), inputs)
}

// ExtractText returns the text of every page of a PDF file
func ExtractText(ctx context.Context, path string) ([]PageText, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return pdf.ExtractText(ctx, data)
}

func newService(cfg *Config) *pdf.PDFCPUService {
	if cfg == nil {
		return pdf.NewPDFCPUService()
	}
	return pdf.NewPDFCPUService(pdf.WithMaxDocumentBytes(cfg.MaxDocumentBytes))
}
