// Package render turns a report.Document into HTML and then PDF.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/report"
)

const DefaultTimeout = 30 * time.Second

// Converter turns a complete HTML document into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, html []byte) ([]byte, error)
}

// Renderer bounds every conversion with a timeout. Failures come back
// wrapped in audit.ErrRenderTimeout or audit.ErrRenderingFailed.
type Renderer struct {
	conv    Converter
	layout  report.Layout
	timeout time.Duration
}

func NewRenderer(conv Converter, timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Renderer{conv: conv, layout: report.Letter, timeout: timeout}
}

// HTML renders doc without converting it.
func (r *Renderer) HTML(doc report.Document) ([]byte, error) {
	html, err := HTML(doc, r.layout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", audit.ErrRenderingFailed, err)
	}
	return html, nil
}

// PDF renders doc and converts it within the renderer's timeout.
func (r *Renderer) PDF(ctx context.Context, doc report.Document) ([]byte, error) {
	html, err := r.HTML(doc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	pdf, err := r.conv.Convert(ctx, html)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %w", audit.ErrRenderTimeout, r.timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", audit.ErrRenderingFailed, err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: converter returned %d bytes that are not a PDF", audit.ErrRenderingFailed, len(pdf))
	}
	return pdf, nil
}
