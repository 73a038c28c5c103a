// Package recognition invokes an external OCR engine on preprocessed page
// images and reduces its word-level report to page text and confidence.
package recognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// Options are the engine tuning parameters for one recognition call.
type Options struct {
	Language string
	PSM      int
	OEM      int
	DPI      int
}

// Word is one row of the engine's word-level report. Confidence is in
// [-1,100]; -1 means the engine offered no estimate.
type Word struct {
	Text       string
	Confidence float64
}

// Engine invokes the external recognition engine on one encoded page image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, pngImage []byte, opts Options) ([]Word, error)
}

// Adapter runs pages through an Engine and derives per-page confidence.
// Each call is bounded by timeout; overruns surface as timeout errors rather
// than hanging the pipeline.
type Adapter struct {
	engine  Engine
	opts    Options
	timeout time.Duration
}

func NewAdapter(engine Engine, opts Options, timeout time.Duration) *Adapter {
	return &Adapter{engine: engine, opts: opts, timeout: timeout}
}

func (a *Adapter) Options() Options { return a.opts }

// RecognizePage recognizes one preprocessed page image. Word rows with
// confidence > 0 and non-blank text survive; the page text space-joins the
// survivors and the page confidence is their arithmetic mean (0 when none
// survive).
func (a *Adapter) RecognizePage(ctx context.Context, img image.Image) (domain.PageResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.PageResult{}, domain.WrapError(domain.ErrRecognition, "encode page image", err)
	}

	words, err := a.engine.Recognize(ctx, buf.Bytes(), a.opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.PageResult{}, domain.WrapError(domain.ErrTimeout, "recognize page",
				fmt.Errorf("engine %s exceeded %s", a.engine.Name(), a.timeout))
		}
		return domain.PageResult{}, domain.WrapError(domain.ErrRecognition, "recognize page", err)
	}

	return reduceWords(words), nil
}

func reduceWords(words []Word) domain.PageResult {
	texts := make([]string, 0, len(words))
	var sum float64
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if w.Confidence <= 0 || text == "" {
			continue
		}
		texts = append(texts, text)
		sum += w.Confidence
	}
	if len(texts) == 0 {
		return domain.PageResult{}
	}
	return domain.PageResult{
		Text:       strings.Join(texts, " "),
		Confidence: sum / float64(len(texts)),
	}
}
