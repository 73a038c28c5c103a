package recognition

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine drives the in-process Tesseract binding.
type GosseractEngine struct{}

func NewGosseractEngine() *GosseractEngine {
	return &GosseractEngine{}
}

func (e *GosseractEngine) Name() string { return "tesseract" }

func (e *GosseractEngine) Recognize(ctx context.Context, pngImage []byte, opts Options) ([]Word, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImageFromBytes(pngImage); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if opts.Language != "" {
		if err := client.SetLanguage(opts.Language); err != nil {
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if opts.DPI > 0 {
		if err := client.SetVariable("user_defined_dpi", fmt.Sprint(opts.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("word boxes: %w", err)
	}
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{Text: b.Word, Confidence: b.Confidence})
	}
	return words, nil
}
