// Package raster turns source document bytes into page images for the
// recognition path.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// Rasterizer renders PDFs through poppler's pdftoppm and decodes raster
// image formats directly.
type Rasterizer struct {
	pdftoppm string
	dpi      int
}

func New(pdftoppmPath string, dpi int) *Rasterizer {
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Rasterizer{pdftoppm: pdftoppmPath, dpi: dpi}
}

// Verify checks that the rasterizer binary is reachable. Called once at
// startup; a missing binary must stop the service from accepting work.
func (r *Rasterizer) Verify() error {
	if _, err := exec.LookPath(r.pdftoppm); err != nil {
		return fmt.Errorf("pdftoppm binary %q not found: %w", r.pdftoppm, err)
	}
	return nil
}

// Rasterize returns one grayscale-ready image per page of content.
func (r *Rasterizer) Rasterize(ctx context.Context, content []byte, mimeType string) ([]image.Image, error) {
	switch mimeType {
	case "application/pdf":
		return r.rasterizePDF(ctx, content)
	case "image/png", "image/jpeg", "image/tiff", "image/bmp":
		img, _, err := image.Decode(bytes.NewReader(content))
		if err != nil {
			return nil, domain.WrapError(domain.ErrExtraction, "decode image", err)
		}
		return []image.Image{img}, nil
	default:
		return nil, domain.WrapError(domain.ErrExtraction, "rasterize",
			fmt.Errorf("unsupported mime type %q", mimeType))
	}
}

func (r *Rasterizer) rasterizePDF(ctx context.Context, content []byte) ([]image.Image, error) {
	dir, err := os.MkdirTemp("", "docsvc-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, content, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.pdftoppm,
		"-r", strconv.Itoa(r.dpi),
		"-png", "-gray",
		input, filepath.Join(dir, "page"),
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapError(domain.ErrExtraction, "rasterize pdf",
			fmt.Errorf("pdftoppm: %w: %s", err, bytes.TrimSpace(stderr.Bytes())))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, fmt.Errorf("list rendered pages: %w", err)
	}
	if len(matches) == 0 {
		return nil, domain.WrapError(domain.ErrExtraction, "rasterize pdf",
			fmt.Errorf("no pages rendered"))
	}
	sort.Strings(matches)

	pages := make([]image.Image, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rendered page: %w", err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, domain.WrapError(domain.ErrExtraction, "decode rendered page", err)
		}
		pages = append(pages, img)
	}
	return pages, nil
}
