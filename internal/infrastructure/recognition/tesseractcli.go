package recognition

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// CLIEngine shells out to the tesseract binary and parses its tab-delimited
// word report. Unlike the in-process binding it honors the engine-mode
// parameter, which tesseract only accepts at initialization.
type CLIEngine struct {
	binary string
}

// NewCLIEngine resolves the tesseract binary. A missing binary is a startup
// error; the service must refuse work rather than fail every document.
func NewCLIEngine(binary string) (*CLIEngine, error) {
	if binary == "" {
		binary = "tesseract"
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("tesseract binary %q not found: %w", binary, err)
	}
	return &CLIEngine{binary: resolved}, nil
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

func (e *CLIEngine) Recognize(ctx context.Context, pngImage []byte, opts Options) ([]Word, error) {
	dir, err := os.MkdirTemp("", "docsvc-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "page.png")
	if err := os.WriteFile(input, pngImage, 0o600); err != nil {
		return nil, fmt.Errorf("write page image: %w", err)
	}

	args := []string{input, "stdout"}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}
	args = append(args,
		"--psm", strconv.Itoa(opts.PSM),
		"--oem", strconv.Itoa(opts.OEM),
	)
	if opts.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(opts.DPI))
	}
	args = append(args, "tsv")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("tesseract: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}
	return ParseTSVReport(stdout.String()), nil
}
