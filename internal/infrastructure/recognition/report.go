package recognition

import (
	"strconv"
	"strings"
)

// Tesseract's tsv output: level, page_num, block_num, par_num, line_num,
// word_num, left, top, width, height, conf, text.
const (
	tsvColumns   = 12
	tsvConfIndex = 10
	tsvTextIndex = 11
)

// ParseTSVReport parses a tab-delimited word-level report into word rows.
// The header line is skipped; rows without a text column (layout rows for
// pages, blocks, and lines) are dropped. Confidence parses as -1 when the
// engine reports none.
func ParseTSVReport(report string) []Word {
	lines := strings.Split(report, "\n")
	if len(lines) <= 1 {
		return nil
	}

	words := make([]Word, 0, len(lines)-1)
	for _, line := range lines[1:] {
		parts := strings.Split(line, "\t")
		if len(parts) < tsvColumns {
			continue
		}
		conf, err := strconv.ParseFloat(parts[tsvConfIndex], 64)
		if err != nil {
			continue
		}
		words = append(words, Word{Text: parts[tsvTextIndex], Confidence: conf})
	}
	return words
}
