// Package classifier assigns a document type to extracted text with a
// pretrained tf-idf vectorizer and random forest loaded from a JSON artifact.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// Forest is a ports.DocumentClassifier backed by an in-process model. All
// state is immutable after New, so a single instance serves concurrent
// pipeline workers.
type Forest struct {
	artifact *modelArtifact
	logger   *slog.Logger
}

// New loads the model artifact from path. Any artifact problem fails here so
// a broken deployment never reaches per-document processing.
func New(path string, logger *slog.Logger) (*Forest, error) {
	artifact, err := loadArtifact(path)
	if err != nil {
		return nil, err
	}
	logger.Info("classification model loaded",
		"model_version", artifact.ModelVersion,
		"labels", len(artifact.Labels),
		"vocabulary", len(artifact.Vocabulary),
		"trees", len(artifact.Trees))
	return &Forest{artifact: artifact, logger: logger}, nil
}

// Classify vectorizes the text and returns the highest-probability label.
// Thresholding is the caller's concern; Classify always reports the argmax.
func (f *Forest) Classify(ctx context.Context, text string) (domain.ClassificationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return domain.ClassificationOutcome{}, domain.WrapError(domain.ErrClassification, "classify document", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.ClassificationOutcome{}, domain.WrapError(domain.ErrClassification, "classify document",
			fmt.Errorf("no text to classify"))
	}

	features := f.vectorize(normalizeText(text))

	probs := make([]float64, len(f.artifact.Labels))
	for _, tree := range f.artifact.Trees {
		for i, p := range tree.predictProba(features) {
			probs[i] += p
		}
	}
	best := 0
	for i := range probs {
		probs[i] /= float64(len(f.artifact.Trees))
		if probs[i] > probs[best] {
			best = i
		}
	}

	return domain.ClassificationOutcome{
		Label:        domain.DocumentType(f.artifact.Labels[best]),
		Confidence:   probs[best],
		Method:       "machine_learning",
		ModelVersion: f.artifact.ModelVersion,
	}, nil
}

// normalizeText lowercases, folds all whitespace to single spaces, and drops
// characters that are neither alphanumeric nor space.
func normalizeText(text string) string {
	text = strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// vectorize builds a sparse l2-normalized tf-idf vector over the unigrams and
// bigrams present in the model vocabulary. Tokens shorter than two characters
// are ignored, matching the vectorizer used at training time.
func (f *Forest) vectorize(text string) map[int]float64 {
	words := make([]string, 0, 64)
	for _, w := range strings.Fields(text) {
		if len(w) >= 2 {
			words = append(words, w)
		}
	}

	counts := make(map[int]float64)
	for i, w := range words {
		if idx, ok := f.artifact.Vocabulary[w]; ok {
			counts[idx]++
		}
		if i+1 < len(words) {
			if idx, ok := f.artifact.Vocabulary[w+" "+words[i+1]]; ok {
				counts[idx]++
			}
		}
	}

	var norm float64
	for idx := range counts {
		counts[idx] *= f.artifact.IDF[idx]
		norm += counts[idx] * counts[idx]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range counts {
			counts[idx] /= norm
		}
	}
	return counts
}
