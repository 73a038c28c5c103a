package classifier

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

// modelArtifact is the serialized form of a trained tf-idf vectorizer plus a
// random forest, exported from the training pipeline as a single JSON file.
type modelArtifact struct {
	ModelVersion string         `json:"model_version"`
	Labels       []string       `json:"labels"`
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Trees        []treeArtifact `json:"trees"`
}

// treeArtifact is one decision tree in flattened array form. Node i is a leaf
// when Feature[i] is negative; otherwise the sample goes left when
// x[Feature[i]] <= Threshold[i]. Value holds per-class sample counts.
type treeArtifact struct {
	Feature   []int       `json:"feature"`
	Threshold []float64   `json:"threshold"`
	Left      []int       `json:"left"`
	Right     []int       `json:"right"`
	Value     [][]float64 `json:"value"`
}

func loadArtifact(path string) (*modelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var m modelArtifact
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *modelArtifact) validate() error {
	if len(m.Labels) == 0 {
		return fmt.Errorf("model artifact has no labels")
	}
	for _, label := range m.Labels {
		if !domain.DocumentType(label).Valid() {
			return fmt.Errorf("model artifact label %q is not a known document type", label)
		}
	}
	if len(m.Vocabulary) == 0 {
		return fmt.Errorf("model artifact has an empty vocabulary")
	}
	if len(m.IDF) != len(m.Vocabulary) {
		return fmt.Errorf("model artifact idf length %d does not match vocabulary size %d",
			len(m.IDF), len(m.Vocabulary))
	}
	for term, idx := range m.Vocabulary {
		if idx < 0 || idx >= len(m.IDF) {
			return fmt.Errorf("model artifact term %q maps to out-of-range index %d", term, idx)
		}
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("model artifact has no trees")
	}
	for i, tree := range m.Trees {
		if err := tree.validate(len(m.Labels), len(m.Vocabulary)); err != nil {
			return fmt.Errorf("model artifact tree %d: %w", i, err)
		}
	}
	return nil
}

func (t *treeArtifact) validate(classes, features int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("node arrays have mismatched lengths")
	}
	for i := 0; i < n; i++ {
		if t.Feature[i] >= features {
			return fmt.Errorf("node %d references feature %d beyond vocabulary", i, t.Feature[i])
		}
		if t.Feature[i] >= 0 {
			if t.Left[i] < 0 || t.Left[i] >= n || t.Right[i] < 0 || t.Right[i] >= n {
				return fmt.Errorf("node %d has out-of-range children", i)
			}
		}
		if len(t.Value[i]) != classes {
			return fmt.Errorf("node %d value length %d does not match class count %d",
				i, len(t.Value[i]), classes)
		}
	}
	return nil
}

// predictProba walks the tree for one sample and returns the normalized class
// distribution at the reached leaf.
func (t *treeArtifact) predictProba(x map[int]float64) []float64 {
	node := 0
	for t.Feature[node] >= 0 {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	counts := t.Value[node]
	probs := make([]float64, len(counts))
	var total float64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return probs
	}
	for i, c := range counts {
		probs[i] = c / total
	}
	return probs
}
