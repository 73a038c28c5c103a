package domain

// ClassificationDecision tags the expected, non-error outcomes of a
// classification attempt. Hard failures travel on the error path instead.
type ClassificationDecision string

const (
	DecisionClassified    ClassificationDecision = "classified"
	DecisionLowConfidence ClassificationDecision = "low_confidence"
)

// ClassificationOutcome is one classification attempt. Confidence is a
// probability in [0,1]; do not compare it against OCR confidences, which are
// percentages in [0,100].
type ClassificationOutcome struct {
	Label        DocumentType `json:"label"`
	Confidence   float64      `json:"confidence"`
	Method       string       `json:"method"`
	ModelVersion string       `json:"model_version"`
}

// Decide applies the commit threshold. A low-confidence outcome is a normal
// result that leaves the document unclassified, not an error.
func (o ClassificationOutcome) Decide(threshold float64) ClassificationDecision {
	if o.Confidence >= threshold {
		return DecisionClassified
	}
	return DecisionLowConfidence
}
