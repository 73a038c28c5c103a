package classifier

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/dollarfunding/document-service/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testArtifact is a two-class model with a single stump splitting on the
// presence of the token "bank".
const testArtifact = `{
	"model_version": "test-1",
	"labels": ["ISO_APPLICATION", "BANK_STATEMENT"],
	"vocabulary": {"bank": 0, "statement": 1, "application": 2, "bank statement": 3},
	"idf": [1, 1, 1, 1],
	"trees": [{
		"feature":   [0, -2, -2],
		"threshold": [0.1, 0, 0],
		"left":      [1, 0, 0],
		"right":     [2, 0, 0],
		"value":     [[10, 10], [9, 1], [2, 8]]
	}]
}`

func writeArtifact(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestForest(t *testing.T) *Forest {
	t.Helper()
	f, err := New(writeArtifact(t, testArtifact), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestClassifySplitsOnToken(t *testing.T) {
	f := newTestForest(t)

	out, err := f.Classify(context.Background(), "Monthly BANK statement for checking account")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Label != domain.TypeBankStatement {
		t.Fatalf("label = %s", out.Label)
	}
	if math.Abs(out.Confidence-0.8) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.8", out.Confidence)
	}
	if out.Method != "machine_learning" || out.ModelVersion != "test-1" {
		t.Fatalf("outcome = %+v", out)
	}

	out, err = f.Classify(context.Background(), "merchant funding application form")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if out.Label != domain.TypeISOApplication {
		t.Fatalf("label = %s", out.Label)
	}
	if math.Abs(out.Confidence-0.9) > 1e-9 {
		t.Fatalf("confidence = %v, want 0.9", out.Confidence)
	}
}

func TestClassifyEmptyTextFails(t *testing.T) {
	f := newTestForest(t)
	_, err := f.Classify(context.Background(), "   \n\t")
	if !domain.IsKind(err, domain.ErrClassification) {
		t.Fatalf("err = %v, want classification kind", err)
	}
}

func TestClassifyHonorsCancelledContext(t *testing.T) {
	f := newTestForest(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Classify(ctx, "bank statement")
	if !domain.IsKind(err, domain.ErrClassification) {
		t.Fatalf("err = %v, want classification kind", err)
	}
}

func TestNewRejectsBrokenArtifacts(t *testing.T) {
	cases := map[string]string{
		"missing labels":      `{"model_version":"x","labels":[],"vocabulary":{"a":0},"idf":[1],"trees":[]}`,
		"unknown label":       `{"model_version":"x","labels":["RECEIPT"],"vocabulary":{"a":0},"idf":[1],"trees":[]}`,
		"idf size mismatch":   `{"model_version":"x","labels":["TAX_RETURN"],"vocabulary":{"a":0,"b":1},"idf":[1],"trees":[]}`,
		"no trees":            `{"model_version":"x","labels":["TAX_RETURN"],"vocabulary":{"a":0},"idf":[1],"trees":[]}`,
		"lopsided tree":       `{"model_version":"x","labels":["TAX_RETURN"],"vocabulary":{"a":0},"idf":[1],"trees":[{"feature":[0],"threshold":[0.5],"left":[5],"right":[5],"value":[[1]]}]}`,
		"wrong class count":   `{"model_version":"x","labels":["TAX_RETURN"],"vocabulary":{"a":0},"idf":[1],"trees":[{"feature":[-2],"threshold":[0],"left":[0],"right":[0],"value":[[1,2]]}]}`,
		"not json":            `forest v1`,
	}
	for name, body := range cases {
		if _, err := New(writeArtifact(t, body), testLogger()); err == nil {
			t.Errorf("%s: expected load error", name)
		}
	}
}

func TestNewMissingFileFails(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent.json"), testLogger()); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("Business\tName:\n  ACME, Corp.!!")
	if got != "business name acme corp" {
		t.Fatalf("normalized = %q", got)
	}
}

func TestVectorizeCountsBigramsAndNormalizes(t *testing.T) {
	f := newTestForest(t)
	v := f.vectorize("bank statement")
	// Tokens "bank", "statement" and the bigram "bank statement" each hit
	// the vocabulary once, so the l2-normalized weights are 1/sqrt(3).
	want := 1 / math.Sqrt(3)
	for _, idx := range []int{0, 1, 3} {
		if math.Abs(v[idx]-want) > 1e-9 {
			t.Fatalf("v[%d] = %v, want %v", idx, v[idx], want)
		}
	}
	if _, ok := v[2]; ok {
		t.Fatal("feature 2 should be absent")
	}
}
