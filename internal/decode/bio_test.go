package decode

import (
	"math"
	"testing"
)

func TestSpans(t *testing.T) {
	t.Run("BIO", func(t *testing.T) {
		tags := []string{"O", "B-X", "I-X", "O"}
		scores := []float64{0.9, 0.8, 0.6, 0.9}

		spans := Spans(tags, scores)
		if len(spans) != 1 {
			t.Fatalf("Expected 1 span, got %d", len(spans))
		}
		s := spans[0]
		if s.Start != 1 || s.End != 2 {
			t.Errorf("Expected span [1,2], got [%d,%d]", s.Start, s.End)
		}
		if s.Label != "X" {
			t.Errorf("Expected label X, got %q", s.Label)
		}
		if math.Abs(s.Score-0.7) > 1e-9 {
			t.Errorf("Expected mean score 0.7, got %f", s.Score)
		}
	})

	t.Run("BIOES", func(t *testing.T) {
		tags := []string{"S-X", "O", "B-Y", "I-Y", "E-Y"}
		scores := []float64{0.9, 0.5, 0.6, 0.6, 0.6}

		spans := Spans(tags, scores)
		if len(spans) != 2 {
			t.Fatalf("Expected 2 spans, got %d", len(spans))
		}
		if spans[0].Start != 0 || spans[0].End != 0 || spans[0].Label != "X" {
			t.Errorf("Expected singleton X at 0, got %+v", spans[0])
		}
		if spans[1].Start != 2 || spans[1].End != 4 || spans[1].Label != "Y" {
			t.Errorf("Expected span Y over [2,4], got %+v", spans[1])
		}
	})

	t.Run("AdjacentSpans", func(t *testing.T) {
		tags := []string{"B-X", "B-X", "I-X"}
		scores := []float64{0.9, 0.9, 0.9}

		spans := Spans(tags, scores)
		if len(spans) != 2 {
			t.Fatalf("Adjacent B- tags should start separate spans, got %d", len(spans))
		}
		if spans[0].End != 0 || spans[1].Start != 1 || spans[1].End != 2 {
			t.Errorf("Unexpected boundaries: %+v", spans)
		}
	})

	t.Run("LabelSwitchInsideRun", func(t *testing.T) {
		tags := []string{"B-X", "I-Y"}
		scores := []float64{0.9, 0.9}

		spans := Spans(tags, scores)
		if len(spans) != 2 {
			t.Fatalf("Label switch should close the span, got %d spans", len(spans))
		}
		if spans[0].Label != "X" || spans[1].Label != "Y" {
			t.Errorf("Unexpected labels: %+v", spans)
		}
	})

	t.Run("DanglingContinuation", func(t *testing.T) {
		tags := []string{"O", "I-X", "I-X"}
		scores := []float64{0.9, 0.8, 0.8}

		spans := Spans(tags, scores)
		if len(spans) != 1 {
			t.Fatalf("Dangling I- run should decode to one span, got %d", len(spans))
		}
		if spans[0].Start != 1 || spans[0].End != 2 {
			t.Errorf("Expected span [1,2], got %+v", spans[0])
		}
	})

	t.Run("TrailingOpenSpan", func(t *testing.T) {
		tags := []string{"B-X", "I-X"}
		scores := []float64{1.0, 0.5}

		spans := Spans(tags, scores)
		if len(spans) != 1 {
			t.Fatalf("Open span at sentence end must be flushed, got %d", len(spans))
		}
		if math.Abs(spans[0].Score-0.75) > 1e-9 {
			t.Errorf("Expected mean score 0.75, got %f", spans[0].Score)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if spans := Spans(nil, nil); len(spans) != 0 {
			t.Errorf("Empty input should yield no spans, got %d", len(spans))
		}
		if spans := Spans([]string{"O", "O"}, []float64{1, 1}); len(spans) != 0 {
			t.Errorf("All-O input should yield no spans, got %d", len(spans))
		}
	})
}

func TestTokenLabels(t *testing.T) {
	tags := []string{"O", "B-X", "_", "I-X"}
	scores := []float64{0.9, 0.8, 0.1, 0.7}

	out := TokenLabels(tags, scores)
	if len(out) != 2 {
		t.Fatalf("O and _ must be dropped, expected 2 labels, got %d", len(out))
	}
	if out[0].Position != 1 || out[0].Tag != "B-X" {
		t.Errorf("Unexpected first label: %+v", out[0])
	}
	if out[1].Position != 3 || out[1].Tag != "I-X" || out[1].Score != 0.7 {
		t.Errorf("Unexpected second label: %+v", out[1])
	}
}
