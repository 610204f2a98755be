package encoder

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/dualtag/dualtag/internal/data"
)

func TestHashEncoder(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("Deterministic", func(t *testing.T) {
		enc, err := NewHashEncoder(Config{}, logger)
		if err != nil {
			t.Fatalf("Failed to create hash encoder: %v", err)
		}

		first, _ := enc.EmbedPhrases(ctx, []string{"begin person"})
		second, _ := enc.EmbedPhrases(ctx, []string{"begin person"})
		for i := range first[0] {
			if first[0][i] != second[0][i] {
				t.Fatal("Hash embeddings must be deterministic")
			}
		}
	})

	t.Run("Dimensions", func(t *testing.T) {
		enc, _ := NewHashEncoder(Config{Dimensions: 64}, logger)
		out, err := enc.EmbedPhrases(ctx, []string{"other"})
		if err != nil {
			t.Fatalf("EmbedPhrases failed: %v", err)
		}
		if len(out[0]) != 64 {
			t.Errorf("Expected 64 dimensions, got %d", len(out[0]))
		}
		if enc.Dim() != 64 {
			t.Errorf("Dim() should report 64, got %d", enc.Dim())
		}
	})

	t.Run("DefaultDimensions", func(t *testing.T) {
		enc, _ := NewHashEncoder(Config{}, logger)
		if enc.Dim() != DefaultDimensions {
			t.Errorf("Expected default %d dimensions, got %d", DefaultDimensions, enc.Dim())
		}
	})

	t.Run("UnitNorm", func(t *testing.T) {
		enc, _ := NewHashEncoder(Config{}, logger)
		out, _ := enc.EmbedPhrases(ctx, []string{"inside location"})

		var norm float64
		for _, v := range out[0] {
			norm += float64(v) * float64(v)
		}
		if math.Abs(norm-1.0) > 1e-4 {
			t.Errorf("Embedding should be L2-normalized, squared norm %f", norm)
		}
	})

	t.Run("EmbedTokens", func(t *testing.T) {
		enc, _ := NewHashEncoder(Config{}, logger)
		sentences := []*data.Sentence{
			data.NewSentence([]string{"John", "lives", "in", "Berlin"}),
			data.NewSentence([]string{"Berlin"}),
		}
		if err := enc.EmbedTokens(ctx, sentences); err != nil {
			t.Fatalf("EmbedTokens failed: %v", err)
		}
		for _, s := range sentences {
			for _, tok := range s.Tokens {
				if len(tok.Embedding) != enc.Dim() {
					t.Fatalf("Token %q has %d dims, want %d", tok.Text, len(tok.Embedding), enc.Dim())
				}
			}
		}

		// Same surface form embeds identically across sentences.
		a := sentences[0].Tokens[3].Embedding
		b := sentences[1].Tokens[0].Embedding
		for i := range a {
			if a[i] != b[i] {
				t.Fatal("Same token text should embed identically")
			}
		}
	})

	t.Run("RelatedPhrasesCloser", func(t *testing.T) {
		enc, _ := NewHashEncoder(Config{}, logger)
		out, _ := enc.EmbedPhrases(ctx, []string{"begin person", "inside person", "end location"})

		shared := dot(out[0], out[1])
		disjoint := dot(out[0], out[2])
		if shared <= disjoint {
			t.Errorf("Phrases sharing a word should be closer: shared=%f disjoint=%f", shared, disjoint)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		enc, _ := NewHashEncoder(Config{}, logger)
		enc.EmbedPhrases(ctx, []string{"a", "b"})
		stats := enc.Stats()
		if stats.TotalInferences != 1 || stats.TotalUnits != 2 {
			t.Errorf("Unexpected stats: %+v", stats)
		}
	})
}

func TestFactory(t *testing.T) {
	logger := zap.NewNop()

	t.Run("Hash", func(t *testing.T) {
		enc, err := New(Config{Type: TypeHash}, logger)
		if err != nil {
			t.Fatalf("Factory failed for hash encoder: %v", err)
		}
		if enc.Config().Type != TypeHash {
			t.Errorf("Expected hash config, got %q", enc.Config().Type)
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		if _, err := New(Config{Type: "quantum"}, logger); err == nil {
			t.Error("Unknown encoder type must be rejected")
		}
	})

	t.Run("ONNXRequiresPaths", func(t *testing.T) {
		if err := ValidateConfig(Config{Type: TypeONNX}); err == nil {
			t.Error("ONNX config without model path must be rejected")
		}
	})
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
