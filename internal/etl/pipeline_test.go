package etl

import (
	"testing"

	"go.uber.org/zap"
)

func TestDetectFileFormat(t *testing.T) {
	cases := []struct {
		filename string
		expected FileFormat
	}{
		{"mentions.csv", FormatCSV},
		{"mentions.parquet", FormatParquet},
		{"mentions.json", FormatJSON},
		{"mentions.jsonl", FormatJSON},
		{"train.txt", FormatColumn},
		{"dev.conll", FormatColumn},
		{"unknown.dat", FormatCSV},
	}

	for _, tc := range cases {
		if got := DetectFileFormat(tc.filename); got != tc.expected {
			t.Errorf("DetectFileFormat(%q) = %q, expected %q", tc.filename, got, tc.expected)
		}
	}
}

func TestValidateRecord(t *testing.T) {
	p := &Pipeline{
		config: &Config{ValidateData: true},
		logger: zap.NewNop(),
	}

	t.Run("Valid", func(t *testing.T) {
		if !p.validateRecord(&MentionRecord{Text: "John Smith", Label: "person"}) {
			t.Error("Valid record rejected")
		}
	})

	t.Run("EmptyText", func(t *testing.T) {
		if p.validateRecord(&MentionRecord{Text: "  ", Label: "person"}) {
			t.Error("Empty text accepted")
		}
	})

	t.Run("EmptyLabel", func(t *testing.T) {
		if p.validateRecord(&MentionRecord{Text: "John", Label: ""}) {
			t.Error("Empty label accepted")
		}
	})

	t.Run("ValidationDisabled", func(t *testing.T) {
		open := &Pipeline{config: &Config{ValidateData: false}, logger: zap.NewNop()}
		if !open.validateRecord(&MentionRecord{}) {
			t.Error("Disabled validation must accept everything")
		}
	})
}

func TestComputeTextHash(t *testing.T) {
	a := computeTextHash("Berlin")
	b := computeTextHash("Berlin")
	if a != b {
		t.Errorf("Hash must be deterministic: %q != %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
	if computeTextHash("Berlin") == computeTextHash("Munich") {
		t.Error("Different texts must not collide")
	}
}
