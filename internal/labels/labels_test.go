package labels

import (
	"testing"
)

func TestDictionary(t *testing.T) {
	t.Run("AddAndLookup", func(t *testing.T) {
		d := NewDictionary(false)
		idx := d.Add("person")
		if idx != 0 {
			t.Errorf("First item should get index 0, got %d", idx)
		}
		if again := d.Add("person"); again != idx {
			t.Errorf("Re-adding item should return existing index %d, got %d", idx, again)
		}

		got, ok := d.Index("person")
		if !ok || got != idx {
			t.Errorf("Index lookup failed: got (%d, %v)", got, ok)
		}
		if _, ok := d.Index("missing"); ok {
			t.Error("Lookup of missing item should fail without unknown sentinel")
		}
	})

	t.Run("UnknownSentinel", func(t *testing.T) {
		d := NewDictionary(true)
		d.Add("location")

		idx, ok := d.Index("missing")
		if !ok {
			t.Fatal("Dictionary with unknown sentinel should resolve missing items")
		}
		item, _ := d.Item(idx)
		if item != UnknownItem {
			t.Errorf("Missing item should map to %q, got %q", UnknownItem, item)
		}
	})

	t.Run("ItemsOrdered", func(t *testing.T) {
		d := NewSpanDictionary("person", "location", "organization")
		items := d.Items()
		want := []string{"person", "location", "organization"}
		if len(items) != len(want) {
			t.Fatalf("Expected %d items, got %d", len(want), len(items))
		}
		for i := range want {
			if items[i] != want[i] {
				t.Errorf("Item %d: expected %q, got %q", i, want[i], items[i])
			}
		}
		if !d.SpanLabels() {
			t.Error("Span dictionary should report span labels")
		}
	})
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("bio"); err != nil {
		t.Errorf("Lowercase bio should parse: %v", err)
	}
	if _, err := ParseFormat("BIOES"); err != nil {
		t.Errorf("BIOES should parse: %v", err)
	}
	if _, err := ParseFormat("IOB2"); err == nil {
		t.Error("Unsupported format should be rejected")
	}
}

func TestExpand(t *testing.T) {
	base := NewSpanDictionary("person", "location", "organization")

	t.Run("BIO", func(t *testing.T) {
		expanded, verbalized, err := Expand(base, FormatBIO)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}

		// 1 + 2*|labels|
		want := 1 + 2*3
		if expanded.Len() != want {
			t.Errorf("Expected %d expanded tags, got %d", want, expanded.Len())
		}
		if _, ok := expanded.Index(Outside); !ok {
			t.Error("Expanded dictionary must contain O")
		}
		if _, ok := expanded.Index("B-person"); !ok {
			t.Error("Expanded dictionary must contain B-person")
		}
		if _, ok := expanded.Index("S-person"); ok {
			t.Error("BIO expansion must not contain S- tags")
		}
		if expanded.SpanLabels() {
			t.Error("Expanded dictionary holds token-level tags, not span labels")
		}
		if len(verbalized) != expanded.Len() {
			t.Errorf("Verbalization count %d does not match tagset size %d", len(verbalized), expanded.Len())
		}
	})

	t.Run("BIOES", func(t *testing.T) {
		expanded, _, err := Expand(base, FormatBIOES)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}

		// 1 + 4*|labels|
		want := 1 + 4*3
		if expanded.Len() != want {
			t.Errorf("Expected %d expanded tags, got %d", want, expanded.Len())
		}
		for _, tag := range []string{"S-person", "B-person", "E-person", "I-person"} {
			if _, ok := expanded.Index(tag); !ok {
				t.Errorf("Expanded dictionary must contain %s", tag)
			}
		}
	})

	t.Run("UnknownExcluded", func(t *testing.T) {
		withUnk := NewDictionary(true)
		withUnk.spanLabels = true
		withUnk.Add("person")

		expanded, _, err := Expand(withUnk, FormatBIO)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		if _, ok := expanded.Index(UnknownItem); ok {
			t.Error("Expanded dictionary must not carry the unknown sentinel")
		}
		if expanded.Len() != 3 {
			t.Errorf("Expected 3 tags (O, B-, I-), got %d", expanded.Len())
		}
	})

	t.Run("TokenLevelPassthrough", func(t *testing.T) {
		tokenDict := NewDictionary(false)
		tokenDict.Add("O")
		tokenDict.Add("NOUN")
		tokenDict.Add("VERB")

		expanded, verbalized, err := Expand(tokenDict, FormatBIO)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		if expanded.Len() != tokenDict.Len() {
			t.Errorf("Token-level dictionary should pass through unchanged, got %d tags", expanded.Len())
		}
		if verbalized[0] != "other" {
			t.Errorf("O should verbalize to 'other', got %q", verbalized[0])
		}
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		if _, _, err := Expand(base, Format("IOB1")); err == nil {
			t.Error("Invalid format should be rejected")
		}
	})
}

func TestVerbalizeRoundTrip(t *testing.T) {
	base := NewSpanDictionary("person", "work of art", "creative-work")

	for _, format := range []Format{FormatBIO, FormatBIOES} {
		expanded, verbalized, err := Expand(base, format)
		if err != nil {
			t.Fatalf("Expand(%s) failed: %v", format, err)
		}

		for idx, tag := range expanded.Items() {
			_, wantLabel := SplitTag(tag)
			got := BaseLabel(verbalized[idx])
			if tag == Outside {
				if got != Outside {
					t.Errorf("%s: BaseLabel(%q) = %q, want O", format, verbalized[idx], got)
				}
				continue
			}
			if got != wantLabel {
				t.Errorf("%s: BaseLabel(%q) = %q, want %q", format, verbalized[idx], got, wantLabel)
			}
		}
	}
}

func TestVerbalize(t *testing.T) {
	cases := map[string]string{
		"O":          "other",
		"B-person":   "begin person",
		"I-person":   "inside person",
		"E-location": "end location",
		"S-money":    "single money",
	}
	for tag, want := range cases {
		if got := Verbalize(tag); got != want {
			t.Errorf("Verbalize(%q) = %q, want %q", tag, got, want)
		}
	}
}
