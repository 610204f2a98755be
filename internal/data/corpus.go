package data

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dualtag/dualtag/internal/decode"
	"github.com/dualtag/dualtag/internal/labels"
)

// Corpus bundles the three splits of a sequence-labeling dataset. Gold
// annotations are span-level, attached under the corpus tag type.
type Corpus struct {
	Name    string
	TagType string
	Train   []*Sentence
	Dev     []*Sentence
	Test    []*Sentence
}

// TagDictionary collects the span-level base labels seen anywhere in the
// corpus into an ordered dictionary.
func (c *Corpus) TagDictionary() *labels.Dictionary {
	dict := labels.NewSpanDictionary()
	for _, split := range [][]*Sentence{c.Train, c.Dev, c.Test} {
		for _, sentence := range split {
			for _, span := range sentence.Spans(c.TagType) {
				dict.Add(span.Label)
			}
		}
	}
	return dict
}

// ColumnFormat maps column positions to their meaning, e.g.
// {0: "text", 3: "ner"}. The "text" column is required; the tag type
// column carries token-level BIO tags that are converted to spans.
type ColumnFormat map[int]string

// ReadColumnFile parses a CoNLL-style column file: one token per line,
// whitespace-separated columns, blank line between sentences. Token tags
// are decoded into span annotations and base labels are renamed through
// labelMap (missing entries keep their original name).
func ReadColumnFile(path string, format ColumnFormat, tagType string, labelMap map[string]string) ([]*Sentence, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer file.Close()

	textCol, tagCol := -1, -1
	for col, name := range format {
		switch name {
		case "text":
			textCol = col
		case tagType:
			tagCol = col
		}
	}
	if textCol < 0 {
		return nil, fmt.Errorf("column format has no text column")
	}
	if tagCol < 0 {
		return nil, fmt.Errorf("column format has no %q column", tagType)
	}

	var sentences []*Sentence
	var tokens []string
	var tags []string

	flush := func() {
		if len(tokens) == 0 {
			return
		}
		sentence := NewSentence(tokens)
		attachSpans(sentence, tags, tagType, labelMap)
		sentences = append(sentences, sentence)
		tokens = nil
		tags = nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		fields := strings.Fields(line)
		if textCol >= len(fields) {
			continue
		}
		tag := labels.Outside
		if tagCol < len(fields) {
			tag = fields[tagCol]
		}
		tokens = append(tokens, fields[textCol])
		tags = append(tags, tag)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	flush()

	return sentences, nil
}

// attachSpans converts a token-level BIO/BIOES tag sequence into span
// annotations on the sentence, renaming base labels through labelMap.
func attachSpans(sentence *Sentence, tags []string, tagType string, labelMap map[string]string) {
	scores := make([]float64, len(tags))
	for i := range scores {
		scores[i] = 1.0
	}
	for _, span := range decode.Spans(tags, scores) {
		label := span.Label
		if renamed, ok := labelMap[label]; ok {
			label = renamed
		}
		sentence.AddSpan(tagType, span.Start, span.End, label, span.Score)
	}
}

// corpusSpec describes how one named corpus is laid out on disk.
type corpusSpec struct {
	dir             string
	format          ColumnFormat
	labelMap        map[string]string
	filterDocstarts bool
}

// SelectCorpus loads a pre-built corpus by name from baseDir. For
// "fewnerd" the granularity selects the fine or coarse label renaming
// table; other corpora ignore it. Unknown names are rejected.
func SelectCorpus(name, granularity, baseDir string) (*Corpus, error) {
	var spec corpusSpec

	switch name {
	case "wnut_17":
		spec = corpusSpec{
			dir:      "wnut_17",
			format:   ColumnFormat{0: "text", 1: "ner"},
			labelMap: wnut17LabelMap,
		}
	case "conll_03":
		spec = corpusSpec{
			dir:             "conll_03",
			format:          ColumnFormat{0: "text", 1: "pos", 2: "chunk", 3: "ner"},
			labelMap:        conll03LabelMap,
			filterDocstarts: true,
		}
	case "ontonotes":
		spec = corpusSpec{
			dir:      "ontonotes",
			format:   ColumnFormat{0: "text", 1: "ner"},
			labelMap: ontonotesLabelMap,
		}
	case "fewnerd":
		spec = corpusSpec{
			dir:    "fewnerd",
			format: ColumnFormat{0: "text", 1: "ner"},
		}
		switch granularity {
		case "fine":
			spec.labelMap = fewnerdFineLabelMap
		case "coarse":
			spec.labelMap = fewnerdCoarseLabelMap
		default:
			return nil, fmt.Errorf("unknown fewnerd granularity %q (must be fine or coarse)", granularity)
		}
	default:
		return nil, fmt.Errorf("no valid corpus %q", name)
	}

	corpus := &Corpus{Name: name, TagType: "ner"}
	splits := []struct {
		file string
		dest *[]*Sentence
	}{
		{"train.txt", &corpus.Train},
		{"dev.txt", &corpus.Dev},
		{"test.txt", &corpus.Test},
	}
	for _, split := range splits {
		path := filepath.Join(baseDir, spec.dir, split.file)
		sentences, err := ReadColumnFile(path, spec.format, corpus.TagType, spec.labelMap)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w", name, err)
		}
		*split.dest = sentences
	}

	if spec.filterDocstarts {
		corpus.Train = filterDocstarts(corpus.Train)
	}

	return corpus, nil
}

// filterDocstarts drops the -DOCSTART- separator sentences that CoNLL-03
// uses between documents.
func filterDocstarts(sentences []*Sentence) []*Sentence {
	kept := make([]*Sentence, 0, len(sentences))
	for _, s := range sentences {
		if strings.Contains(s.Text(), "DOCSTART") {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}
