package model

import (
	"fmt"

	"github.com/dualtag/dualtag/internal/data"
	"github.com/dualtag/dualtag/internal/labels"
)

// EvalLines renders gold and predicted annotations side by side in CoNLL
// format: one "token gold predicted" line per token, a blank line between
// sentences. Span annotations are flattened to B-/I- token tags for the
// printout regardless of the model's tag format.
func (m *DualEncoder) EvalLines(sentences []*data.Sentence, goldType, predictedType string) []string {
	var lines []string

	for _, sentence := range sentences {
		if m.predictSpans {
			goldTags := spanBIOTags(sentence, goldType)
			predTags := spanBIOTags(sentence, predictedType)
			for i, token := range sentence.Tokens {
				lines = append(lines, fmt.Sprintf("%s %s %s", token.Text, goldTags[i], predTags[i]))
			}
		} else {
			for _, token := range sentence.Tokens {
				gold := token.GetLabel(goldType, labels.Outside)
				pred := token.GetLabel(predictedType, labels.Outside)
				lines = append(lines, fmt.Sprintf("%s %s %s", token.Text, gold.Value, pred.Value))
			}
		}
		lines = append(lines, "")
	}

	return lines
}

// spanBIOTags flattens the sentence's span annotations of one type into
// B-/I- token tags, defaulting to "O".
func spanBIOTags(sentence *data.Sentence, typeName string) []string {
	tags := make([]string, sentence.Len())
	for i := range tags {
		tags[i] = labels.Outside
	}
	for _, span := range sentence.Spans(typeName) {
		prefix := "B-"
		for i := span.Start; i <= span.End && i < len(tags); i++ {
			tags[i] = prefix + span.Label
			prefix = "I-"
		}
	}
	return tags
}
