package data

import (
	"github.com/dualtag/dualtag/internal/labels"
)

// GoldTags encodes the gold annotations of each sentence as one token-level
// tag per token. Span annotations are rewritten into the requested tag
// format; tokens outside every span get "O". For token-level corpora
// (spanLevel false) the first label of the given type on each token is
// used, falling back to "O".
func GoldTags(sentences []*Sentence, typeName string, format labels.Format, spanLevel bool) [][]string {
	all := make([][]string, len(sentences))

	for si, sentence := range sentences {
		tags := make([]string, sentence.Len())
		for i := range tags {
			tags[i] = labels.Outside
		}

		if spanLevel {
			for _, span := range sentence.Spans(typeName) {
				if format == labels.FormatBIOES {
					if span.Start == span.End {
						tags[span.Start] = "S-" + span.Label
					} else {
						tags[span.Start] = "B-" + span.Label
						tags[span.End] = "E-" + span.Label
						for i := span.Start + 1; i < span.End; i++ {
							tags[i] = "I-" + span.Label
						}
					}
				} else {
					tags[span.Start] = "B-" + span.Label
					for i := span.Start + 1; i <= span.End; i++ {
						tags[i] = "I-" + span.Label
					}
				}
			}
		} else {
			for i, token := range sentence.Tokens {
				tags[i] = token.GetLabel(typeName, labels.Outside).Value
			}
		}

		all[si] = tags
	}

	return all
}
