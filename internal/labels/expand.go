package labels

import (
	"fmt"
	"strings"
)

// Format selects the token-level tagging scheme used for span labels.
type Format string

const (
	FormatBIO   Format = "BIO"
	FormatBIOES Format = "BIOES"
)

// Outside is the tag for tokens that belong to no span.
const Outside = "O"

// ParseFormat normalizes and validates a tag format string.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToUpper(s)) {
	case FormatBIO:
		return FormatBIO, nil
	case FormatBIOES:
		return FormatBIOES, nil
	default:
		return "", fmt.Errorf("unsupported tag format %q (must be BIO or BIOES)", s)
	}
}

// prefixWords maps tag prefixes to the words used in verbalized phrases.
var prefixWords = map[byte]string{
	'B': "begin",
	'I': "inside",
	'E': "end",
	'S': "single",
}

// Expand builds the token-level tag dictionary for a span-level dictionary
// and the verbalization for each expanded tag, indexed by tag index.
//
// Every base label yields "O" plus the format-specific prefixed variants,
// so the expanded dictionary has 1 + 4*|labels| entries for BIOES and
// 1 + 2*|labels| for BIO. The unknown sentinel is never carried over: the
// scorer must be able to produce every tag it is trained on, and an
// unknown tag has no verbalization to embed.
//
// Token-level dictionaries are returned unchanged, with verbalizations
// derived from the tags they already contain.
func Expand(dict *Dictionary, format Format) (*Dictionary, []string, error) {
	if format != FormatBIO && format != FormatBIOES {
		return nil, nil, fmt.Errorf("unsupported tag format %q (must be BIO or BIOES)", format)
	}

	expanded := dict
	if dict.SpanLabels() {
		expanded = NewDictionary(false)
		expanded.Add(Outside)
		for _, label := range dict.Items() {
			if label == UnknownItem {
				continue
			}
			if format == FormatBIOES {
				expanded.Add("S-" + label)
				expanded.Add("B-" + label)
				expanded.Add("E-" + label)
				expanded.Add("I-" + label)
			} else {
				expanded.Add("B-" + label)
				expanded.Add("I-" + label)
			}
		}
	}

	verbalized := make([]string, expanded.Len())
	for idx, tag := range expanded.Items() {
		verbalized[idx] = Verbalize(tag)
	}

	return expanded, verbalized, nil
}

// Verbalize maps a token-level tag to its natural-language phrase:
// "O" becomes "other", "B-person" becomes "begin person".
func Verbalize(tag string) string {
	if tag == Outside {
		return "other"
	}
	if len(tag) > 2 && tag[1] == '-' {
		if word, ok := prefixWords[tag[0]]; ok {
			return word + " " + tag[2:]
		}
	}
	return tag
}

// BaseLabel recovers the base label from a verbalized phrase. It inverts
// Verbalize for every tag Expand generates.
func BaseLabel(phrase string) string {
	if phrase == "other" {
		return Outside
	}
	for _, word := range prefixWords {
		if strings.HasPrefix(phrase, word+" ") {
			return phrase[len(word)+1:]
		}
	}
	return phrase
}

// SplitTag splits a token-level tag into its prefix and base label.
// "B-person" yields ("B", "person"); "O" yields ("", "O").
func SplitTag(tag string) (prefix, label string) {
	if len(tag) > 2 && tag[1] == '-' {
		return tag[:1], tag[2:]
	}
	return "", tag
}
