// Package textsim turns raw content text into comparable TF-IDF term vectors
// and groups similar texts within a batch. It is pure computation over one
// bounded batch; no state survives a call.
package textsim

import (
	"regexp"
	"strings"
)

var (
	urlRe     = regexp.MustCompile(`(?i)\bhttps?://\S+|\bwww\.\S+`)
	hashtagRe = regexp.MustCompile(`#\w+`)
	wsRe      = regexp.MustCompile(`\s+`)

	sigils = strings.NewReplacer("#", "", "@", "")
)

// Normalize prepares raw content text for comparison: URLs are stripped,
// hashtag/mention sigils are dropped (keeping the underlying token), the text
// is lowercased, and whitespace is collapsed.
func Normalize(text string) string {
	t := urlRe.ReplaceAllString(text, " ")
	t = sigils.Replace(t)
	t = strings.ToLower(t)
	t = wsRe.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Tokenize splits normalized text into alphanumeric tokens.
func Tokenize(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !isWordRune(r)
	})
}

// Hashtags extracts the distinct hashtags of a raw text, lowercased and with
// the leading sigil retained, in order of first appearance.
func Hashtags(text string) []string {
	raw := hashtagRe.FindAllString(text, -1)
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	tags := make([]string, 0, len(raw))
	for _, h := range raw {
		h = strings.ToLower(h)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		tags = append(tags, h)
	}
	return tags
}

func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// contentTokens returns the tokens of a normalized text that carry signal:
// stopwords and single-character tokens are dropped.
func contentTokens(normalized string) []string {
	all := Tokenize(normalized)
	toks := all[:0:len(all)]
	for _, t := range all {
		if len(t) < 2 {
			continue
		}
		if _, stop := stopwords[t]; stop {
			continue
		}
		toks = append(toks, t)
	}
	return toks
}
