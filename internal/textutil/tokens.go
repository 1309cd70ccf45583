// Package textutil holds the tokenizer shared by the offline embedder and the
// extractive generator.
package textutil

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)

var sentencePattern = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "does", "do", "say", "which", "who", "how", "document",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// Tokens lowercases text and returns its stemmed non-stopword tokens in order.
func Tokens(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, t := range raw {
		if IsStopword(t) {
			continue
		}
		out = append(out, Stem(t))
	}
	return out
}

// IsStopword reports whether the lowercase token t carries no topical meaning.
func IsStopword(t string) bool {
	_, ok := stopwords[t]
	return ok
}

// Stem strips a few common English suffixes, e.g. "payments" -> "payment".
func Stem(t string) string {
	for _, suf := range []string{"ations", "ation", "ings", "ing", "ed", "es", "s"} {
		if len(t) > len(suf)+3 && strings.HasSuffix(t, suf) {
			return strings.TrimSuffix(t, suf)
		}
	}
	return t
}

// Sentences splits text on terminal punctuation, keeping the punctuation and
// dropping blank pieces.
func Sentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
