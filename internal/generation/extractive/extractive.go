// Package extractive answers grounded prompts offline by quoting the context
// sentences that best match the question.
package extractive

import (
	"context"
	"math"
	"sort"
	"strings"

	"legalrag/internal/prompt"
	"legalrag/internal/textutil"
)

// Generator ranks context sentences by word frequency weighted by overlap
// with the question.
type Generator struct {
	maxSentences int
}

// NewGenerator creates an extractive generator quoting at most maxSentences.
func NewGenerator(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &Generator{maxSentences: maxSentences}
}

// Name returns the identifier of this generator implementation.
func (g *Generator) Name() string { return "extractive" }

type sentence struct {
	text   string
	header string
	tokens []string
	order  int
}

// Generate answers the question embedded in p from its context. Summary
// requests get the highest-frequency sentences regardless of overlap.
func (g *Generator) Generate(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	contextText, question, ok := prompt.Parse(p)
	if !ok {
		contextText, question = p, ""
	}

	var sentences []sentence
	for _, b := range prompt.Blocks(contextText) {
		for _, s := range textutil.Sentences(b.Text) {
			sentences = append(sentences, sentence{text: s, header: b.Header, tokens: textutil.Tokens(s), order: len(sentences)})
		}
	}
	if len(sentences) == 0 {
		return prompt.NotFoundAnswer + ".", nil
	}

	freq := frequencies(sentences)
	qset := make(map[string]struct{})
	for _, t := range textutil.Tokens(question) {
		qset[t] = struct{}{}
	}
	summary := question == "" || strings.Contains(strings.ToLower(question), "summar")

	type scored struct {
		s     sentence
		score float64
	}
	var ranked []scored
	for _, s := range sentences {
		if len(s.tokens) == 0 {
			continue
		}
		score := 0.0
		for _, tok := range s.tokens {
			score += freq[tok]
		}
		// Normalize by sentence length to avoid bias
		score /= math.Sqrt(float64(len(s.tokens)))
		if !summary {
			hits := overlap(qset, s.tokens)
			if hits == 0 {
				continue
			}
			score *= float64(hits)
		}
		ranked = append(ranked, scored{s, score})
	}
	if len(ranked) == 0 {
		return prompt.NotFoundAnswer + ".", nil
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := min(g.maxSentences, len(ranked))
	best := ranked[0].s
	selected := make([]sentence, n)
	for i := range selected {
		selected[i] = ranked[i].s
	}
	// Keep original order among selected
	sort.Slice(selected, func(i, j int) bool { return selected[i].order < selected[j].order })

	parts := make([]string, n)
	for i, s := range selected {
		parts[i] = s.text
	}
	answer := strings.Join(parts, " ")
	if best.header != "" {
		answer += " " + strings.Replace(best.header, "[Source:", "(Source:", 1)
		answer = strings.TrimSuffix(answer, "]") + ")"
	}
	return answer, nil
}

// frequencies returns token counts scaled so the most frequent token is 1.
func frequencies(sentences []sentence) map[string]float64 {
	freq := map[string]float64{}
	for _, s := range sentences {
		for _, tok := range s.tokens {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	return freq
}

func overlap(qset map[string]struct{}, tokens []string) int {
	seen := make(map[string]struct{}, len(tokens))
	n := 0
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qset[t]; ok {
			n++
		}
	}
	return n
}
