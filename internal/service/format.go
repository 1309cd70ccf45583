package service

import (
	"fmt"
	"strings"

	"legalrag/internal/domain"
	"legalrag/internal/prompt"
)

// FormatAnswer renders an answer and its sources as plain text.
func FormatAnswer(a *domain.Answer) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	fmt.Fprintf(&b, "Question: %s\n%s\n\nAnswer:\n%s\n\n%s\n", a.Question, rule, a.Answer, rule)
	fmt.Fprintf(&b, "\nSources (%d chunks used):\n", a.SourceCount)
	for i, s := range a.Sources {
		fmt.Fprintf(&b, "\n  %d. Source: %s, Page: %s\n     %s\n", i+1, s.Source, prompt.PageLabel(s.Page), s.Text)
	}
	return b.String()
}

// FormatClauses renders clause answers in topic order.
func FormatClauses(c domain.Clauses) string {
	if len(c) == 0 {
		return "No key clauses found.\n"
	}
	var b strings.Builder
	for _, cl := range c {
		fmt.Fprintf(&b, "## %s\n%s\n\n", cl.Topic, cl.Answer)
	}
	return b.String()
}
