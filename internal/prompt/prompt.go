// Package prompt builds the grounded question-answering prompt and the
// context block it embeds.
package prompt

import (
	"fmt"
	"strings"

	"legalrag/internal/domain"
)

// NotFoundAnswer is the sentence the model is told to give when the context
// does not contain the answer.
const NotFoundAnswer = "I cannot find this information in the document"

const (
	contextHeader  = "Context from document:\n"
	questionHeader = "\n\nQuestion: "
	instructions   = "\n\nInstructions:\n"
)

const template = `You are a legal document analysis assistant. Answer the question based ONLY on the provided context from the document.

Context from document:
%s

Question: %s

Instructions:
1. Answer based ONLY on the context provided above
2. If the answer is not in the context, say "` + NotFoundAnswer + `"
3. Be precise and cite the source/page when possible
4. Keep the answer clear and concise

Answer:`

// Passage is one retrieved piece of context.
type Passage struct {
	Source string
	Page   int
	Text   string
}

// FromResults converts retrieval results into prompt passages in order.
func FromResults(results []domain.RetrievalResult) []Passage {
	out := make([]Passage, len(results))
	for i, r := range results {
		out[i] = Passage{Source: r.Metadata.Source, Page: r.Metadata.PageNumber, Text: r.Text}
	}
	return out
}

// PageLabel renders a page number for citation. Passages chunked from the
// whole document carry page 0 and are cited as such; only a negative page
// reads "N/A".
func PageLabel(page int) string {
	if page < 0 {
		return "N/A"
	}
	return fmt.Sprint(page)
}

// Header returns the citation line placed above a passage.
func Header(source string, page int) string {
	return fmt.Sprintf("[Source: %s, Page: %s]", source, PageLabel(page))
}

// Context joins passages as "[Source: S, Page: P]\n<text>" blocks separated by
// a blank line.
func Context(passages []Passage) string {
	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = Header(p.Source, p.Page) + "\n" + p.Text
	}
	return strings.Join(blocks, "\n\n")
}

// Build renders the full prompt for a question over the given context.
func Build(context, question string) string {
	return fmt.Sprintf(template, context, question)
}

// Parse recovers the context and question from a prompt produced by Build.
func Parse(p string) (context, question string, ok bool) {
	_, rest, found := strings.Cut(p, contextHeader)
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, questionHeader)
	if i < 0 {
		return "", "", false
	}
	context = rest[:i]
	question, _, found = strings.Cut(rest[i+len(questionHeader):], instructions)
	if !found {
		return "", "", false
	}
	return context, question, true
}

// Block is one "[Source: S, Page: P]" section of a context string.
type Block struct {
	Header string
	Text   string
}

// Blocks splits a context string back into its cited sections. Text before
// the first header is returned as a block with an empty header.
func Blocks(context string) []Block {
	var out []Block
	for _, part := range strings.Split(context, "\n\n") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		head, body, found := strings.Cut(part, "\n")
		if found && strings.HasPrefix(head, "[Source: ") && strings.HasSuffix(head, "]") {
			out = append(out, Block{Header: head, Text: body})
			continue
		}
		if n := len(out); n > 0 {
			out[n-1].Text += "\n\n" + part
			continue
		}
		out = append(out, Block{Text: part})
	}
	return out
}
