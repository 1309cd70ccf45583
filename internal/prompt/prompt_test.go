package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
)

func TestContext(t *testing.T) {
	ctx := Context([]Passage{
		{Source: "doc", Page: 1, Text: "The termination notice period is 30 days."},
		{Source: "doc", Text: "Payment is due monthly."},
	})
	assert.Equal(t,
		"[Source: doc, Page: 1]\nThe termination notice period is 30 days.\n\n[Source: doc, Page: 0]\nPayment is due monthly.",
		ctx)
}

func TestFromResults(t *testing.T) {
	ps := FromResults([]domain.RetrievalResult{{Text: "x", Metadata: domain.Metadata{Source: "nda.pdf", PageNumber: 3}}})
	assert.Equal(t, []Passage{{Source: "nda.pdf", Page: 3, Text: "x"}}, ps)
}

func TestBuildAndParse(t *testing.T) {
	ctx := "[Source: doc, Page: 1]\nQuestion: tricky text inside context.\n\nMore."
	p := Build(ctx, "What is the notice period?")

	assert.True(t, strings.HasPrefix(p, "You are a legal document analysis assistant."))
	assert.Contains(t, p, `say "I cannot find this information in the document"`)
	assert.True(t, strings.HasSuffix(p, "Answer:"))

	gotCtx, gotQ, ok := Parse(p)
	require.True(t, ok)
	assert.Equal(t, ctx, gotCtx)
	assert.Equal(t, "What is the notice period?", gotQ)

	_, _, ok = Parse("just some text")
	assert.False(t, ok)
}

func TestBlocks(t *testing.T) {
	blocks := Blocks("[Source: a, Page: 1]\nFirst.\n\nstill first\n\n[Source: b, Page: N/A]\nSecond.")
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Header: "[Source: a, Page: 1]", Text: "First.\n\nstill first"}, blocks[0])
	assert.Equal(t, Block{Header: "[Source: b, Page: N/A]", Text: "Second."}, blocks[1])

	assert.Equal(t, []Block{{Text: "loose text"}}, Blocks("loose text"))
}

func TestPageLabel(t *testing.T) {
	assert.Equal(t, "0", PageLabel(0))
	assert.Equal(t, "N/A", PageLabel(-1))
	assert.Equal(t, "12", PageLabel(12))
}
