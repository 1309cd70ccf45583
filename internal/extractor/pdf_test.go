package extractor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
)

type fakePages struct {
	pages []string
	err   error
}

func (f fakePages) NumPage() int { return len(f.pages) }

func (f fakePages) PageText(n int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.pages[n-1], nil
}

type nopCloser struct{ closed *bool }

func (c nopCloser) Close() error {
	*c.closed = true
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o644))
	return path
}

func TestExtract_NotFound(t *testing.T) {
	e := NewPDFExtractor(quietLogger())
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtract_InvalidFormat(t *testing.T) {
	e := NewPDFExtractor(quietLogger())
	_, err := e.Extract(context.Background(), touch(t, "contract.docx"))
	assert.ErrorIs(t, err, domain.ErrInvalidFormat)
}

func TestExtract_CorruptPDF(t *testing.T) {
	e := NewPDFExtractor(quietLogger())
	_, err := e.Extract(context.Background(), touch(t, "broken.pdf"))
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestExtract_NormalisesPages(t *testing.T) {
	closed := false
	e := NewPDFExtractor(quietLogger())
	e.open = func(string) (pageSource, io.Closer, error) {
		return fakePages{pages: []string{
			"  This  Agreement\n is made\tbetween ",
			"",
			"Payment is due\n\nwithin 30 days.",
		}}, nopCloser{&closed}, nil
	}

	path := touch(t, "Lease.PDF")
	out, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, closed)

	assert.Equal(t, domain.PageText{
		1: "This Agreement is made between",
		2: "",
		3: "Payment is due within 30 days.",
	}, out.Pages)
	assert.Equal(t, "This Agreement is made between  Payment is due within 30 days.", out.Text)
	assert.Equal(t, domain.Document{
		Filename:        "Lease.PDF",
		PageCount:       3,
		TotalCharacters: len(out.Text),
		TotalWords:      11,
	}, out.Metadata)
}

func TestExtract_PageFailure(t *testing.T) {
	closed := false
	e := NewPDFExtractor(quietLogger())
	e.open = func(string) (pageSource, io.Closer, error) {
		return fakePages{pages: []string{"x"}, err: errors.New("bad stream")}, nopCloser{&closed}, nil
	}
	_, err := e.Extract(context.Background(), touch(t, "a.pdf"))
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.True(t, closed)
}

func TestExtract_Cancelled(t *testing.T) {
	closed := false
	e := NewPDFExtractor(quietLogger())
	e.open = func(string) (pageSource, io.Closer, error) {
		return fakePages{pages: []string{"a", "b"}}, nopCloser{&closed}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Extract(ctx, touch(t, "a.pdf"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspect(t *testing.T) {
	closed := false
	e := NewPDFExtractor(quietLogger())
	e.open = func(string) (pageSource, io.Closer, error) {
		return fakePages{pages: []string{"a", "b", "c"}}, nopCloser{&closed}, nil
	}
	doc, err := e.Inspect(touch(t, "nda.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "nda.pdf", doc.Filename)
	assert.Equal(t, 3, doc.PageCount)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize(" a \n\n b\t\tc  "))
	assert.Equal(t, "", Normalize(" \n "))
}

func TestExtract_RealPDF(t *testing.T) {
	ext, err := NewPDFExtractor(quietLogger()).Extract(context.Background(), filepath.Join("testdata", "agreement.pdf"))
	require.NoError(t, err)

	assert.Equal(t, domain.PageText{
		1: "Services Agreement Payment is due within 30 days of invoice.",
		2: "Either party may terminate this agreement with 60 days written notice.",
	}, ext.Pages)
	assert.Equal(t, "Services Agreement Payment is due within 30 days of invoice. Either party may terminate this agreement with 60 days written notice.", ext.Text)
	assert.Equal(t, "agreement.pdf", ext.Metadata.Filename)
	assert.Equal(t, 2, ext.Metadata.PageCount)
	assert.Equal(t, 21, ext.Metadata.TotalWords)
}
