// Package extractor reads PDF files into normalised page text.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"legalrag/internal/domain"
)

// Extension is the only document extension accepted.
const Extension = ".pdf"

// pageSource is the part of a PDF reader the extractor needs.
type pageSource interface {
	NumPage() int
	PageText(n int) (string, error)
}

type opener func(path string) (pageSource, io.Closer, error)

// PDFExtractor extracts text from PDF files page by page.
type PDFExtractor struct {
	logger *slog.Logger
	open   opener
}

// NewPDFExtractor creates an extractor backed by github.com/ledongthuc/pdf.
func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger, open: openPDF}
}

// Extract reads every page of the PDF at path in order.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*domain.Extraction, error) {
	src, closer, err := e.openChecked(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	total := src.NumPage()
	e.logger.Debug("Starting PDF text extraction",
		slog.String("path", path),
		slog.Int("total_pages", total))

	pages := make(domain.PageText, total)
	texts := make([]string, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := src.PageText(n)
		if err != nil {
			e.logger.Error("Failed to extract text from page",
				slog.Int("page_number", n),
				slog.String("error", err.Error()))
			return nil, domain.Upstream(fmt.Sprintf("extract page %d", n), err)
		}
		text := Normalize(raw)
		pages[n] = text
		texts = append(texts, text)
	}

	combined := strings.Join(texts, " ")
	meta := domain.Document{
		Filename:        filepath.Base(path),
		PageCount:       total,
		TotalCharacters: len([]rune(combined)),
		TotalWords:      len(strings.Fields(combined)),
	}
	e.logger.Info("Extracted text from PDF",
		slog.String("filename", meta.Filename),
		slog.Int("total_pages", meta.PageCount),
		slog.Int("total_words", meta.TotalWords))

	return &domain.Extraction{Text: combined, Pages: pages, Metadata: meta}, nil
}

// Inspect returns the filename and page count without extracting text.
func (e *PDFExtractor) Inspect(path string) (*domain.Document, error) {
	src, closer, err := e.openChecked(path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return &domain.Document{Filename: filepath.Base(path), PageCount: src.NumPage()}, nil
}

func (e *PDFExtractor) openChecked(path string) (pageSource, io.Closer, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("file not found: %s: %w", path, domain.ErrNotFound)
		}
		return nil, nil, domain.Upstream("stat "+path, err)
	}
	if !strings.EqualFold(filepath.Ext(path), Extension) {
		return nil, nil, fmt.Errorf("file must be a PDF (.pdf extension): %w", domain.ErrInvalidFormat)
	}
	src, closer, err := e.open(path)
	if err != nil {
		e.logger.Error("Failed to open PDF",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return nil, nil, domain.Upstream("open pdf", err)
	}
	return src, closer, nil
}

// Normalize collapses every whitespace run to a single space and trims.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

type ledongthucSource struct {
	r *pdf.Reader
}

func (s ledongthucSource) NumPage() int { return s.r.NumPage() }

func (s ledongthucSource) PageText(n int) (text string, err error) {
	defer func() {
		// the pdf package panics on some malformed content streams
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page %d: %v", n, r)
		}
	}()
	page := s.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func openPDF(path string) (pageSource, io.Closer, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return ledongthucSource{r: r}, f, nil
}
