// Package pdf extracts plain text from text-based PDF files.
// Scanned, image-only PDFs are out of scope; extraction on them fails
// with ErrExtractionFailed rather than returning empty output.
package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrExtractionFailed indicates the PDF yielded no usable text.
// This is fatal for the whole run.
var ErrExtractionFailed = errors.New("pdf text extraction failed")

// Info describes a validated PDF file.
type Info struct {
	Path      string
	PageCount int
}

// Validate checks that the file is a readable PDF and returns its page count.
func Validate(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	pageCount, err := api.PageCount(f, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: not a readable PDF: %v", ErrExtractionFailed, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrExtractionFailed)
	}

	return &Info{Path: path, PageCount: pageCount}, nil
}

// ExtractText extracts plain text from all pages, joined with newlines.
// Pages whose text cannot be decoded are skipped; if nothing decodes,
// the whole run fails with ErrExtractionFailed.
func ExtractText(path string) (string, error) {
	if _, err := Validate(path); err != nil {
		return "", err
	}

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}

	out := buf.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: no text layer found (scanned PDF?)", ErrExtractionFailed)
	}
	return out, nil
}
