// Package extractor turns statement PDFs into per-page text for the
// parsing engine. It is the only place that touches the PDF library, so
// the engine itself stays testable on plain strings.
package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads text from a PDF using its embedded text layer.
// Scanned statements without a text layer come back empty; OCR is out of
// scope.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// ExtractPages returns one text block per page, rows joined top to
// bottom with newlines.
func (e *PDFExtractor) ExtractPages(data []byte) (pages []string, err error) {
	// The pdf library panics on some malformed documents.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("ExtractPages: malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("ExtractPages: opening PDF: %w", err)
	}

	total := reader.NumPage()
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("ExtractPages: reading page %d: %w", i, err)
		}

		var sb strings.Builder
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				if s := strings.TrimSpace(word.S); s != "" {
					words = append(words, s)
				}
			}
			if len(words) == 0 {
				continue
			}
			sb.WriteString(strings.Join(words, " "))
			sb.WriteByte('\n')
		}
		pages = append(pages, sb.String())
	}

	return pages, nil
}
