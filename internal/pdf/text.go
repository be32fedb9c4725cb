package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/Lllllllleong/payslipflow/internal/models"
	pdfreader "github.com/ledongthuc/pdf"
)

// Extraction is the outcome of reading a page's text layer. Text is the raw
// parser output, surrounding whitespace included. Err is kept for diagnostics
// only; an Extraction with an error still carries empty Text and is handled
// like an image-only page.
type Extraction struct {
	Text string
	Err  error
}

// Empty reports whether no usable text was recovered.
func (e Extraction) Empty() bool {
	return strings.TrimSpace(e.Text) == ""
}

// TextExtractor reads the embedded text layer of single-page documents.
type TextExtractor struct{}

// NewTextExtractor creates a new instance of TextExtractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// ExtractText never fails: malformed or image-only pages yield an empty
// Extraction. The parser panics on some malformed streams, so panics are
// folded into Err as well.
func (e *TextExtractor) ExtractText(page models.PdfData) (result Extraction) {
	defer func() {
		if r := recover(); r != nil {
			result = Extraction{Err: fmt.Errorf("text extraction panicked: %v", r)}
		}
	}()

	r, err := pdfreader.NewReader(bytes.NewReader(page), int64(len(page)))
	if err != nil {
		return Extraction{Err: fmt.Errorf("failed to open PDF page: %w", err)}
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return Extraction{Err: fmt.Errorf("failed to extract plain text: %w", err)}
	}
	content, err := io.ReadAll(plain)
	if err != nil {
		return Extraction{Err: fmt.Errorf("failed to read plain text: %w", err)}
	}
	return Extraction{Text: string(content)}
}
