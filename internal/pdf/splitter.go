// Package pdf splits master payslip documents into single pages and reads
// their text layer.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/Lllllllleong/payslipflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrSplit reports that a master document could not be paged. The whole batch
// is abandoned when it occurs.
var ErrSplit = errors.New("failed to split PDF")

// Splitter turns a master document into one single-page document per page.
type Splitter struct {
	conf *model.Configuration
}

// NewSplitter returns a Splitter that validates input in relaxed mode, which
// tolerates the minor defects common in payroll exports.
func NewSplitter() *Splitter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Splitter{conf: conf}
}

// Split returns the pages of data in source order. Each page is a standalone
// document holding its own copy of the page's resources. Any failure aborts
// the split and no pages are returned.
func (s *Splitter) Split(data models.PdfData) ([]models.PageDocument, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: document is empty", ErrSplit)
	}
	pdfContext, err := api.ReadValidateAndOptimize(bytes.NewReader(data), s.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSplit, err)
	}

	pages := make([]models.PageDocument, 0, pdfContext.PageCount)
	for pageNum := 1; pageNum <= pdfContext.PageCount; pageNum++ {
		pageReader, err := api.ExtractPage(pdfContext, pageNum)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrSplit, pageNum, err)
		}
		pageData, err := io.ReadAll(pageReader)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", ErrSplit, pageNum, err)
		}
		pages = append(pages, models.PageDocument{Index: pageNum, Data: pageData})
	}
	return pages, nil
}

// PageCount reports the number of pages in data.
func PageCount(data models.PdfData) (int, error) {
	return api.PageCount(bytes.NewReader(data), nil)
}
