package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Lllllllleong/payslipflow/internal/email"
	"github.com/Lllllllleong/payslipflow/internal/models"
	"github.com/Lllllllleong/payslipflow/internal/pdf"
	"github.com/Lllllllleong/payslipflow/internal/recipient"
	"github.com/google/uuid"
)

const (
	// RecipientName is used for every payslip since names are not parsed.
	RecipientName = "Employee"

	reasonNoEmail = "Could not identify Email Address"
	snippetLength = 50
)

var (
	// ErrNoDocument reports a request without a master document.
	ErrNoDocument = errors.New("master PDF file is required")
	// ErrUnexpected reports a batch that stopped partway through. Sends made
	// before the failure are not rolled back.
	ErrUnexpected = errors.New("unexpected failure during batch processing")
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// PageSplitter pages a master document.
type PageSplitter interface {
	Split(data models.PdfData) ([]models.PageDocument, error)
}

// TextExtractor reads a page's text layer and never fails.
type TextExtractor interface {
	ExtractText(page models.PdfData) pdf.Extraction
}

// Mailer delivers one payslip and returns the provider message id.
type Mailer interface {
	SendPaySlip(ctx context.Context, slip email.PaySlip) (string, error)
}

// Dispatcher splits master documents and mails every page to the address
// found on it.
type Dispatcher struct {
	splitter  PageSplitter
	extractor TextExtractor
	mailer    Mailer
}

// NewDispatcher wires the pipeline stages together.
func NewDispatcher(splitter PageSplitter, extractor TextExtractor, mailer Mailer) *Dispatcher {
	return &Dispatcher{splitter: splitter, extractor: extractor, mailer: mailer}
}

// Process splits master and sends each page in order, one at a time. Per-page
// failures are recorded in the result and never stop the batch. Only a split
// failure (wrapping pdf.ErrSplit) or ErrUnexpected is returned as an error,
// and in both cases no report is produced.
//
// Cancelling ctx does not stop a batch that has started.
func (d *Dispatcher) Process(ctx context.Context, master models.PdfData, payMonth string) (*models.BatchResult, error) {
	if len(master) == 0 {
		return nil, ErrNoDocument
	}
	logCtx := slog.With("batchId", uuid.NewString(), "payMonth", payMonth)

	pages, err := d.splitter.Split(master)
	if err != nil {
		logCtx.Error("PDF split failed. Aborting batch.", "error", err)
		return nil, err
	}
	logCtx.Info("PDF split into pages.", "pageCount", len(pages))

	ctx = context.WithoutCancel(ctx)
	acc := newTally(len(pages))
	for _, page := range pages {
		if err := d.processPage(ctx, logCtx, acc, page, payMonth); err != nil {
			return nil, err
		}
	}

	result := acc.result()
	logCtx.Info("Batch complete.", "emailsSent", result.EmailsSent, "emailsFailed", result.EmailsFailed)
	return &result, nil
}

func (d *Dispatcher) processPage(ctx context.Context, logCtx *slog.Logger, acc *tally, page models.PageDocument, payMonth string) (err error) {
	logCtx = logCtx.With("page", page.Index)
	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Batch stopped by an unexpected failure. Emails already sent are not reported to the caller.",
				"panic", r, "emailsSent", acc.sent, "emailsFailed", acc.failed)
			err = fmt.Errorf("%w: page %d: %v", ErrUnexpected, page.Index, r)
		}
	}()

	extraction := d.extractor.ExtractText(page.Data)
	if extraction.Err != nil {
		logCtx.Warn("Text extraction failed.", "error", extraction.Err)
	}

	address, ok := recipient.ParseEmail(extraction.Text)
	if !ok {
		logCtx.Warn("Could not identify email address on page.")
		acc.fail(models.FailedRecord{
			Page:        page.Index,
			Reason:      reasonNoEmail,
			TextSnippet: snippet(extraction.Text),
		})
		return nil
	}

	filename := AttachmentFilename(address, payMonth)
	logCtx = logCtx.With("email", address, "filename", filename)
	logCtx.Info("Sending payslip.")

	outcome := d.send(ctx, email.PaySlip{
		ToEmail:    address,
		ToName:     RecipientName,
		Month:      payMonth,
		Attachment: page.Data,
		Filename:   filename,
	})
	if !outcome.Success {
		logCtx.Warn("Payslip email failed.", "error", outcome.Error)
		acc.fail(models.FailedRecord{
			Page:   page.Index,
			Email:  address,
			Reason: "Email failed: " + outcome.Error,
		})
		return nil
	}
	logCtx.Info("Payslip sent.", "messageId", outcome.MessageID)
	acc.succeed()
	return nil
}

func (d *Dispatcher) send(ctx context.Context, slip email.PaySlip) models.DispatchOutcome {
	messageID, err := d.mailer.SendPaySlip(ctx, slip)
	if err != nil {
		return models.DispatchOutcome{Success: false, Error: err.Error()}
	}
	return models.DispatchOutcome{Success: true, MessageID: messageID}
}

// AttachmentFilename builds Payslip_<local part>_<month>.pdf with every
// character outside [A-Za-z0-9] replaced by an underscore.
func AttachmentFilename(address, payMonth string) string {
	local, _, _ := strings.Cut(address, "@")
	return fmt.Sprintf("Payslip_%s_%s.pdf", sanitize(local), sanitize(payMonth))
}

func sanitize(s string) string {
	return unsafeFilenameChars.ReplaceAllString(s, "_")
}

// snippet returns the first 50 characters of text followed by "...".
func snippet(text string) string {
	if utf8.RuneCountInString(text) > snippetLength {
		text = string([]rune(text)[:snippetLength])
	}
	return text + "..."
}

// tally accumulates the outcome of each page in page order.
type tally struct {
	total   int
	sent    int
	failed  int
	records []models.FailedRecord
}

func newTally(total int) *tally {
	return &tally{total: total, records: []models.FailedRecord{}}
}

func (t *tally) succeed() {
	t.sent++
}

func (t *tally) fail(record models.FailedRecord) {
	t.failed++
	t.records = append(t.records, record)
}

func (t *tally) result() models.BatchResult {
	records := make([]models.FailedRecord, len(t.records))
	copy(records, t.records)
	return models.BatchResult{
		TotalPages:    t.total,
		EmailsSent:    t.sent,
		EmailsFailed:  t.failed,
		FailedRecords: records,
	}
}
