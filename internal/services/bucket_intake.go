package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Lllllllleong/payslipflow/internal/gcp"
	"github.com/Lllllllleong/payslipflow/internal/models"
	"github.com/Lllllllleong/payslipflow/internal/payperiod"
	"github.com/Lllllllleong/payslipflow/internal/pdf"
)

// BatchProcessor runs one master document through the dispatch pipeline.
type BatchProcessor interface {
	Process(ctx context.Context, master models.PdfData, payMonth string) (*models.BatchResult, error)
}

// BucketIntake dispatches master documents dropped into a Cloud Storage
// bucket. The pay period always comes from the object name.
type BucketIntake struct {
	reader     gcp.ObjectReader
	dispatcher BatchProcessor
	periods    *payperiod.Resolver
}

// NewBucketIntake creates a BucketIntake.
func NewBucketIntake(reader gcp.ObjectReader, dispatcher BatchProcessor, periods *payperiod.Resolver) *BucketIntake {
	if periods == nil {
		periods = payperiod.NewResolver()
	}
	return &BucketIntake{reader: reader, dispatcher: dispatcher, periods: periods}
}

// Process handles one object finalize event. Objects that are not PDFs are
// skipped. Download and batch failures are returned; Retryable tells which
// of them are worth redelivering. Per-page failures are logged with the
// batch result.
func (b *BucketIntake) Process(ctx context.Context, e models.GCSEvent) (*models.BatchResult, error) {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.EqualFold(path.Ext(e.Name), ".pdf") {
		logCtx.Info("Object is not a PDF. Skipping.")
		return nil, nil
	}
	logCtx.Info("Processing new GCS object.")

	master, err := b.reader.ReadObject(ctx, e.Bucket, e.Name)
	if err != nil {
		logCtx.Error("Failed to download master PDF", "error", err)
		return nil, err
	}

	payMonth := b.periods.Resolve("", path.Base(e.Name))
	logCtx = logCtx.With("payMonth", payMonth, "sizeBytes", len(master))

	result, err := b.dispatcher.Process(ctx, master, payMonth)
	if err != nil {
		logCtx.Error("Batch failed", "error", err)
		return nil, fmt.Errorf("gs://%s/%s: %w", e.Bucket, e.Name, err)
	}
	logCtx.Info("Batch dispatched.",
		"totalPages", result.TotalPages,
		"emailsSent", result.EmailsSent,
		"emailsFailed", result.EmailsFailed,
		"failedRecords", result.FailedRecords,
	)
	return result, nil
}

// Retryable reports whether a failed bucket dispatch may be redelivered. An
// object that cannot be read or split fails the same way every time, and a
// batch stopped by ErrUnexpected has already mailed its earlier pages, so
// only transient download failures qualify.
func Retryable(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, gcp.ErrObjectUnavailable),
		errors.Is(err, ErrNoDocument),
		errors.Is(err, pdf.ErrSplit),
		errors.Is(err, ErrUnexpected):
		return false
	}
	return true
}
