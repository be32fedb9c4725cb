package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Lllllllleong/payslipflow/internal/gcp"
	"github.com/Lllllllleong/payslipflow/internal/models"
	"github.com/Lllllllleong/payslipflow/internal/payperiod"
	"github.com/Lllllllleong/payslipflow/internal/pdf"
)

type fakeReader struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type recordingProcessor struct {
	month  string
	master models.PdfData
	err    error
}

func (r *recordingProcessor) Process(ctx context.Context, master models.PdfData, payMonth string) (*models.BatchResult, error) {
	r.master, r.month = master, payMonth
	if r.err != nil {
		return nil, r.err
	}
	return &models.BatchResult{TotalPages: 1, EmailsSent: 1, FailedRecords: []models.FailedRecord{}}, nil
}

func fixedPeriods() *payperiod.Resolver {
	return &payperiod.Resolver{Now: func() time.Time { return time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC) }}
}

func TestBucketIntake_ResolvesMonthFromObjectName(t *testing.T) {
	reader := &fakeReader{data: []byte("%PDF")}
	proc := &recordingProcessor{}
	intake := NewBucketIntake(reader, proc, fixedPeriods())

	result, err := intake.Process(context.Background(), models.GCSEvent{Bucket: "payroll", Name: "2025/payslip_mar-25.PDF"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result == nil || result.EmailsSent != 1 {
		t.Errorf("result = %+v", result)
	}
	if proc.month != "March 2025" || string(proc.master) != "%PDF" {
		t.Errorf("processor got month %q, master %q", proc.month, proc.master)
	}
}

func TestBucketIntake_FallsBackToCurrentMonth(t *testing.T) {
	proc := &recordingProcessor{}
	intake := NewBucketIntake(&fakeReader{data: []byte("%PDF")}, proc, fixedPeriods())
	if _, err := intake.Process(context.Background(), models.GCSEvent{Bucket: "payroll", Name: "uploads/master.pdf"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if proc.month != "October 2026" {
		t.Errorf("month = %q", proc.month)
	}
}

func TestBucketIntake_SkipsNonPDF(t *testing.T) {
	reader := &fakeReader{}
	intake := NewBucketIntake(reader, &recordingProcessor{}, fixedPeriods())
	result, err := intake.Process(context.Background(), models.GCSEvent{Bucket: "payroll", Name: "mapping.csv"})
	if err != nil || result != nil || reader.calls != 0 {
		t.Errorf("expected skip, got result %+v, err %v, reads %d", result, err, reader.calls)
	}
}

func TestBucketIntake_Errors(t *testing.T) {
	readErr := errors.New("download failed")
	intake := NewBucketIntake(&fakeReader{err: readErr}, &recordingProcessor{}, fixedPeriods())
	if _, err := intake.Process(context.Background(), models.GCSEvent{Bucket: "b", Name: "a.pdf"}); !errors.Is(err, readErr) {
		t.Errorf("error = %v, want %v", err, readErr)
	}

	intake = NewBucketIntake(&fakeReader{data: []byte("x")}, &recordingProcessor{err: ErrUnexpected}, fixedPeriods())
	if _, err := intake.Process(context.Background(), models.GCSEvent{Bucket: "b", Name: "a.pdf"}); !errors.Is(err, ErrUnexpected) {
		t.Errorf("error = %v, want ErrUnexpected", err)
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"success", nil, false},
		{"transient download", errors.New("connection reset"), true},
		{"object gone", fmt.Errorf("%w: gs://b/a.pdf", gcp.ErrObjectUnavailable), false},
		{"empty object", ErrNoDocument, false},
		{"unsplittable", fmt.Errorf("%w: page 2: bad xref", pdf.ErrSplit), false},
		{"stopped mid-batch", fmt.Errorf("%w: page 2: boom", ErrUnexpected), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestBucketIntake_PartialBatchIsNotRetried(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(
		&fakeSplitter{texts: []string{"a@one.com", "explode", "c@three.com"}},
		&fakeExtractor{panicOn: "explode"},
		mailer,
	)
	intake := NewBucketIntake(&fakeReader{data: []byte("%PDF")}, d, fixedPeriods())

	_, err := intake.Process(context.Background(), models.GCSEvent{Bucket: "payroll", Name: "payslips_mar_2025.pdf"})
	if !errors.Is(err, ErrUnexpected) {
		t.Fatalf("error = %v, want ErrUnexpected", err)
	}
	if Retryable(err) {
		t.Errorf("batch that already mailed %d page(s) would be redelivered", len(mailer.slips))
	}
}

func TestBucketIntake_SplitFailureIsNotRetried(t *testing.T) {
	d := NewDispatcher(pdf.NewSplitter(), &fakeExtractor{}, &fakeMailer{})
	intake := NewBucketIntake(&fakeReader{data: []byte("not a pdf")}, d, fixedPeriods())

	_, err := intake.Process(context.Background(), models.GCSEvent{Bucket: "payroll", Name: "master.pdf"})
	if !errors.Is(err, pdf.ErrSplit) {
		t.Fatalf("error = %v, want ErrSplit", err)
	}
	if Retryable(err) {
		t.Error("split failure would be redelivered")
	}
}
