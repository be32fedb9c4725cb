package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/payslipflow/internal/config"
	"github.com/Lllllllleong/payslipflow/internal/email"
	"github.com/Lllllllleong/payslipflow/internal/gcp"
	"github.com/Lllllllleong/payslipflow/internal/models"
	"github.com/Lllllllleong/payslipflow/internal/payperiod"
	"github.com/Lllllllleong/payslipflow/internal/pdf"
	"github.com/Lllllllleong/payslipflow/internal/server"
	"github.com/Lllllllleong/payslipflow/internal/services"
)

var (
	handler http.Handler
	intake  *services.BucketIntake
	once    sync.Once
	initErr error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("UploadMasterPDF", uploadMasterPDF)
	functions.CloudEvent("DispatchFromBucket", dispatchFromBucket)
}

// main is required by the Go Functions Framework.
func main() {}

func initialize() {
	cfg, err := config.FromEnv()
	if err != nil {
		initErr = fmt.Errorf("failed to load configuration: %w", err)
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	cfg.Warn()

	storageClient, err := storage.NewClient(context.Background())
	if err != nil {
		initErr = fmt.Errorf("failed to create Storage client: %w", err)
		return
	}

	periods := payperiod.NewResolver()
	dispatcher := services.NewDispatcher(pdf.NewSplitter(), pdf.NewTextExtractor(), email.NewBrevoClient(cfg.Brevo))
	handler = server.New(cfg, dispatcher, periods).Routes()
	intake = services.NewBucketIntake(gcp.NewStorageReader(storageClient), dispatcher, periods)
	slog.Info("Payslip dispatcher initialized.", "authEnabled", cfg.AuthEnabled())
}

// uploadMasterPDF serves the whole HTTP API, so the function URL behaves like
// the standalone server.
func uploadMasterPDF(w http.ResponseWriter, r *http.Request) {
	once.Do(initialize)
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}

// dispatchFromBucket handles Cloud Storage object finalize events.
func dispatchFromBucket(ctx context.Context, e cloudevents.Event) error {
	once.Do(initialize)
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Per-page failures are already in the logged result. Returning an error
	// asks the platform to redeliver the event.
	_, err := intake.Process(ctx, gcsEvent)
	if err != nil && !services.Retryable(err) {
		slog.Error("Bucket dispatch failed and will not be retried.", "error", err)
		return nil
	}
	return err
}
