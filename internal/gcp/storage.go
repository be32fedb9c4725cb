package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectUnavailable reports that an object is missing or the function's
// service account may not read it. Retrying the event will not help.
var ErrObjectUnavailable = errors.New("object unavailable")

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// ObjectReader fetches whole objects. StorageReader is the Cloud Storage
// implementation.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// StorageReader reads whole objects from Cloud Storage.
type StorageReader struct {
	client *storage.Client
}

// NewStorageReader wraps an existing client.
func NewStorageReader(client *storage.Client) *StorageReader {
	return &StorageReader{client: client}
}

// ReadObject downloads gs://bucket/object into memory.
func (r *StorageReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	gcsReader, err := r.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err))
	}
	defer gcsReader.Close()

	data, err := io.ReadAll(gcsReader)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read GCS object gs://%s/%s: %w", bucket, object, err))
	}
	return data, nil
}

func classify(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%w: %w", ErrObjectUnavailable, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusForbidden || gerr.Code == http.StatusNotFound) {
		return fmt.Errorf("%w: %w", ErrObjectUnavailable, err)
	}
	return err
}
