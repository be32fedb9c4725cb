package gcp

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("PAYSLIP_TEST_SET", "value")
	t.Setenv("PAYSLIP_TEST_EMPTY", "")

	if got := GetEnv("PAYSLIP_TEST_SET", "fallback"); got != "value" {
		t.Errorf("GetEnv(set) = %q", got)
	}
	if got := GetEnv("PAYSLIP_TEST_EMPTY", "fallback"); got != "fallback" {
		t.Errorf("GetEnv(empty) = %q", got)
	}
	if got := GetEnv("PAYSLIP_TEST_UNSET_KEY", "fallback"); got != "fallback" {
		t.Errorf("GetEnv(unset) = %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"missing object", fmt.Errorf("read: %w", storage.ErrObjectNotExist), true},
		{"missing bucket", storage.ErrBucketNotExist, true},
		{"forbidden", &googleapi.Error{Code: http.StatusForbidden}, true},
		{"server error", &googleapi.Error{Code: http.StatusInternalServerError}, false},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if errors.Is(got, ErrObjectUnavailable) != tt.unavailable {
				t.Errorf("classify(%v) unavailable = %v, want %v", tt.err, !tt.unavailable, tt.unavailable)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify(%v) lost the original error", tt.err)
			}
		})
	}
}
