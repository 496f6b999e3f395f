package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sundayezeilo/shortlink/internal/errx"
)

func TestErrorKindMapping(t *testing.T) {
	tests := []struct {
		name       string
		kind       errx.Kind
		wantStatus int
		wantCode   string
	}{
		{"not found", errx.NotFound, http.StatusNotFound, "not_found"},
		{"conflict", errx.Conflict, http.StatusConflict, "conflict"},
		{"invalid", errx.Invalid, http.StatusBadRequest, "invalid_input"},
		{"expired", errx.Expired, http.StatusGone, "expired"},
		{"unavailable", errx.Unavailable, http.StatusServiceUnavailable, "unavailable"},
		{"internal", errx.Internal, http.StatusInternalServerError, "internal_error"},
		{"unknown", errx.Unknown, http.StatusInternalServerError, "internal_error"},
		{"invalid kind value", errx.Kind(99), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKindToStatus(tt.kind); got != tt.wantStatus {
				t.Errorf("ErrorKindToStatus(%v) = %d, want %d", tt.kind, got, tt.wantStatus)
			}
			if got := ErrorKindToCode(tt.kind); got != tt.wantCode {
				t.Errorf("ErrorKindToCode(%v) = %q, want %q", tt.kind, got, tt.wantCode)
			}
		})
	}
}

func TestWriteErrorKind(t *testing.T) {
	rr := httptest.NewRecorder()
	err := errx.E("shortener.service.Resolve", errx.Expired, errors.New("expired"))

	WriteErrorKind(rr, err, "short link has expired")

	if rr.Code != http.StatusGone {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusGone)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != "expired" {
		t.Errorf("Error = %q, want %q", resp.Error, "expired")
	}
	if resp.Message != "short link has expired" {
		t.Errorf("Message = %q, want %q", resp.Message, "short link has expired")
	}
}
