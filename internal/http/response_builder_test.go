package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"fintrack/internal/ai"
	"fintrack/internal/core"
)

func TestResponseBuilder_Envelope(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Message("created").
		Data(map[string]int{"id": 7}).
		Header("X-Custom", "value").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("X-Custom") != "value" {
		t.Errorf("custom header not set")
	}

	var body struct {
		Success    bool           `json:"success"`
		StatusCode int            `json:"statusCode"`
		Message    string         `json:"message"`
		Data       map[string]int `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.Success || body.StatusCode != 201 || body.Message != "created" || body.Data["id"] != 7 {
		t.Errorf("unexpected envelope %+v", body)
	}
}

func TestErrorResponse_NullData(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(w, http.StatusNotFound, "missing")

	want := `{"success":false,"statusCode":404,"message":"missing","data":null}` + "\n"
	if w.Body.String() != want {
		t.Errorf("body = %s, want %s", w.Body.String(), want)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", core.ErrInvalidArgument), http.StatusBadRequest},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("get: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrConflict, http.StatusConflict},
		{ai.ErrNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: status 500", ai.ErrProvider), http.StatusBadGateway},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("sql: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body APIResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.Message != "An unexpected error occurred." {
		t.Errorf("internal error leaked: %q", body.Message)
	}
}
