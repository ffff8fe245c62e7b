package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriter_CapturesStatusAndSize(t *testing.T) {
	var captured *responseWriter
	handler := RequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*responseWriter)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("missing"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/x", nil))

	if rec.Code != http.StatusNotFound || rec.Body.String() != "missing" {
		t.Errorf("response = %d %q", rec.Code, rec.Body.String())
	}
	if captured.status != http.StatusNotFound || captured.size != len("missing") {
		t.Errorf("captured status/size = %d/%d", captured.status, captured.size)
	}
}

func TestResponseWriter_DefaultStatus(t *testing.T) {
	var captured *responseWriter
	handler := RequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = w.(*responseWriter)
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if captured.status != http.StatusOK {
		t.Errorf("status = %d, want 200 when WriteHeader is never called", captured.status)
	}
}

func TestResponseWriter_FlushAndUnwrap(t *testing.T) {
	handler := RequestLogging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(http.Flusher); !ok {
			t.Fatal("responseWriter does not implement http.Flusher")
		}
		w.(http.Flusher).Flush()

		if err := http.NewResponseController(w).Flush(); err != nil {
			t.Errorf("ResponseController.Flush() error = %v", err)
		}
		if w.(*responseWriter).Unwrap() == nil {
			t.Error("Unwrap() returned nil")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !rec.Flushed {
		t.Error("flush did not reach the recorder")
	}
}
