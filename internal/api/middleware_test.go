package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestLoggerPreservesFlusher(t *testing.T) {
	var flushable bool
	handler := requestLogger(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		flushable = ok
		if !ok {
			return
		}
		w.Write([]byte("chunk"))
		f.Flush()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chats/all", nil))

	if !flushable {
		t.Fatal("logging middleware hides http.Flusher from handlers")
	}
	if !rec.Flushed {
		t.Error("flush did not reach the underlying writer")
	}
}

func TestRequestLoggerRecordsStatusAndRequestID(t *testing.T) {
	handler := requestLogger(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected a request ID header")
	}
}
