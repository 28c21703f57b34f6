package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hello"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/amounts/minor", nil)

	Logger(logger)(next).ServeHTTP(w, r)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["method"] != http.MethodPost {
		t.Fatalf("method = %v, want POST", fields["method"])
	}
	if fields["uri"] != "/api/amounts/minor" {
		t.Fatalf("uri = %v", fields["uri"])
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Fatalf("status = %v, want %d", fields["status"], http.StatusCreated)
	}
	if fields["size"] != int64(5) {
		t.Fatalf("size = %v, want 5", fields["size"])
	}
}
