package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/api/gallery", "/api/gallery"},
		{"/api/blob/0b7e3c9f", "/api/blob/{id}"},
		{"/api/image/abc-123/full", "/api/image/{id}/full"},
		{"/api/generate/abc-123", "/api/generate/{id}"},
		{"/api/generate/abc-123/cancel", "/api/generate/{id}/cancel"},
		{"/api/folders/f1", "/api/folders/{id}"},
		{"/health", "/health"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.path); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSanitizeLogField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"two\nlines", "two lines"},
		{"cr\rhere", "cr here"},
		{"nul\x00byte", "nulbyte"},
		{"esc\x1b[31mred", "esc[31mred"},
		{"tab\tok", "tab\tok"},
	}
	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestShouldSkip(t *testing.T) {
	t.Parallel()

	cfg := DefaultLoggingConfig()
	cfg.LogHealthChecks = false

	if !shouldSkip("/healthz", cfg) {
		t.Error("health check not skipped")
	}
	if !shouldSkip("/api/blob/token123", cfg) {
		t.Error("blob request not skipped")
	}
	if shouldSkip("/api/gallery", cfg) {
		t.Error("gallery request skipped")
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4242"
	if got := getClientIP(r); got != "10.0.0.5" {
		t.Errorf("getClientIP = %q, want 10.0.0.5", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := getClientIP(r); got != "203.0.113.7" {
		t.Errorf("getClientIP with XFF = %q, want 203.0.113.7", got)
	}
}

func TestCompressionCompressesJSON(t *testing.T) {
	t.Parallel()

	handler := Compression()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(strings.Repeat(`{"k":"v"}`, 200)))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}
	gr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader() error = %v", err)
	}
	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.HasPrefix(string(body), `{"k":"v"}`) {
		t.Errorf("decompressed body = %q...", body[:20])
	}
}

func TestCompressionSkipsImages(t *testing.T) {
	t.Parallel()

	handler := Compression()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/blob/tok", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want none", got)
	}
	if rec.Body.Len() != 3 {
		t.Errorf("body length = %d, want 3", rec.Body.Len())
	}
}

func TestCompressionSkipsWithoutAcceptEncoding(t *testing.T) {
	t.Parallel()

	handler := Compression()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/gallery", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "" {
		t.Errorf("Content-Encoding = %q, want none", got)
	}
}
