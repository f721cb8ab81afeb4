package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func TestCompress(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"test response that should be compressed"}`))
	})

	tests := []struct {
		name           string
		acceptEncoding string
		wantEncoding   string
	}{
		{
			name:           "brotli preferred",
			acceptEncoding: "gzip, deflate, br",
			wantEncoding:   "br",
		},
		{
			name:           "gzip fallback",
			acceptEncoding: "gzip, deflate",
			wantEncoding:   "gzip",
		},
		{
			name:           "no supported encoding",
			acceptEncoding: "deflate",
			wantEncoding:   "",
		},
		{
			name:           "no accept header",
			acceptEncoding: "",
			wantEncoding:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Compress(testHandler)
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rr.Code)
			}

			if got := rr.Header().Get("Content-Encoding"); got != tt.wantEncoding {
				t.Fatalf("Content-Encoding = %q, want %q", got, tt.wantEncoding)
			}

			var body []byte
			var err error
			switch tt.wantEncoding {
			case "br":
				body, err = io.ReadAll(brotli.NewReader(rr.Body))
			case "gzip":
				var gr *gzip.Reader
				gr, err = gzip.NewReader(rr.Body)
				if err == nil {
					defer gr.Close()
					body, err = io.ReadAll(gr)
				}
			default:
				body = rr.Body.Bytes()
			}
			if err != nil {
				t.Fatalf("failed to read body: %v", err)
			}

			if !strings.Contains(string(body), "test response") {
				t.Error("decompressed body doesn't contain expected content")
			}
		})
	}
}

func TestGzip(t *testing.T) {
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"gzip only path"}`))
	})

	handler := Gzip(testHandler)
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("Content-Encoding = %q, want gzip", got)
	}

	gr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("failed to create gzip reader: %v", err)
	}
	defer gr.Close()

	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("failed to read gzipped body: %v", err)
	}
	if !strings.Contains(string(body), "gzip only path") {
		t.Error("decompressed body doesn't contain expected content")
	}
}
