package client

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func encodeGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

func encodeBrotli(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

func encodeZstd(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

func TestDecodingTransport_Encodings(t *testing.T) {
	manifest := []byte("#EXTM3U\n#EXTINF:4.0,\nseg0.ts\n#EXTINF:4.0,\nseg1.ts\n")

	tests := []struct {
		name     string
		header   string
		encode   func(*testing.T, []byte) []byte
		expected []byte
	}{
		{"gzip", "gzip", encodeGzip, manifest},
		{"brotli", "br", encodeBrotli, manifest},
		{"zstd", "zstd", encodeZstd, manifest},
		{"upper case with whitespace", " GZIP ", encodeGzip, manifest},
		{"comma list uses outermost", "identity, br", encodeBrotli, manifest},
		{"identity", "", func(_ *testing.T, b []byte) []byte { return b }, manifest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.encode(t, manifest)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Accept-Encoding"); got != acceptEncoding {
					t.Errorf("Accept-Encoding = %q, want %q", got, acceptEncoding)
				}
				if tt.header != "" {
					w.Header().Set("Content-Encoding", tt.header)
				}
				_, _ = w.Write(body)
			}))
			defer server.Close()

			client := &http.Client{Transport: newDecodingTransport(nil)}
			resp, err := client.Get(server.URL)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			defer resp.Body.Close()

			got, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("body = %q, want %q", got, tt.expected)
			}
			if tt.header != "" && resp.Header.Get("Content-Encoding") != "" {
				t.Errorf("expected Content-Encoding to be removed, got %q", resp.Header.Get("Content-Encoding"))
			}
		})
	}
}

func TestDecodingTransport_PreservesCallerAcceptEncoding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Encoding"); got != "identity" {
			t.Errorf("Accept-Encoding = %q, want identity", got)
		}
		_, _ = w.Write([]byte("raw"))
	}))
	defer server.Close()

	req, _ := http.NewRequest(http.MethodGet, server.URL, nil)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := (&http.Client{Transport: newDecodingTransport(nil)}).Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if got, _ := io.ReadAll(resp.Body); string(got) != "raw" {
		t.Errorf("body = %q, want raw", got)
	}
}

func TestDecodingTransport_UnknownEncodingPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "compress")
		_, _ = w.Write([]byte("opaque"))
	}))
	defer server.Close()

	resp, err := (&http.Client{Transport: newDecodingTransport(nil)}).Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Encoding") != "compress" {
		t.Errorf("expected Content-Encoding to be kept for unknown coding")
	}
	if got, _ := io.ReadAll(resp.Body); string(got) != "opaque" {
		t.Errorf("body = %q, want opaque", got)
	}
}

func TestDecodingTransport_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := (&http.Client{Transport: newDecodingTransport(nil)}).Get(server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("StatusCode = %d, want 204", resp.StatusCode)
	}
}

func TestOutermostEncoding(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"":             "",
		"gzip":         "gzip",
		" Br ":         "br",
		"gzip, zstd":   "zstd",
		"gzip,br,":     "",
		"deflate,gzip": "gzip",
	}
	for header, want := range tests {
		if got := outermostEncoding(header); got != want {
			t.Errorf("outermostEncoding(%q) = %q, want %q", header, got, want)
		}
	}
}
