package segment

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/client"
	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/Belphemur/HlsGrab/internal/testutil"
)

func newTestFetcher(srv *testutil.HLSServer, maxRetries int) *Fetcher {
	return NewFetcher(srv.Client(), Options{
		Retrier: client.NewRetrier(client.RetryConfig{MaxRetries: maxRetries, InitialBackoff: time.Millisecond}),
	})
}

func TestFetcher_Download(t *testing.T) {
	t.Parallel()

	bodies := [][]byte{
		[]byte("first"),
		bytes.Repeat([]byte{0x47}, 3*ChunkSize+17),
	}
	srv := testutil.NewHLSServer(t, bodies)
	f := newTestFetcher(srv, 0)
	dir := t.TempDir()

	for i, body := range bodies {
		ref := models.SegmentRef{Index: i, URL: srv.SegmentURL(i)}
		file, err := f.Download(context.Background(), ref, dir)
		if err != nil {
			t.Fatalf("Download(%d): %v", i, err)
		}
		if file.Index != i {
			t.Errorf("Expected index %d, got %d", i, file.Index)
		}
		if want := filepath.Join(dir, FileName(i)); file.Path != want {
			t.Errorf("Expected path %q, got %q", want, file.Path)
		}
		if file.Size != int64(len(body)) {
			t.Errorf("Expected size %d, got %d", len(body), file.Size)
		}
		got, err := os.ReadFile(file.Path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if !bytes.Equal(got, body) {
			t.Errorf("segment %d content mismatch: got %d bytes, want %d", i, len(got), len(body))
		}
	}
}

func TestFetcher_Download_ZeroLength(t *testing.T) {
	t.Parallel()

	srv := testutil.NewHLSServer(t, [][]byte{{}})
	f := newTestFetcher(srv, 0)
	dir := t.TempDir()

	file, err := f.Download(context.Background(), models.SegmentRef{Index: 0, URL: srv.SegmentURL(0)}, dir)
	if err != nil {
		t.Fatalf("Expected zero-length body to succeed, got %v", err)
	}
	if file.Size != 0 {
		t.Errorf("Expected size 0, got %d", file.Size)
	}
	info, err := os.Stat(filepath.Join(dir, "0.ts"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Expected empty file, got %d bytes", info.Size())
	}
}

func TestFetcher_Download_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := testutil.NewHLSServer(t, testutil.SegmentBodies(2))
	srv.FailSegment(1, http.StatusForbidden, -1)
	f := newTestFetcher(srv, 3)
	dir := t.TempDir()

	_, err := f.Download(context.Background(), models.SegmentRef{Index: 1, URL: srv.SegmentURL(1)}, dir)

	var segErr *apperrors.SegmentDownloadError
	if !errors.As(err, &segErr) {
		t.Fatalf("Expected SegmentDownloadError, got %v", err)
	}
	if segErr.Index != 1 || segErr.URL != srv.SegmentURL(1) {
		t.Errorf("Unexpected error fields %+v", segErr)
	}
	var statusErr *client.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("Expected wrapped 403 status, got %v", err)
	}
	if hits := srv.Hits("/hls/" + testutil.SegmentName(1)); hits != 1 {
		t.Errorf("Expected 403 not to be retried, got %d requests", hits)
	}
	if _, err := os.Stat(filepath.Join(dir, "1.ts")); !os.IsNotExist(err) {
		t.Errorf("Expected no segment file after failure, stat err = %v", err)
	}
}

func TestFetcher_Download_RetriesTransientFailure(t *testing.T) {
	t.Parallel()

	bodies := testutil.SegmentBodies(1)
	srv := testutil.NewHLSServer(t, bodies)
	srv.FailSegment(0, http.StatusTooManyRequests, 2)
	f := newTestFetcher(srv, 3)
	dir := t.TempDir()

	file, err := f.Download(context.Background(), models.SegmentRef{Index: 0, URL: srv.SegmentURL(0)}, dir)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if hits := srv.Hits("/hls/" + testutil.SegmentName(0)); hits != 3 {
		t.Errorf("Expected 3 requests, got %d", hits)
	}
	got, _ := os.ReadFile(file.Path)
	if !bytes.Equal(got, bodies[0]) {
		t.Errorf("Expected body written once, got %q", got)
	}
}

func TestFetcher_Download_MissingDestination(t *testing.T) {
	t.Parallel()

	srv := testutil.NewHLSServer(t, testutil.SegmentBodies(1))
	f := newTestFetcher(srv, 3)
	dir := filepath.Join(t.TempDir(), "absent")

	_, err := f.Download(context.Background(), models.SegmentRef{Index: 0, URL: srv.SegmentURL(0)}, dir)
	if !errors.Is(err, &apperrors.SegmentDownloadError{}) {
		t.Fatalf("Expected SegmentDownloadError, got %v", err)
	}
	var fileErr *apperrors.FileIOError
	if !errors.As(err, &fileErr) {
		t.Errorf("Expected wrapped FileIOError, got %v", err)
	}
	if hits := srv.Hits("/hls/" + testutil.SegmentName(0)); hits != 0 {
		t.Errorf("Expected no request when the file cannot be created, got %d", hits)
	}
}

func TestFetcher_Download_RateLimited(t *testing.T) {
	t.Parallel()

	srv := testutil.NewHLSServer(t, testutil.SegmentBodies(3))
	f := NewFetcher(srv.Client(), Options{Limiter: NewLimiter(20)})
	dir := t.TempDir()

	for i := range 3 {
		if _, err := f.Download(context.Background(), models.SegmentRef{Index: i, URL: srv.SegmentURL(i)}, dir); err != nil {
			t.Fatalf("Download(%d): %v", i, err)
		}
	}
}

func TestNewLimiter(t *testing.T) {
	t.Parallel()

	if NewLimiter(0) != nil {
		t.Error("Expected nil limiter for 0 requests per second")
	}
	if NewLimiter(-1) != nil {
		t.Error("Expected nil limiter for negative rate")
	}
	l := NewLimiter(2.5)
	if l == nil {
		t.Fatal("Expected limiter for positive rate")
	}
	if l.Burst() != 3 {
		t.Errorf("Expected burst 3, got %d", l.Burst())
	}
}
