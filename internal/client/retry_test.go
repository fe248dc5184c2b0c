package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"testing"
	"time"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/config"
)

var fastRetry = RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status 503", &StatusError{StatusCode: 503}, true},
		{"status 429", &StatusError{StatusCode: 429}, true},
		{"status 404", &StatusError{StatusCode: 404}, false},
		{"fetch error 502", apperrors.NewFetchError("u", 502, nil), true},
		{"fetch error 403", apperrors.NewFetchError("u", 403, nil), false},
		{"segment wrapping status", apperrors.NewSegmentDownloadError(1, "u", &StatusError{StatusCode: 500}), true},
		{"segment wrapping file io", apperrors.NewSegmentDownloadError(1, "u", apperrors.NewFileIOError("write", "p", fs.ErrPermission)), false},
		{"construction", apperrors.NewConstructionError("x", "y"), false},
		{"unexpected eof", fmt.Errorf("copy: %w", io.ErrUnexpectedEOF), true},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"dns timeout", &net.DNSError{IsTimeout: true}, true},
		{"dns not found", &net.DNSError{IsNotFound: true}, false},
		{"cancelled", fmt.Errorf("do: %w", context.Canceled), false},
		{"plain", errors.New("something"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetrier_RetryThenSuccess(t *testing.T) {
	r := NewRetrier(fastRetry)
	calls := 0
	err := r.Run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &StatusError{StatusCode: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetrier_NonRetryableStopsImmediately(t *testing.T) {
	r := NewRetrier(fastRetry)
	calls := 0
	want := apperrors.NewFetchError("http://host/a.m3u8", 404, nil)
	err := r.Run(context.Background(), func() error {
		calls++
		return want
	})
	if err != want {
		t.Errorf("expected the original error to be returned unwrapped, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetrier_ExhaustedReturnsLastError(t *testing.T) {
	r := NewRetrier(fastRetry)
	calls := 0
	var last error
	err := r.Run(context.Background(), func() error {
		calls++
		last = apperrors.NewSegmentDownloadError(0, "u", &StatusError{StatusCode: 502})
		return last
	})
	if calls != fastRetry.MaxRetries+1 {
		t.Errorf("expected %d calls, got %d", fastRetry.MaxRetries+1, calls)
	}
	if err != last {
		t.Errorf("expected last error unwrapped, got %T %v", err, err)
	}
}

func TestRetrier_ZeroRetries(t *testing.T) {
	r := NewRetrier(RetryConfig{})
	calls := 0
	err := r.Run(context.Background(), func() error {
		calls++
		return &StatusError{StatusCode: 503}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryConfigFrom(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retry.MaxRetries = 2
	cfg.Retry.InitialBackoff = "2s"
	cfg.Retry.MaxBackoff = "1s"

	rc := RetryConfigFrom(cfg)
	if rc.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", rc.MaxRetries)
	}
	if rc.InitialBackoff != 2*time.Second {
		t.Errorf("InitialBackoff = %v, want 2s", rc.InitialBackoff)
	}
	if rc.MaxBackoff != 2*time.Second {
		t.Errorf("MaxBackoff = %v, want clamped to 2s", rc.MaxBackoff)
	}

	empty := RetryConfigFrom(&config.Config{})
	if empty.InitialBackoff != DefaultRetryConfig.InitialBackoff || empty.MaxBackoff != DefaultRetryConfig.MaxBackoff {
		t.Errorf("expected default backoffs, got %+v", empty)
	}
}
