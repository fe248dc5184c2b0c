package segment

import (
	"context"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/client"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/metrics"
	"github.com/Belphemur/HlsGrab/internal/models"
	"golang.org/x/time/rate"
)

// ChunkSize is the size of the buffer a segment body is copied through.
const ChunkSize = 80 * 1024

// Options configures a Fetcher.
type Options struct {
	// Retrier retries transient failures. Nil means a single attempt.
	Retrier *client.Retrier
	// Limiter throttles segment requests. Nil means unlimited.
	Limiter *rate.Limiter
}

// Fetcher downloads segments. It is safe for concurrent use; each call to
// Download writes its own file.
type Fetcher struct {
	httpClient *http.Client
	retrier    *client.Retrier
	limiter    *rate.Limiter
	buffers    sync.Pool
}

// NewFetcher creates a Fetcher using httpClient for every request.
func NewFetcher(httpClient *http.Client, opts Options) *Fetcher {
	retrier := opts.Retrier
	if retrier == nil {
		retrier = client.NewRetrier(client.RetryConfig{})
	}
	return &Fetcher{
		httpClient: httpClient,
		retrier:    retrier,
		limiter:    opts.Limiter,
		buffers: sync.Pool{New: func() any {
			buf := make([]byte, ChunkSize)
			return &buf
		}},
	}
}

// NewLimiter returns a limiter allowing requestsPerSecond segment requests,
// or nil when requestsPerSecond is not positive.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), max(1, int(math.Ceil(requestsPerSecond))))
}

// Download fetches ref and streams its body to destDir/<index>.ts. A zero-length
// body yields a zero-length file. Any failure is returned as a
// *apperrors.SegmentDownloadError and no file is left behind.
func (f *Fetcher) Download(ctx context.Context, ref models.SegmentRef, destDir string) (models.SegmentFile, error) {
	metrics.InflightSegments.Inc()
	defer metrics.InflightSegments.Dec()

	path := filepath.Join(destDir, FileName(ref.Index))
	size, err := f.download(ctx, ref, path)
	metrics.SegmentsDownloadedTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		logger := config.GetLogger()
		logger.Debug().Err(err).Int("index", ref.Index).Str("url", ref.URL).Msg("Segment download failed")
		return models.SegmentFile{}, apperrors.NewSegmentDownloadError(ref.Index, ref.URL, err)
	}

	metrics.SegmentBytesTotal.Add(float64(size))
	return models.SegmentFile{Index: ref.Index, Path: path, Size: size}, nil
}

func (f *Fetcher) download(ctx context.Context, ref models.SegmentRef, path string) (size int64, err error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, apperrors.NewFileIOError("create", path, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = apperrors.NewFileIOError("close", path, closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	err = f.retrier.Run(ctx, func() error {
		// Each attempt starts from an empty file.
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return apperrors.NewFileIOError("seek", path, err)
		}
		if err := file.Truncate(0); err != nil {
			return apperrors.NewFileIOError("truncate", path, err)
		}
		n, err := f.fetchInto(ctx, ref.URL, file)
		size = n
		return err
	})
	return size, err
}

func (f *Fetcher) fetchInto(ctx context.Context, segmentURL string, file *os.File) (int64, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return 0, apperrors.NewConstructionError("segment url", err.Error())
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := client.CheckStatus(resp); err != nil {
		return 0, err
	}

	bufp := f.buffers.Get().(*[]byte)
	defer f.buffers.Put(bufp)

	return io.CopyBuffer(fileWriter{file}, resp.Body, *bufp)
}

// fileWriter tags write failures as local I/O errors so they are not retried.
// It also hides (*os.File).ReadFrom so io.CopyBuffer uses the pooled buffer.
type fileWriter struct {
	f *os.File
}

func (w fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, apperrors.NewFileIOError("write", w.f.Name(), err)
	}
	return n, nil
}
