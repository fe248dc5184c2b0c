// Package coordinator downloads every segment of a playlist with a bounded
// number of concurrent fetches.
package coordinator

import (
	"context"
	"errors"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/models"
	"golang.org/x/sync/errgroup"
)

var errNotDownloaded = errors.New("segment was not downloaded")

// Downloader fetches a single segment into destDir.
type Downloader interface {
	Download(ctx context.Context, ref models.SegmentRef, destDir string) (models.SegmentFile, error)
}

// Coordinator runs segment downloads through a fixed-size pool.
type Coordinator struct {
	downloader  Downloader
	concurrency int

	// OnSegmentDone, when set, is called after each successful download.
	// It may be called from several goroutines at once.
	OnSegmentDone func(models.SegmentFile)
}

// New creates a Coordinator allowing at most concurrency downloads in flight.
// Values below 1 are treated as 1.
func New(downloader Downloader, concurrency int) *Coordinator {
	return &Coordinator{
		downloader:  downloader,
		concurrency: max(1, concurrency),
	}
}

// Concurrency returns the upper bound on in-flight downloads.
func (c *Coordinator) Concurrency() int { return c.concurrency }

// Run downloads every ref into destDir. Fetch order is unspecified. The first
// failure stops scheduling further downloads, cancels those in flight and is
// returned once every started download has returned. A nil error means each
// ref has a complete file in destDir.
func (c *Coordinator) Run(ctx context.Context, refs []models.SegmentRef, destDir string) error {
	logger := config.GetLogger()
	logger.Debug().Int("segments", len(refs)).Int("concurrency", c.concurrency).Str("dir", destDir).Msg("Downloading segments")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	done := make([]bool, len(refs))
	for i, ref := range refs {
		// Go blocks while the pool is full; stop scheduling once a download failed.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			file, err := c.downloader.Download(gctx, ref, destDir)
			if err != nil {
				return err
			}
			done[i] = true
			if c.OnSegmentDone != nil {
				c.OnSegmentDone(file)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Str("dir", destDir).Msg("Segment download aborted")
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := missingSegment(refs, done); err != nil {
		return err
	}

	logger.Info().Int("segments", len(refs)).Str("dir", destDir).Msg("All segments downloaded")
	return nil
}

// missingSegment reports the first ref whose download never completed.
func missingSegment(refs []models.SegmentRef, done []bool) error {
	for i, ok := range done {
		if !ok {
			return apperrors.NewSegmentDownloadError(refs[i].Index, refs[i].URL, errNotDownloaded)
		}
	}
	return nil
}
