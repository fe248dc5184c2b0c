package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Belphemur/HlsGrab/internal/cache"
	"github.com/Belphemur/HlsGrab/internal/client"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/coordinator"
	"github.com/Belphemur/HlsGrab/internal/metrics"
	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/Belphemur/HlsGrab/internal/pipeline"
	"github.com/Belphemur/HlsGrab/internal/playlist"
	"github.com/Belphemur/HlsGrab/internal/resolver"
	"github.com/Belphemur/HlsGrab/internal/segment"
	"github.com/dustin/go-humanize"
)

// app holds the components built from one resolved configuration.
type app struct {
	cfg           *config.Config
	pipeline      *pipeline.Pipeline
	manifests     cache.Cache
	reporter      *reporter
	metricsServer *http.Server
}

func newApp(cfg *config.Config, showProgress bool) (*app, error) {
	logger := config.GetLogger()

	manifests, err := cache.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	rep, err := newReporter(cfg)
	if err != nil {
		_ = manifests.Close()
		return nil, err
	}

	httpClient := client.NewHTTPClient(cfg)
	retrier := client.NewRetrier(client.RetryConfigFrom(cfg))

	playlists := playlist.NewFetcher(httpClient, retrier, manifests)
	segments := segment.NewFetcher(httpClient, segment.Options{
		Retrier: retrier,
		Limiter: segment.NewLimiter(cfg.RequestsPerSecond),
	})
	coord := coordinator.New(segments, cfg.Concurrency)

	opts := pipeline.Options{
		KeepSegments: cfg.KeepSegments,
		Resolver:     resolver.New(httpClient, retrier),
	}
	if showProgress {
		bars := &progress{}
		opts.OnSegments = bars.start
		coord.OnSegmentDone = bars.add
	}

	a := &app{
		cfg:       cfg,
		pipeline:  pipeline.New(cfg.MediaRoot, playlists, coord, opts),
		manifests: manifests,
		reporter:  rep,
	}

	if cfg.Metrics.Enabled {
		a.metricsServer = metrics.NewHTTPServer(cfg.Metrics.Address, cfg.Metrics.Port)
		go func() {
			logger.Info().Str("address", a.metricsServer.Addr).Msg("Starting Prometheus metrics HTTP server")
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Failed to serve metrics")
			}
		}()
	}

	logger.Info().
		Str("media_root", cfg.MediaRoot).
		Str("anime", cfg.AnimeName).
		Int("concurrency", cfg.Concurrency).
		Str("cache", cfg.Cache.Type).
		Bool("keep_segments", cfg.KeepSegments).
		Msg("Application started with configuration")
	return a, nil
}

func (a *app) processEpisode(ctx context.Context, ep models.EpisodeDescriptor) (models.EpisodeResult, error) {
	result, err := a.pipeline.ProcessEpisode(ctx, a.cfg.AnimeName, ep)
	if err != nil {
		a.reporter.episodeFailed(a.cfg.AnimeName, ep, err)
		return result, err
	}
	logEpisode(result)
	return result, nil
}

func (a *app) processAnime(ctx context.Context) error {
	logger := config.GetLogger()
	if len(a.cfg.Episodes) == 0 {
		return fmt.Errorf("no episodes configured")
	}

	anime := models.AnimeDescriptor{Name: a.cfg.AnimeName, Episodes: a.cfg.Episodes}
	failed, done := 0, 0
	for res := range a.pipeline.StreamAnime(ctx, anime) {
		done++
		if res.Err != nil {
			failed++
			a.reporter.episodeFailed(anime.Name, res.Value.Episode, res.Err)
			continue
		}
		logEpisode(res.Value)
	}
	if err := ctx.Err(); err != nil {
		logger.Warn().Int("processed", done).Int("total", len(anime.Episodes)).Msg("Interrupted")
		return err
	}

	logger.Info().Int("succeeded", done-failed).Int("failed", failed).Msg("Batch finished")
	if failed > 0 {
		return fmt.Errorf("%d of %d episodes failed", failed, len(anime.Episodes))
	}
	return nil
}

func (a *app) remerge(episode string) error {
	video, err := a.pipeline.Remerge(a.cfg.AnimeName, episode)
	if err != nil {
		a.reporter.episodeFailed(a.cfg.AnimeName, models.EpisodeDescriptor{Name: episode}, err)
		return err
	}
	logger := config.GetLogger()
	logger.Info().Str("output", video.Path).Int("segments", video.Segments).Str("size", humanize.IBytes(uint64(video.Size))).Msg("Episode re-merged")
	return nil
}

// Close stops the metrics server, flushes error reports and closes the cache.
// It is safe to call on a nil app.
func (a *app) Close() {
	if a == nil {
		return
	}
	logger := config.GetLogger()

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsServer.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown metrics server")
		}
	}
	a.reporter.flush()
	if err := a.manifests.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close manifest cache")
	}
}

func logEpisode(result models.EpisodeResult) {
	logger := config.GetLogger()
	logger.Info().
		Str("episode", result.Episode.Name).
		Str("output", result.Video.Path).
		Int("segments", result.Video.Segments).
		Str("size", humanize.IBytes(uint64(result.Video.Size))).
		Dur("took", result.Duration).
		Msg("Episode saved")
}
