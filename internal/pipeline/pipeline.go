// Package pipeline processes whole episodes: folder setup, playlist fetch and
// parse, segment download, merge and cleanup.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/coordinator"
	"github.com/Belphemur/HlsGrab/internal/folder"
	"github.com/Belphemur/HlsGrab/internal/merger"
	"github.com/Belphemur/HlsGrab/internal/metrics"
	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/Belphemur/HlsGrab/internal/playlist"
	"github.com/Belphemur/HlsGrab/internal/resolver"
	"github.com/google/uuid"
)

// Options holds the optional parts of a Pipeline.
type Options struct {
	// KeepSegments skips the purge after a successful merge.
	KeepSegments bool
	// Resolver finds the playlist of episodes that only carry a SourceURL.
	Resolver *resolver.Resolver
	// OnSegments is called once the playlist of an episode is parsed, with
	// the number of segments about to be downloaded.
	OnSegments func(ep models.EpisodeDescriptor, total int)
}

// Pipeline runs episodes one at a time. Each episode directory must only be
// processed by one Pipeline at a time.
type Pipeline struct {
	mediaRoot   string
	playlists   *playlist.Fetcher
	coordinator *coordinator.Coordinator
	opts        Options
}

// New creates a Pipeline writing below mediaRoot.
func New(mediaRoot string, playlists *playlist.Fetcher, coord *coordinator.Coordinator, opts Options) *Pipeline {
	return &Pipeline{
		mediaRoot:   mediaRoot,
		playlists:   playlists,
		coordinator: coord,
		opts:        opts,
	}
}

// ProcessEpisode downloads and merges one episode of anime. The first failing
// stage aborts the episode and its typed error is returned as-is; the episode
// directory is then left as that stage found it.
func (p *Pipeline) ProcessEpisode(ctx context.Context, anime string, ep models.EpisodeDescriptor) (result models.EpisodeResult, err error) {
	runID := uuid.NewString()
	baseLogger := config.GetLogger()
	logger := baseLogger.With().Str("run_id", runID).Str("anime", anime).Str("episode", ep.Name).Logger()

	start := time.Now()
	defer func() {
		metrics.EpisodesTotal.WithLabelValues(metrics.Status(err)).Inc()
		if err != nil {
			logger.Error().Err(err).Dur("took", time.Since(start)).Msg("Episode failed")
		}
	}()

	folders, err := folder.NewManager(p.mediaRoot, anime)
	if err != nil {
		return models.EpisodeResult{}, err
	}
	dir, err := folders.EnsureEpisodeFolder(ep.Name)
	if err != nil {
		return models.EpisodeResult{}, err
	}

	playlistURL, err := p.playlistURL(ctx, ep)
	if err != nil {
		return models.EpisodeResult{}, err
	}

	manifest, err := p.playlists.Fetch(ctx, playlistURL)
	if err != nil {
		return models.EpisodeResult{}, err
	}
	manifestPath := filepath.Join(dir, playlist.ManifestName(manifest.URL))
	if err := playlist.Persist(manifestPath, manifest.Raw); err != nil {
		return models.EpisodeResult{}, err
	}
	pl, err := playlist.New(manifestPath, manifest.URL)
	if err != nil {
		return models.EpisodeResult{}, err
	}
	refs, err := pl.Refs()
	if err != nil {
		return models.EpisodeResult{}, err
	}
	if len(refs) == 0 {
		return models.EpisodeResult{}, apperrors.NewConstructionError("playlist", "no segments in "+manifest.URL)
	}
	logger.Info().Int("segments", len(refs)).Str("manifest", manifestPath).Msg("Playlist parsed")

	// Segments left over from an earlier attempt would otherwise be merged.
	if err := merger.Purge(dir); err != nil {
		return models.EpisodeResult{}, err
	}

	if p.opts.OnSegments != nil {
		p.opts.OnSegments(ep, len(refs))
	}
	if err := p.coordinator.Run(ctx, refs, dir); err != nil {
		return models.EpisodeResult{}, err
	}

	video, err := merger.Merge(dir, filepath.Base(dir))
	if err != nil {
		return models.EpisodeResult{}, err
	}

	purged := false
	if !p.opts.KeepSegments {
		if err := merger.Purge(dir); err != nil {
			return models.EpisodeResult{}, err
		}
		purged = true
	}

	result = models.EpisodeResult{
		Episode:  ep,
		RunID:    runID,
		Dir:      dir,
		Video:    video,
		Duration: time.Since(start),
		Purged:   purged,
	}
	logger.Info().Str("output", video.Path).Dur("took", result.Duration).Msg("Episode completed")
	return result, nil
}

// StreamAnime processes the episodes of anime in order and sends one result
// per episode; Value.Episode is set even for failures. A failed episode does
// not stop the following ones. The channel
// is closed when every episode was processed or ctx is cancelled.
func (p *Pipeline) StreamAnime(ctx context.Context, anime models.AnimeDescriptor) <-chan models.StreamResult[models.EpisodeResult] {
	results := make(chan models.StreamResult[models.EpisodeResult])

	go func() {
		defer close(results)
		logger := config.GetLogger()

		for _, ep := range anime.Episodes {
			if ctx.Err() != nil {
				return
			}
			result, err := p.ProcessEpisode(ctx, anime.Name, ep)
			result.Episode = ep
			select {
			case results <- models.StreamResult[models.EpisodeResult]{Value: result, Err: err}:
			case <-ctx.Done():
				return
			}
		}
		logger.Info().Str("anime", anime.Name).Int("episodes", len(anime.Episodes)).Msg("Finished processing anime")
	}()

	return results
}

// Remerge rebuilds the video of an already downloaded episode from the
// segments on disk, then purges them unless segments are kept.
func (p *Pipeline) Remerge(anime, episodeName string) (models.MergedVideo, error) {
	folders, err := folder.NewManager(p.mediaRoot, anime)
	if err != nil {
		return models.MergedVideo{}, err
	}
	dir := folders.EpisodeDir(episodeName)
	if dir == "" {
		return models.MergedVideo{}, apperrors.NewConstructionError("episode name", "invalid name "+episodeName)
	}

	video, err := merger.Merge(dir, filepath.Base(dir))
	if err != nil {
		return models.MergedVideo{}, err
	}
	if !p.opts.KeepSegments {
		if err := merger.Purge(dir); err != nil {
			return models.MergedVideo{}, err
		}
	}
	return video, nil
}

func (p *Pipeline) playlistURL(ctx context.Context, ep models.EpisodeDescriptor) (string, error) {
	if ep.PlaylistURL != "" {
		return ep.PlaylistURL, nil
	}
	if ep.SourceURL == "" {
		return "", apperrors.NewConstructionError("episode", ep.Name+" has neither a playlist nor a source URL")
	}
	if p.opts.Resolver == nil {
		return "", apperrors.NewConstructionError("episode", ep.Name+" has no playlist URL and page resolution is disabled")
	}
	return p.opts.Resolver.Resolve(ctx, ep.SourceURL)
}
