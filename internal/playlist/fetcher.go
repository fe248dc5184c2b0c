package playlist

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/cache"
	"github.com/Belphemur/HlsGrab/internal/client"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/metrics"
	"github.com/grafov/m3u8"
)

// maxManifestSize bounds the bytes read from a playlist response.
const maxManifestSize = 16 << 20

// Manifest is a fetched playlist: its raw bytes and the URL they were served
// from after redirects. Segment references resolve against URL.
type Manifest struct {
	URL string
	Raw []byte
}

// Fetcher downloads playlists over HTTP.
type Fetcher struct {
	httpClient *http.Client
	retrier    *client.Retrier
	cache      cache.Cache
}

// NewFetcher creates a Fetcher. manifests may be nil to disable caching.
func NewFetcher(httpClient *http.Client, retrier *client.Retrier, manifests cache.Cache) *Fetcher {
	if retrier == nil {
		retrier = client.NewRetrier(client.RetryConfig{})
	}
	return &Fetcher{
		httpClient: httpClient,
		retrier:    retrier,
		cache:      manifests,
	}
}

// Fetch issues a GET for playlistURL and returns the manifest bytes verbatim.
// Network failures, timeouts and non-2xx statuses yield a *apperrors.FetchError.
// A master playlist yields a *apperrors.ConstructionError since its entries
// are variant streams, not media segments.
func (f *Fetcher) Fetch(ctx context.Context, playlistURL string) (Manifest, error) {
	logger := config.GetLogger()

	if f.cache != nil {
		if raw, ok := f.cache.Get(ctx, playlistURL); ok {
			metrics.PlaylistFetchesTotal.WithLabelValues(metrics.StatusCached).Inc()
			logger.Info().Str("url", playlistURL).Int("bytes", len(raw)).Msg("Playlist served from cache")
			return Manifest{URL: playlistURL, Raw: raw}, nil
		}
	}

	var manifest Manifest
	err := f.retrier.Run(ctx, func() error {
		m, err := f.fetchOnce(ctx, playlistURL)
		if err != nil {
			return err
		}
		manifest = m
		return nil
	})
	metrics.PlaylistFetchesTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		logger.Error().Err(err).Str("url", playlistURL).Msg("Failed to fetch playlist")
		return Manifest{}, err
	}

	if isMasterPlaylist(manifest.Raw) {
		return Manifest{}, apperrors.NewConstructionError("playlist", "master playlist at "+playlistURL+" lists variant streams, not segments")
	}

	// A redirected manifest is not cached: its segments resolve against the final URL.
	if f.cache != nil && manifest.URL == playlistURL {
		f.cache.Set(ctx, playlistURL, manifest.Raw)
	}

	logger.Info().Str("url", manifest.URL).Int("bytes", len(manifest.Raw)).Msg("Playlist fetched")
	return manifest, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, playlistURL string) (Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playlistURL, nil)
	if err != nil {
		return Manifest{}, apperrors.NewConstructionError("playlist url", err.Error())
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Manifest{}, apperrors.NewFetchError(playlistURL, 0, err)
	}
	defer resp.Body.Close()

	if err := client.CheckStatus(resp); err != nil {
		return Manifest{}, apperrors.NewFetchError(playlistURL, resp.StatusCode, nil)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize+1))
	if err != nil {
		return Manifest{}, apperrors.NewFetchError(playlistURL, 0, err)
	}
	if len(raw) > maxManifestSize {
		return Manifest{}, apperrors.NewConstructionError("playlist", "manifest exceeds 16 MiB")
	}

	finalURL := playlistURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return Manifest{URL: finalURL, Raw: raw}, nil
}

// isMasterPlaylist reports whether raw decodes as an HLS master playlist.
// Text that does not decode at all is left to the line parser.
func isMasterPlaylist(raw []byte) bool {
	_, listType, err := m3u8.DecodeFrom(bytes.NewReader(raw), false)
	return err == nil && listType == m3u8.MASTER
}
