package main

import (
	"time"

	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/getsentry/sentry-go"
)

// sentryTransport replaces the HTTP transport of the Sentry client when set.
var sentryTransport sentry.Transport

// reporter sends failed episodes to Sentry when a DSN is configured.
type reporter struct {
	enabled bool
}

func newReporter(cfg *config.Config) (*reporter, error) {
	if cfg.Sentry.DSN == "" {
		return &reporter{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Transport:   sentryTransport,
	})
	if err != nil {
		return nil, err
	}
	return &reporter{enabled: true}, nil
}

func (r *reporter) episodeFailed(anime string, ep models.EpisodeDescriptor, err error) {
	if r == nil || !r.enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("anime", anime)
		scope.SetTag("episode", ep.Name)
		scope.SetContext("episode", sentry.Context{
			"playlist_url": ep.PlaylistURL,
			"source_url":   ep.SourceURL,
		})
		sentry.CaptureException(err)
	})
}

func (r *reporter) flush() {
	if r == nil || !r.enabled {
		return
	}
	sentry.Flush(2 * time.Second)
}
