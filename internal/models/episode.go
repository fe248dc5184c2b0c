package models

import "time"

// EpisodeDescriptor identifies one episode to download.
// It is produced by whatever layer discovers episode pages; PlaylistURL may be
// empty when only the episode page (SourceURL) is known.
type EpisodeDescriptor struct {
	Name        string `mapstructure:"name"`
	SourceURL   string `mapstructure:"source_url"`
	PlaylistURL string `mapstructure:"playlist_url"`
}

// AnimeDescriptor groups the episodes stored under one anime folder.
type AnimeDescriptor struct {
	Name     string
	Episodes []EpisodeDescriptor
}

// EpisodeResult summarizes a successfully processed episode
type EpisodeResult struct {
	Episode  EpisodeDescriptor
	RunID    string
	Dir      string
	Video    MergedVideo
	Duration time.Duration
	Purged   bool
}
