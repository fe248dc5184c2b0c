package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	media := t.TempDir()
	t.Setenv("APP_MEDIA_ROOT", media)

	cfg, err := Load(writeConfig(t, "anime_name: Frieren\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MediaRoot != filepath.Clean(media) {
		t.Errorf("MediaRoot = %q, want %q", cfg.MediaRoot, media)
	}
	if cfg.AnimeName != "Frieren" {
		t.Errorf("AnimeName = %q, want Frieren", cfg.AnimeName)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.ClientTimeout != "60s" {
		t.Errorf("ClientTimeout = %q, want 60s", cfg.ClientTimeout)
	}
	if cfg.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q, want default", cfg.UserAgent)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Errorf("Retry.MaxRetries = %d, want 3", cfg.Retry.MaxRetries)
	}
	if cfg.Cache.Type != "memory" {
		t.Errorf("Cache.Type = %q, want memory", cfg.Cache.Type)
	}
}

func TestLoad_FileValuesAndEpisodes(t *testing.T) {
	media := t.TempDir()
	path := writeConfig(t, `
media_root: `+media+`
anime_name: Mushishi
concurrency: 3
keep_segments: true
retry:
  max_retries: 0
cache:
  type: none
episodes:
  - name: ep01
    playlist_url: http://cdn.example/ep01/index.m3u8
  - name: ep02
    source_url: http://site.example/watch/2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if !cfg.KeepSegments {
		t.Error("expected KeepSegments to be true")
	}
	if cfg.Retry.MaxRetries != 0 {
		t.Errorf("Retry.MaxRetries = %d, want 0", cfg.Retry.MaxRetries)
	}
	if len(cfg.Episodes) != 2 {
		t.Fatalf("expected 2 episodes, got %d", len(cfg.Episodes))
	}
	if cfg.Episodes[0].PlaylistURL != "http://cdn.example/ep01/index.m3u8" {
		t.Errorf("Episodes[0].PlaylistURL = %q", cfg.Episodes[0].PlaylistURL)
	}
	if cfg.Episodes[1].SourceURL != "http://site.example/watch/2" {
		t.Errorf("Episodes[1].SourceURL = %q", cfg.Episodes[1].SourceURL)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("APP_MEDIA_ROOT", t.TempDir())
	t.Setenv("APP_CONCURRENCY", "2")
	t.Setenv("APP_RETRY_MAX_RETRIES", "5")

	cfg, err := Load(writeConfig(t, "concurrency: 6\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2 from environment", cfg.Concurrency)
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("Retry.MaxRetries = %d, want 5 from environment", cfg.Retry.MaxRetries)
	}
}

func TestLoad_MediaRootFromXDG(t *testing.T) {
	media := t.TempDir()
	t.Setenv("XDG_VIDEOS_DIR", media)

	cfg, err := Load(writeConfig(t, "anime_name: x\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MediaRoot != filepath.Clean(media) {
		t.Errorf("MediaRoot = %q, want %q", cfg.MediaRoot, media)
	}
}

func TestLoad_InvalidConcurrency(t *testing.T) {
	t.Setenv("APP_MEDIA_ROOT", t.TempDir())

	if _, err := Load(writeConfig(t, "concurrency: 0\n")); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, true},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, true},
		{"unknown cache", func(c *Config) { c.Cache.Type = "memcached" }, true},
		{"redis cache", func(c *Config) { c.Cache.Type = "redis" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Concurrency: 1}
			c.Cache.Type = "memory"
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultMediaRoot_Home(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_VIDEOS_DIR", "")
	t.Setenv("HOME", home)

	root, err := DefaultMediaRoot()
	if err != nil {
		t.Fatalf("DefaultMediaRoot: %v", err)
	}
	if root != filepath.Join(home, "Videos") {
		t.Errorf("DefaultMediaRoot() = %q, want %q", root, filepath.Join(home, "Videos"))
	}
}
