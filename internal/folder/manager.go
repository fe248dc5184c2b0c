// Package folder owns the on-disk layout below the media root:
// <mediaRoot>/<animeName>/<episodeName>/.
package folder

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/config"
	"golang.org/x/text/unicode/norm"
)

// Manager resolves and creates the anime and episode directories.
// Its paths are fixed at construction time.
type Manager struct {
	mediaRoot string
	animeDir  string
}

// NewManager creates a Manager rooted at mediaRoot for the given anime.
// Names are NFC-normalized so that the same title typed on different systems
// maps to the same directory.
func NewManager(mediaRoot, animeName string) (*Manager, error) {
	if mediaRoot == "" {
		return nil, apperrors.NewConstructionError("media root", "must not be empty")
	}
	name, err := cleanName(animeName)
	if err != nil {
		return nil, apperrors.NewConstructionError("anime name", err.Error())
	}
	return &Manager{
		mediaRoot: mediaRoot,
		animeDir:  filepath.Join(mediaRoot, name),
	}, nil
}

// MediaRoot returns the root directory all anime folders live under.
func (m *Manager) MediaRoot() string {
	return m.mediaRoot
}

// AnimeDir returns the anime directory without creating it.
func (m *Manager) AnimeDir() string {
	return m.animeDir
}

// EpisodeDir returns the episode directory without creating it.
// An invalid name yields an empty string.
func (m *Manager) EpisodeDir(episodeName string) string {
	name, err := cleanName(episodeName)
	if err != nil {
		return ""
	}
	return filepath.Join(m.animeDir, name)
}

// EnsureAnimeFolder creates the anime directory if it is missing.
func (m *Manager) EnsureAnimeFolder() (string, error) {
	if err := ensureDir(m.animeDir); err != nil {
		return "", err
	}
	return m.animeDir, nil
}

// EnsureEpisodeFolder creates the anime and episode directories if they are missing.
func (m *Manager) EnsureEpisodeFolder(episodeName string) (string, error) {
	name, err := cleanName(episodeName)
	if err != nil {
		return "", apperrors.NewConstructionError("episode name", err.Error())
	}
	if _, err := m.EnsureAnimeFolder(); err != nil {
		return "", err
	}
	dir := filepath.Join(m.animeDir, name)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// ensureDir creates dir (and missing parents). An existing directory is not an error.
func ensureDir(dir string) error {
	logger := config.GetLogger()

	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		logger.Warn().Str("path", dir).Msg("Folder already exists")
		return nil
	case err == nil:
		return apperrors.NewFileIOError("mkdir", dir, errors.New("path exists and is not a directory"))
	case !errors.Is(err, fs.ErrNotExist):
		return apperrors.NewFileIOError("stat", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.NewFileIOError("mkdir", dir, err)
	}
	logger.Info().Str("path", dir).Msg("Folder created")
	return nil
}

// cleanName normalizes a single path element and rejects anything that would
// escape the parent directory.
func cleanName(name string) (string, error) {
	name = strings.TrimSpace(norm.NFC.String(name))
	switch {
	case name == "":
		return "", errors.New("must not be empty")
	case name == "." || name == "..":
		return "", errors.New("must not be a relative directory reference")
	case strings.ContainsAny(name, `/\`):
		return "", errors.New("must not contain path separators")
	case strings.ContainsRune(name, 0):
		return "", errors.New("must not contain NUL")
	}
	return name, nil
}
