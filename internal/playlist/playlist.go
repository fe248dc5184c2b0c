// Package playlist fetches HLS media playlists, persists them verbatim and
// parses them into ordered segment references.
package playlist

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/url"
	"os"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/models"
)

// Extension is the required suffix of a persisted manifest.
const Extension = ".m3u8"

// DefaultManifestName is used when the playlist URL does not end in a manifest name.
const DefaultManifestName = "playlist" + Extension

// maxLineSize bounds a single manifest line.
const maxLineSize = 1 << 20

// Playlist is a persisted manifest together with the URL it was fetched from.
// Its segment references are derived once, on first use, from the file on disk.
type Playlist struct {
	path    string
	baseURL string
	refs    func() ([]models.SegmentRef, error)
}

// New wraps an already persisted manifest. path must end in ".m3u8" and
// baseURL must be an absolute URL.
func New(path, baseURL string) (*Playlist, error) {
	if err := checkManifestPath(path); err != nil {
		return nil, err
	}
	if _, err := parseBaseURL(baseURL); err != nil {
		return nil, err
	}

	p := &Playlist{path: path, baseURL: baseURL}
	p.refs = sync.OnceValues(func() ([]models.SegmentRef, error) {
		return Parse(p.path, p.baseURL)
	})
	return p, nil
}

// Path returns the location of the persisted manifest.
func (p *Playlist) Path() string { return p.path }

// BaseURL returns the URL segment references are resolved against.
func (p *Playlist) BaseURL() string { return p.baseURL }

// Refs returns the segment references of the playlist. The manifest is parsed
// on the first call; later calls return a copy of the same result.
func (p *Playlist) Refs() ([]models.SegmentRef, error) {
	refs, err := p.refs()
	if err != nil {
		return nil, err
	}
	return slices.Clone(refs), nil
}

// All re-reads the persisted manifest and yields its segment references.
// Each iteration starts from the beginning of the file.
func (p *Playlist) All() iter.Seq2[models.SegmentRef, error] {
	return func(yield func(models.SegmentRef, error) bool) {
		base, err := parseBaseURL(p.baseURL)
		if err != nil {
			yield(models.SegmentRef{}, err)
			return
		}
		f, err := os.Open(p.path)
		if err != nil {
			yield(models.SegmentRef{}, apperrors.NewFileIOError("open", p.path, err))
			return
		}
		defer f.Close()

		for ref, err := range Segments(f, base) {
			if !yield(ref, err) || err != nil {
				return
			}
		}
	}
}

// Persist writes raw to path verbatim, replacing any previous manifest.
func Persist(path string, raw []byte) error {
	if err := checkManifestPath(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return apperrors.NewFileIOError("write", path, err)
	}
	return nil
}

// Parse reads the manifest at path and returns its segment references with
// URLs resolved against baseURL.
func Parse(path, baseURL string) ([]models.SegmentRef, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewFileIOError("open", path, err)
	}
	defer f.Close()

	var refs []models.SegmentRef
	for ref, err := range Segments(f, base) {
		if err != nil {
			var lineErr *apperrors.ConstructionError
			if errors.As(err, &lineErr) {
				return nil, err
			}
			return nil, apperrors.NewFileIOError("read", path, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Segments yields one SegmentRef per non-blank line of r that does not start
// with '#'. Only a '#' in the first column marks a directive. Indexes count those lines from 0 in file order; sequence numbers
// carried by the manifest's own tags are ignored. Each line is resolved as a
// URI reference against base.
func Segments(r io.Reader, base *url.URL) iter.Seq2[models.SegmentRef, error] {
	return func(yield func(models.SegmentRef, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		index := 0
		for scanner.Scan() {
			raw := strings.TrimSuffix(scanner.Text(), "\r")
			if strings.HasPrefix(raw, "#") {
				continue
			}
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}

			ref, err := url.Parse(line)
			if err != nil {
				yield(models.SegmentRef{}, apperrors.NewConstructionError("segment uri", fmt.Sprintf("line %d: %v", index, err)))
				return
			}
			if !yield(models.SegmentRef{Index: index, URL: base.ResolveReference(ref).String()}, nil) {
				return
			}
			index++
		}
		if err := scanner.Err(); err != nil {
			yield(models.SegmentRef{}, err)
		}
	}
}

// ManifestName derives the on-disk manifest name from the last path element
// of playlistURL, falling back to DefaultManifestName.
func ManifestName(playlistURL string) string {
	u, err := url.Parse(playlistURL)
	if err != nil {
		return DefaultManifestName
	}
	name := path.Base(u.Path)
	if !strings.HasSuffix(name, Extension) || name == Extension {
		return DefaultManifestName
	}
	return name
}

func checkManifestPath(p string) error {
	if !strings.HasSuffix(p, Extension) {
		return apperrors.NewConstructionError("manifest path", fmt.Sprintf("%q must end in %s", p, Extension))
	}
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	base, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.NewConstructionError("playlist url", err.Error())
	}
	if !base.IsAbs() || base.Host == "" {
		return nil, apperrors.NewConstructionError("playlist url", fmt.Sprintf("%q is not an absolute URL", raw))
	}
	return base, nil
}
