// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// ManifestPath is the path the fixture serves its media playlist under.
const ManifestPath = "/hls/index.m3u8"

// HLSServer serves a media playlist and its segments. Segment i is served at
// /hls/seg<i>.ts and listed in the manifest by that relative name.
type HLSServer struct {
	*httptest.Server

	mu          sync.Mutex
	manifest    string
	segments    map[string][]byte
	failures    map[string]failure
	hits        map[string]int
	delay       time.Duration
	inflight    int
	maxInflight int
}

type failure struct {
	status    int
	remaining int // -1 fails forever
}

// NewHLSServer starts a server for the given segment bodies. It is closed
// when the test finishes.
func NewHLSServer(t testing.TB, segments [][]byte) *HLSServer {
	t.Helper()

	s := &HLSServer{
		segments: make(map[string][]byte, len(segments)),
		failures: make(map[string]failure),
		hits:     make(map[string]int),
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:10\n#EXT-X-MEDIA-SEQUENCE:100\n")
	for i, body := range segments {
		name := SegmentName(i)
		s.segments["/hls/"+name] = body
		b.WriteString("#EXTINF:10.0,\n")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	s.manifest = b.String()

	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// SegmentName returns the manifest entry of segment i.
func SegmentName(i int) string {
	return fmt.Sprintf("seg%d.ts", i)
}

// PlaylistURL returns the absolute URL of the media playlist.
func (s *HLSServer) PlaylistURL() string {
	return s.URL + ManifestPath
}

// SegmentURL returns the absolute URL of segment i.
func (s *HLSServer) SegmentURL(i int) string {
	return s.URL + "/hls/" + SegmentName(i)
}

// Manifest returns the playlist text served by the fixture.
func (s *HLSServer) Manifest() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manifest
}

// SetManifest replaces the playlist text.
func (s *HLSServer) SetManifest(manifest string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = manifest
}

// Fail makes the next times requests for path answer with status.
// A negative times fails every request.
func (s *HLSServer) Fail(path string, status, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if times < 0 {
		times = -1
	}
	s.failures[path] = failure{status: status, remaining: times}
}

// FailSegment is Fail for segment i.
func (s *HLSServer) FailSegment(i, status, times int) {
	s.Fail("/hls/"+SegmentName(i), status, times)
}

// SetDelay makes every segment response wait d before writing its body.
func (s *HLSServer) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hits returns the number of requests received for path.
func (s *HLSServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// MaxInflight returns the highest number of concurrent segment requests seen.
func (s *HLSServer) MaxInflight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInflight
}

func (s *HLSServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	if f, ok := s.failures[r.URL.Path]; ok && f.remaining != 0 {
		if f.remaining > 0 {
			f.remaining--
			s.failures[r.URL.Path] = f
		}
		s.mu.Unlock()
		http.Error(w, http.StatusText(f.status), f.status)
		return
	}

	if r.URL.Path == ManifestPath {
		manifest := s.manifest
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		_, _ = w.Write([]byte(manifest))
		return
	}

	body, ok := s.segments[r.URL.Path]
	if !ok {
		s.mu.Unlock()
		http.NotFound(w, r)
		return
	}
	delay := s.delay
	s.inflight++
	if s.inflight > s.maxInflight {
		s.maxInflight = s.inflight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "video/mp2t")
	_, _ = w.Write(body)
}

// SegmentBodies returns n distinct segment payloads of increasing size.
func SegmentBodies(n int) [][]byte {
	bodies := make([][]byte, n)
	for i := range bodies {
		bodies[i] = []byte(strings.Repeat(fmt.Sprintf("segment-%d;", i), i+1))
	}
	return bodies
}
