package models

// SegmentRef is one media segment referenced by a playlist.
// Index is the zero-based position of the segment line among the
// non-comment, non-empty lines of the playlist. URL is always absolute.
type SegmentRef struct {
	Index int
	URL   string
}

// SegmentFile is a downloaded segment stored inside an episode directory.
type SegmentFile struct {
	Index int
	Path  string
	Size  int64 // Number of bytes written, zero is valid
}

// MergedVideo is the concatenation of every segment of an episode.
type MergedVideo struct {
	Path     string
	Size     int64
	Segments int // Number of segments appended
}
