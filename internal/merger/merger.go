// Package merger concatenates downloaded segments into the episode video and
// removes the segments afterwards.
package merger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/Belphemur/HlsGrab/internal/metrics"
	"github.com/Belphemur/HlsGrab/internal/models"
	"github.com/Belphemur/HlsGrab/internal/segment"
	"github.com/dustin/go-humanize"
)

// Extension is the suffix of the merged video.
const Extension = ".mp4"

// partSuffix marks the output while it is being written.
const partSuffix = ".part"

// ErrNoSegments is returned by Merge when the directory holds no segment files.
var ErrNoSegments = errors.New("no segment files")

// OutputName returns the file name of the merged video of an episode.
func OutputName(episodeName string) string {
	return episodeName + Extension
}

// ListSegments returns the segment files in dir sorted by ascending index.
// Directory listing order is never relied upon.
func ListSegments(dir string) ([]models.SegmentFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.NewFileIOError("list", dir, err)
	}

	files := make([]models.SegmentFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		index, ok := segment.IndexFromName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, apperrors.NewFileIOError("stat", filepath.Join(dir, entry.Name()), err)
		}
		files = append(files, models.SegmentFile{
			Index: index,
			Path:  filepath.Join(dir, entry.Name()),
			Size:  info.Size(),
		})
	}

	slices.SortFunc(files, func(a, b models.SegmentFile) int {
		return a.Index - b.Index
	})
	return files, nil
}

// Merge concatenates every segment file of episodeDir, in ascending index
// order, into episodeDir/<episodeName>.mp4. The output is written to a
// temporary file and renamed into place only once complete, so a failed merge
// leaves any previous output untouched. Merging the same segments twice
// produces identical bytes.
func Merge(episodeDir, episodeName string) (video models.MergedVideo, err error) {
	logger := config.GetLogger()
	output := filepath.Join(episodeDir, OutputName(episodeName))

	start := time.Now()
	defer func() {
		metrics.MergesTotal.WithLabelValues(metrics.Status(err)).Inc()
		if err == nil {
			metrics.MergeDuration.Observe(time.Since(start).Seconds())
		}
	}()

	files, err := ListSegments(episodeDir)
	if err != nil {
		return models.MergedVideo{}, apperrors.NewMergeError(output, err)
	}
	if len(files) == 0 {
		return models.MergedVideo{}, apperrors.NewMergeError(output, ErrNoSegments)
	}
	if last := files[len(files)-1].Index; last != len(files)-1 {
		logger.Warn().Str("dir", episodeDir).Int("segments", len(files)).Int("last_index", last).Msg("Segment indexes are not contiguous")
	}

	size, err := writeAtomically(output, files)
	if err != nil {
		logger.Error().Err(err).Str("output", output).Msg("Failed to merge segments")
		return models.MergedVideo{}, apperrors.NewMergeError(output, err)
	}

	logger.Info().
		Str("output", output).
		Int("segments", len(files)).
		Str("size", humanize.IBytes(uint64(size))).
		Dur("took", time.Since(start)).
		Msg("Segments merged")

	return models.MergedVideo{Path: output, Size: size, Segments: len(files)}, nil
}

func writeAtomically(output string, files []models.SegmentFile) (size int64, err error) {
	tmp := output + partSuffix
	out, err := os.Create(tmp)
	if err != nil {
		return 0, apperrors.NewFileIOError("create", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(tmp)
		}
	}()

	buf := make([]byte, segment.ChunkSize)
	for _, f := range files {
		n, err := appendFile(out, f.Path, buf)
		if err != nil {
			return 0, err
		}
		size += n
	}

	if err := out.Sync(); err != nil {
		return 0, apperrors.NewFileIOError("sync", tmp, err)
	}
	if err := out.Close(); err != nil {
		return 0, apperrors.NewFileIOError("close", tmp, err)
	}
	if err := os.Rename(tmp, output); err != nil {
		return 0, apperrors.NewFileIOError("rename", output, err)
	}
	return size, nil
}

func appendFile(dst io.Writer, path string, buf []byte) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, apperrors.NewFileIOError("open", path, err)
	}
	defer src.Close()

	n, err := io.CopyBuffer(dst, src, buf)
	if err != nil {
		return n, fmt.Errorf("append %s: %w", path, err)
	}
	return n, nil
}

// Purge deletes every segment file in episodeDir. A file that disappears
// before it can be removed is an error.
func Purge(episodeDir string) error {
	logger := config.GetLogger()

	files, err := ListSegments(episodeDir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil {
			return apperrors.NewFileIOError("remove", f.Path, err)
		}
	}

	logger.Info().Str("dir", episodeDir).Int("removed", len(files)).Msg("Segment files purged")
	return nil
}
