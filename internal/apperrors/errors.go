package apperrors

import "fmt"

// ConstructionError is returned when an object is created from malformed input,
// such as a manifest path without the .m3u8 suffix or a master playlist.
type ConstructionError struct {
	Subject string
	Reason  string
}

// Error implements the error interface.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Subject, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ConstructionError) Is(target error) bool {
	_, ok := target.(*ConstructionError)
	return ok
}

// NewConstructionError creates a new ConstructionError.
func NewConstructionError(subject, reason string) *ConstructionError {
	return &ConstructionError{Subject: subject, Reason: reason}
}

// FetchError is returned when an HTTP request for a manifest or page fails.
// StatusCode is zero when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Cause != nil:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Cause)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is allows for error checking with errors.Is().
func (e *FetchError) Is(target error) bool {
	_, ok := target.(*FetchError)
	return ok
}

// NewFetchError creates a new FetchError.
func NewFetchError(url string, statusCode int, cause error) *FetchError {
	return &FetchError{URL: url, StatusCode: statusCode, Cause: cause}
}

// SegmentDownloadError is returned when one segment cannot be fetched or written to disk.
type SegmentDownloadError struct {
	Index int
	URL   string
	Cause error
}

// Error implements the error interface.
func (e *SegmentDownloadError) Error() string {
	return fmt.Sprintf("segment %d (%s): %v", e.Index, e.URL, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *SegmentDownloadError) Unwrap() error {
	return e.Cause
}

// Is allows for error checking with errors.Is().
func (e *SegmentDownloadError) Is(target error) bool {
	_, ok := target.(*SegmentDownloadError)
	return ok
}

// NewSegmentDownloadError creates a new SegmentDownloadError.
func NewSegmentDownloadError(index int, url string, cause error) *SegmentDownloadError {
	return &SegmentDownloadError{Index: index, URL: url, Cause: cause}
}

// FileIOError is returned when a local file or directory operation fails.
type FileIOError struct {
	Op    string // "create", "read", "write", "remove", "mkdir", ...
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *FileIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *FileIOError) Unwrap() error {
	return e.Cause
}

// Is allows for error checking with errors.Is().
func (e *FileIOError) Is(target error) bool {
	_, ok := target.(*FileIOError)
	return ok
}

// NewFileIOError creates a new FileIOError.
func NewFileIOError(op, path string, cause error) *FileIOError {
	return &FileIOError{Op: op, Path: path, Cause: cause}
}

// MergeError is returned when segments cannot be concatenated into the output file.
type MergeError struct {
	Output string
	Cause  error
}

// Error implements the error interface.
func (e *MergeError) Error() string {
	return fmt.Sprintf("merge into %s: %v", e.Output, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *MergeError) Unwrap() error {
	return e.Cause
}

// Is allows for error checking with errors.Is().
func (e *MergeError) Is(target error) bool {
	_, ok := target.(*MergeError)
	return ok
}

// NewMergeError creates a new MergeError.
func NewMergeError(output string, cause error) *MergeError {
	return &MergeError{Output: output, Cause: cause}
}
