package session

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxFileSize is the upload ceiling; larger files are rejected before any
// network call.
const MaxFileSize = 25 << 20 // 25 MiB

// ErrFileTooLarge is returned when an attached file exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("session: file exceeds 25 MiB limit")

// FileUpload is a file the visitor wants to attach.
type FileUpload struct {
	Name     string
	Size     int64
	MimeType string
	Content  io.Reader
}

// IsImage reports whether the file should get a local preview.
func (f FileUpload) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.MimeType), "image/")
}

// PreviewFunc creates a local preview resource for an image file and
// returns its URL plus a release function. The controller guarantees
// release is called exactly once per created preview.
type PreviewFunc func(f FileUpload) (url string, release func())

// Attachment is a pending upload attached to the composer.
type Attachment struct {
	Name       string
	Size       int64
	MimeType   string
	MediaID    string // set once the upload succeeds
	PreviewURL string

	release  func()
	released bool
}

// Uploaded reports whether the server accepted the file.
func (a *Attachment) Uploaded() bool {
	return a != nil && a.MediaID != ""
}

// releasePreview frees the preview resource at most once. Callers must
// hold the controller lock.
func (a *Attachment) releasePreview() {
	if a.release != nil && !a.released {
		a.released = true
		a.release()
	}
}

// FormatSize renders a byte count for composer display.
func FormatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%d KB", bytes/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}
