// Package storage defines the backend contract for persisting uploaded
// documents and thumbnails. A backend stores a byte stream under a
// suggested name and returns a handle: an absolute local path for the
// local backend, a public URL for remote ones.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Artifact is the result of a successful Store call. Remote handles are
// fetchable only over HTTP(S), never as a local path.
type Artifact struct {
	Handle string
	Remote bool
}

// ErrorKind classifies storage failures.
type ErrorKind string

const (
	// IOFailure covers local disk errors: full disk, permissions, missing
	// directories.
	IOFailure ErrorKind = "io_failure"
	// RemoteFailure covers auth, quota and network errors against a remote
	// provider.
	RemoteFailure ErrorKind = "remote_failure"
)

// Error is the failure type returned by all backends.
type Error struct {
	Kind  ErrorKind
	Op    string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %s: %v", e.Op, e.Kind, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError wraps a cause into a storage Error.
func NewError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// IsKind reports whether err is a storage Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind == kind
	}
	return false
}

// Backend durably stores byte streams and deletes them by handle.
// Delete is best-effort from the caller's point of view: callers log
// failures and continue.
type Backend interface {
	// Store writes the stream under the suggested name and returns a
	// retrieval handle. size is a hint; backends that need the full length
	// up front may buffer.
	Store(ctx context.Context, r io.Reader, size int64, name string) (Artifact, error)

	// Delete removes a previously stored artifact. Deleting a missing
	// artifact is not an error.
	Delete(ctx context.Context, handle string) error
}

// IsRemoteHandle reports whether a stored handle points at a remote URL
// rather than a local file.
func IsRemoteHandle(handle string) bool {
	return strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://")
}

// ContentType determines the MIME type for an upload: content sniffing
// first, then a fixed fallback table keyed on the file extension.
func ContentType(head []byte, name string) string {
	if len(head) > 0 {
		if sniffed := http.DetectContentType(head); sniffed != "application/octet-stream" {
			return sniffed
		}
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
