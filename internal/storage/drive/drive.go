// Package drive implements the storage backend for Google Drive. One
// backend serves both authentication strategies; only the Authenticator
// differs.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/thuvien/thuvien/internal/storage"
)

const publicURLPrefix = "https://drive.google.com/uc?export=view&id="

// Backend uploads artifacts to Google Drive and exposes them as public
// view URLs. The authenticated service is built lazily on first use;
// sync.Once guarantees a single handshake under concurrent first use,
// which matters for the interactive OAuth strategy where two flows cannot
// share one callback receiver port.
type Backend struct {
	auth     Authenticator
	folderID string

	initOnce sync.Once
	svc      *driveapi.Service
	initErr  error
}

// New creates a Drive backend. folderID optionally parents all uploads.
func New(auth Authenticator, folderID string) *Backend {
	return &Backend{auth: auth, folderID: folderID}
}

func (b *Backend) service(ctx context.Context) (*driveapi.Service, error) {
	b.initOnce.Do(func() {
		client, err := b.auth.Client(ctx)
		if err != nil {
			b.initErr = fmt.Errorf("authenticate: %w", err)
			return
		}
		svc, err := driveapi.NewService(ctx, option.WithHTTPClient(client))
		if err != nil {
			b.initErr = fmt.Errorf("create drive service: %w", err)
			return
		}
		b.svc = svc
	})
	return b.svc, b.initErr
}

// Store buffers the stream to a temp file (the Drive API wants a seekable
// body for resumable uploads), uploads it, makes it publicly readable and
// returns the public view URL. The temp file is removed regardless of
// upload outcome.
func (b *Backend) Store(ctx context.Context, r io.Reader, size int64, name string) (storage.Artifact, error) {
	svc, err := b.service(ctx)
	if err != nil {
		return storage.Artifact{}, storage.NewError(storage.RemoteFailure, "store", err)
	}

	tmp, err := os.CreateTemp("", "upload-"+uuid.NewString())
	if err != nil {
		return storage.Artifact{}, storage.NewError(storage.IOFailure, "store", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return storage.Artifact{}, storage.NewError(storage.IOFailure, "store", err)
	}

	head := make([]byte, 512)
	n, _ := tmp.ReadAt(head, 0)
	mimeType := storage.ContentType(head[:n], name)

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return storage.Artifact{}, storage.NewError(storage.IOFailure, "store", err)
	}

	meta := &driveapi.File{Name: name}
	if b.folderID != "" {
		meta.Parents = []string{b.folderID}
	}

	uploaded, err := svc.Files.Create(meta).
		Media(tmp, googleapi.ContentType(mimeType)).
		SupportsAllDrives(true).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return storage.Artifact{}, storage.NewError(storage.RemoteFailure, "store", err)
	}

	// Public read access so the returned URL works for anonymous clients.
	perm := &driveapi.Permission{Type: "anyone", Role: "reader"}
	if _, err := svc.Permissions.Create(uploaded.Id, perm).SupportsAllDrives(true).Context(ctx).Do(); err != nil {
		return storage.Artifact{}, storage.NewError(storage.RemoteFailure, "store", err)
	}

	return storage.Artifact{Handle: PublicURL(uploaded.Id), Remote: true}, nil
}

// Delete removes the file behind a public URL handle. Missing files are
// not an error.
func (b *Backend) Delete(ctx context.Context, handle string) error {
	fileID := ExtractFileID(handle)
	if fileID == "" {
		return nil
	}

	svc, err := b.service(ctx)
	if err != nil {
		return storage.NewError(storage.RemoteFailure, "delete", err)
	}

	err = svc.Files.Delete(fileID).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil
		}
		return storage.NewError(storage.RemoteFailure, "delete", err)
	}
	return nil
}

// PublicURL builds the anonymous view URL for a Drive file id. The exact
// shape is relied upon by the thumbnail proxy rewrite; keep it verbatim.
func PublicURL(fileID string) string {
	return publicURLPrefix + fileID
}

// ExtractFileID recovers the Drive file id from a public URL handle.
// Returns "" when the handle carries no id.
func ExtractFileID(handle string) string {
	if handle == "" {
		return ""
	}
	idx := strings.Index(handle, "id=")
	if idx < 0 {
		return ""
	}
	id := handle[idx+len("id="):]
	if amp := strings.IndexByte(id, '&'); amp >= 0 {
		id = id[:amp]
	}
	return id
}
