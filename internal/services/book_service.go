// Package services contains the ingestion orchestrator: the upload,
// thumbnail and deletion flows that tie storage, rendering and metadata
// together.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/thuvien/thuvien/internal/database/books"
	"github.com/thuvien/thuvien/internal/entities"
	"github.com/thuvien/thuvien/internal/storage"
	"github.com/thuvien/thuvien/internal/thumbnail"
)

var (
	// ErrInvalidInput rejects an upload before any storage I/O happens.
	ErrInvalidInput = errors.New("invalid upload")
	// ErrNoSource means a thumbnail was requested for a record that has no
	// primary document.
	ErrNoSource = errors.New("book has no primary document")
)

// RetentionPolicy names a deliberate deletion asymmetry.
type RetentionPolicy string

// KeepPrimaryOnDelete: deleting a book removes its thumbnail artifact and
// metadata row but never the primary document, which is retained for
// audit and recovery.
const KeepPrimaryOnDelete RetentionPolicy = "keep_primary_on_delete"

var (
	unsafeTitleChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
)

// BookService orchestrates ingestion and retrieval-adjacent mutations.
// Each request runs sequentially through its steps; many requests may run
// concurrently, so the service holds no mutable state of its own.
type BookService struct {
	store    MetadataStore
	docs     storage.Backend // Primary documents
	thumbs   storage.Backend // Thumbnails, same backend family as docs
	renderer Renderer

	reducedThreshold int64
	httpClient       *http.Client
}

// NewBookService wires the orchestrator. docs and thumbs are usually the
// same backend for remote storage and two roots of the local filesystem
// otherwise. reducedThreshold is the input size above which the reduced
// render tier is used; zero means 25 MiB.
func NewBookService(store MetadataStore, docs, thumbs storage.Backend, renderer Renderer, reducedThreshold int64) *BookService {
	if reducedThreshold <= 0 {
		reducedThreshold = 25 * 1024 * 1024
	}
	return &BookService{
		store:            store,
		docs:             docs,
		thumbs:           thumbs,
		renderer:         renderer,
		reducedThreshold: reducedThreshold,
		httpClient:       &http.Client{Timeout: 60 * time.Second},
	}
}

// Upload validates and ingests a PDF: store the primary document, persist
// the metadata row, then derive and store a thumbnail. Thumbnail failure
// of any kind never fails the upload.
func (s *BookService) Upload(ctx context.Context, content []byte, fileName, title, author, category string) (*entities.Book, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file content is empty", ErrInvalidInput)
	}
	if !strings.HasSuffix(strings.ToLower(fileName), ".pdf") {
		return nil, fmt.Errorf("%w: only PDF files are accepted", ErrInvalidInput)
	}

	storageName := StorageName(title)

	artifact, err := s.docs.Store(ctx, bytes.NewReader(content), int64(len(content)), storageName)
	if err != nil {
		return nil, fmt.Errorf("store primary document: %w", err)
	}

	book := &entities.Book{
		Title:       title,
		Author:      author,
		Category:    category,
		ContentPath: artifact.Handle,
		Views:       0,
	}
	if err := s.store.Save(book); err != nil {
		return nil, fmt.Errorf("save book metadata: %w", err)
	}

	// Thumbnail name embeds the id, so it can only be derived after the
	// first save assigned one.
	if handle, ok := s.makeThumbnail(ctx, content, book.ID); ok {
		book.ThumbnailPath = &handle
		if err := s.store.Save(book); err != nil {
			return nil, fmt.Errorf("save book metadata: %w", err)
		}
	}

	return book, nil
}

// RegenerateThumbnail re-derives the thumbnail from the stored primary
// document. Render failure is not an error to the caller: "no thumbnail"
// is a valid steady state and the record is returned unchanged.
func (s *BookService) RegenerateThumbnail(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}
	if book.ContentPath == "" {
		return nil, ErrNoSource
	}

	content, err := s.readPrimary(ctx, book.ContentPath)
	if err != nil {
		return nil, fmt.Errorf("read primary document: %w", err)
	}

	if book.HasThumbnail() {
		if err := s.thumbs.Delete(ctx, *book.ThumbnailPath); err != nil {
			log.Printf("Failed to delete old thumbnail for book %d: %v", id, err)
		}
	}

	if handle, ok := s.makeThumbnail(ctx, content, book.ID); ok {
		book.ThumbnailPath = &handle
		if err := s.store.Save(book); err != nil {
			return nil, fmt.Errorf("save book metadata: %w", err)
		}
	}

	return book, nil
}

// Delete removes the book's thumbnail artifact (best-effort) and its
// metadata row. The primary document is retained per KeepPrimaryOnDelete.
// Deleting a missing book is a no-op.
func (s *BookService) Delete(ctx context.Context, id uint) error {
	book, err := s.store.FindByID(id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return nil
		}
		return err
	}

	if book.HasThumbnail() {
		if err := s.thumbs.Delete(ctx, *book.ThumbnailPath); err != nil {
			log.Printf("Failed to delete thumbnail for book %d: %v", id, err)
		}
	}

	// Primary document deliberately left in place (KeepPrimaryOnDelete).
	return s.store.DeleteByID(id)
}

// Update mutates the editable fields of a book.
func (s *BookService) Update(ctx context.Context, id uint, title, author, category string) (*entities.Book, error) {
	book, err := s.store.FindByID(id)
	if err != nil {
		return nil, err
	}

	book.Title = title
	book.Author = author
	book.Category = category

	if err := s.store.Save(book); err != nil {
		return nil, err
	}
	return book, nil
}

// RepairMissingThumbnails retries thumbnail generation for every book
// that has a primary document but no thumbnail. Used by the background
// sweep; individual failures are logged and skipped.
func (s *BookService) RepairMissingThumbnails(ctx context.Context) (repaired int) {
	books, err := s.store.MissingThumbnails()
	if err != nil {
		log.Printf("Thumbnail repair: failed to list books: %v", err)
		return 0
	}

	for i := range books {
		book, err := s.RegenerateThumbnail(ctx, books[i].ID)
		if err != nil {
			log.Printf("Thumbnail repair: book %d: %v", books[i].ID, err)
			continue
		}
		if book.HasThumbnail() {
			repaired++
		}
	}
	return repaired
}

// makeThumbnail renders and stores a thumbnail for the given content.
// Every failure path logs and reports ok=false; callers proceed without a
// thumbnail.
func (s *BookService) makeThumbnail(ctx context.Context, content []byte, bookID uint) (handle string, ok bool) {
	tier := s.tierFor(int64(len(content)))

	img, err := s.renderer.Render(content, tier)
	if err != nil {
		log.Printf("Failed to generate thumbnail for book %d: %v", bookID, err)
		return "", false
	}

	name := ThumbnailName(bookID)
	artifact, err := s.thumbs.Store(ctx, bytes.NewReader(img), int64(len(img)), name)
	if err != nil {
		log.Printf("Failed to store thumbnail for book %d: %v", bookID, err)
		return "", false
	}

	return artifact.Handle, true
}

// tierFor bounds peak render memory: large inputs get the reduced tier.
func (s *BookService) tierFor(size int64) thumbnail.Quality {
	if size > s.reducedThreshold {
		return thumbnail.QualityReduced
	}
	return thumbnail.QualityStandard
}

// readPrimary loads the primary document bytes from a local path or over
// HTTP for remote handles.
func (s *BookService) readPrimary(ctx context.Context, handle string) ([]byte, error) {
	if !storage.IsRemoteHandle(handle) {
		return os.ReadFile(handle)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, handle, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch primary document: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// StorageName derives a unique storage filename from a title: strip
// everything outside [A-Za-z0-9 _-], collapse whitespace runs to a single
// hyphen, append a millisecond timestamp. The timestamp guarantees
// uniqueness without checking existing names.
func StorageName(title string) string {
	sanitized := unsafeTitleChars.ReplaceAllString(title, "")
	sanitized = whitespaceRuns.ReplaceAllString(strings.TrimSpace(sanitized), "-")
	if sanitized == "" {
		sanitized = "untitled"
	}
	return fmt.Sprintf("%s_%d.pdf", sanitized, time.Now().UnixMilli())
}

// ThumbnailName is the canonical thumbnail filename for a book id. The
// content server relies on this shape to map a requested filename back to
// a record.
func ThumbnailName(bookID uint) string {
	return fmt.Sprintf("book_%d.jpg", bookID)
}
