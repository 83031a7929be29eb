// Package content resolves stored document and thumbnail handles into
// something servable: a local file stream, a redirect, or proxied bytes.
package content

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/thuvien/thuvien/internal/database/books"
	"github.com/thuvien/thuvien/internal/entities"
	"github.com/thuvien/thuvien/internal/storage"
)

// ErrNotFound means the record, handle or underlying file is missing.
var ErrNotFound = errors.New("content not found")

// Kind tags a Resolution.
type Kind int

const (
	// KindLocalStream streams a file from the local filesystem.
	KindLocalStream Kind = iota
	// KindRemoteRedirect sends the client to the remote URL.
	KindRemoteRedirect
	// KindProxiedBytes returns bytes fetched from the remote provider on
	// the client's behalf.
	KindProxiedBytes
)

// Resolution describes how to serve a requested artifact.
type Resolution struct {
	Kind        Kind
	Path        string // KindLocalStream
	URL         string // KindRemoteRedirect
	Bytes       []byte // KindProxiedBytes
	ContentType string
	Disposition string
}

// BookFinder is the read-only slice of the metadata store the server
// needs.
type BookFinder interface {
	FindByID(id uint) (*entities.Book, error)
}

// Server resolves artifact handles for serving.
type Server struct {
	finder       BookFinder
	thumbnailDir string
	httpClient   *http.Client
}

// NewServer creates a content server. thumbnailDir is the local thumbnail
// root used when a requested thumbnail filename matches no record handle.
func NewServer(finder BookFinder, thumbnailDir string) *Server {
	return &Server{
		finder:       finder,
		thumbnailDir: thumbnailDir,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// ResolvePrimary resolves the primary document of a book. Remote handles
// become redirects; the server never proxies primary document bytes.
func (s *Server) ResolvePrimary(id uint) (*Resolution, error) {
	book, err := s.finder.FindByID(id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if book.ContentPath == "" {
		return nil, ErrNotFound
	}

	if storage.IsRemoteHandle(book.ContentPath) {
		return &Resolution{Kind: KindRemoteRedirect, URL: book.ContentPath}, nil
	}

	return s.localResolution(book.ContentPath, "application/pdf")
}

var digitsRe = regexp.MustCompile(`[0-9]+`)

// ResolveThumbnail resolves a thumbnail by its canonical filename
// (book_<id>.jpg). Remote thumbnails are proxied rather than redirected:
// image tags cannot reliably follow the provider's cross-origin redirect
// chain, so the server fetches the bytes itself.
func (s *Server) ResolveThumbnail(filename string) (*Resolution, error) {
	filename = filepath.Base(filename)

	if idStr := digitsRe.FindString(filename); idStr != "" {
		if id, err := strconv.ParseUint(idStr, 10, 32); err == nil {
			book, err := s.finder.FindByID(uint(id))
			if err == nil && book.HasThumbnail() && storage.IsRemoteHandle(*book.ThumbnailPath) {
				return s.proxyThumbnail(*book.ThumbnailPath, filename)
			}
		}
	}

	res, err := s.localResolution(filepath.Join(s.thumbnailDir, filename), "image/jpeg")
	if err != nil {
		return nil, err
	}
	res.Disposition = inlineDisposition(filename)
	return res, nil
}

// proxyThumbnail fetches remote thumbnail bytes. The provider's preview
// URL is rewritten to the direct view form, and a browser user agent is
// sent: the provider gates direct image responses behind it.
func (s *Server) proxyThumbnail(handle, filename string) (*Resolution, error) {
	imageURL := strings.ReplaceAll(handle, "/preview", "/view")

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, ErrNotFound
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, ErrNotFound
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrNotFound
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrNotFound
	}

	return &Resolution{
		Kind:        KindProxiedBytes,
		Bytes:       data,
		ContentType: "image/jpeg",
		Disposition: inlineDisposition(filename),
	}, nil
}

// localResolution checks the file exists and sniffs its content type,
// with a fixed fallback when sniffing is inconclusive.
func (s *Server) localResolution(path, fallbackType string) (*Resolution, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		return nil, err
	}

	contentType := fallbackType
	if sniffed := http.DetectContentType(head[:n]); sniffed != "application/octet-stream" {
		contentType = sniffed
	}

	return &Resolution{Kind: KindLocalStream, Path: path, ContentType: contentType}, nil
}

func inlineDisposition(filename string) string {
	return fmt.Sprintf("inline; filename=%q", filename)
}
