package content

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thuvien/thuvien/internal/database/books"
	"github.com/thuvien/thuvien/internal/entities"
)

type mapFinder struct {
	books map[uint]*entities.Book
}

func (f *mapFinder) FindByID(id uint) (*entities.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return nil, books.ErrNotFound
	}
	return book, nil
}

func strPtr(s string) *string { return &s }

func TestResolvePrimary_LocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	content := []byte("%PDF-1.4 the document body")
	path := filepath.Join(dir, "book_1.pdf")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	finder := &mapFinder{books: map[uint]*entities.Book{
		1: {ID: 1, ContentPath: path},
	}}
	server := NewServer(finder, dir)

	res, err := server.ResolvePrimary(1)
	require.NoError(t, err)

	assert.Equal(t, KindLocalStream, res.Kind)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "application/pdf", res.ContentType)

	served, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, content, served)
}

func TestResolvePrimary_RemoteRedirects(t *testing.T) {
	url := "https://drive.google.com/uc?export=view&id=abc"
	finder := &mapFinder{books: map[uint]*entities.Book{
		1: {ID: 1, ContentPath: url},
	}}
	server := NewServer(finder, t.TempDir())

	res, err := server.ResolvePrimary(1)
	require.NoError(t, err)

	assert.Equal(t, KindRemoteRedirect, res.Kind)
	assert.Equal(t, url, res.URL)
}

func TestResolvePrimary_NotFound(t *testing.T) {
	server := NewServer(&mapFinder{books: map[uint]*entities.Book{
		2: {ID: 2, ContentPath: ""},
		3: {ID: 3, ContentPath: "/nonexistent/file.pdf"},
	}}, t.TempDir())

	_, err := server.ResolvePrimary(1)
	assert.ErrorIs(t, err, ErrNotFound)

	// Empty handle.
	_, err = server.ResolvePrimary(2)
	assert.ErrorIs(t, err, ErrNotFound)

	// Missing local file.
	_, err = server.ResolvePrimary(3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveThumbnail_ProxiesRemote(t *testing.T) {
	imageBytes := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3}

	var gotPath, gotUserAgent string
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write(imageBytes)
	}))
	defer provider.Close()

	finder := &mapFinder{books: map[uint]*entities.Book{
		10: {ID: 10, ContentPath: "x", ThumbnailPath: strPtr(provider.URL + "/file/d/abc/preview")},
	}}
	server := NewServer(finder, t.TempDir())

	res, err := server.ResolveThumbnail("book_10.jpg")
	require.NoError(t, err)

	assert.Equal(t, KindProxiedBytes, res.Kind)
	assert.Equal(t, imageBytes, res.Bytes)
	assert.Equal(t, "image/jpeg", res.ContentType)
	assert.Equal(t, `inline; filename="book_10.jpg"`, res.Disposition)

	// Preview URLs are rewritten to the direct view form before fetching.
	assert.Equal(t, "/file/d/abc/view", gotPath)
	assert.Equal(t, "Mozilla/5.0", gotUserAgent)
}

func TestResolveThumbnail_RemoteFetchFailureIsNotFound(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer provider.Close()

	finder := &mapFinder{books: map[uint]*entities.Book{
		10: {ID: 10, ContentPath: "x", ThumbnailPath: strPtr(provider.URL + "/preview")},
	}}
	server := NewServer(finder, t.TempDir())

	_, err := server.ResolveThumbnail("book_10.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveThumbnail_LocalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book_5.jpg"), []byte{0xFF, 0xD8, 0xFF}, 0o644))

	finder := &mapFinder{books: map[uint]*entities.Book{
		5: {ID: 5, ContentPath: "/books/a.pdf", ThumbnailPath: strPtr(filepath.Join(dir, "book_5.jpg"))},
	}}
	server := NewServer(finder, dir)

	res, err := server.ResolveThumbnail("book_5.jpg")
	require.NoError(t, err)

	assert.Equal(t, KindLocalStream, res.Kind)
	assert.Equal(t, filepath.Join(dir, "book_5.jpg"), res.Path)
	assert.Equal(t, `inline; filename="book_5.jpg"`, res.Disposition)
}

func TestResolveThumbnail_MissingIsNotFound(t *testing.T) {
	server := NewServer(&mapFinder{books: map[uint]*entities.Book{}}, t.TempDir())

	_, err := server.ResolveThumbnail("book_99.jpg")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveThumbnail_StripsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "book_5.jpg"), []byte{1}, 0o644))
	server := NewServer(&mapFinder{books: map[uint]*entities.Book{}}, dir)

	res, err := server.ResolveThumbnail("../../book_5.jpg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "book_5.jpg"), res.Path)
}
