package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/thuvien/thuvien/internal/content"
	"github.com/thuvien/thuvien/internal/database/books"
	"github.com/thuvien/thuvien/internal/entities"
	"github.com/thuvien/thuvien/internal/services"
	"github.com/thuvien/thuvien/internal/storage"
	"github.com/thuvien/thuvien/internal/thumbnail"
)

type stubRenderer struct{}

func (r *stubRenderer) Render(pdf []byte, tier thumbnail.Quality) ([]byte, error) {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0}, nil
}

type httpFixture struct {
	router *gin.Engine
	repo   *books.Repository
}

func setupRouter(t *testing.T) (*httpFixture, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Book{}))

	repo := books.NewRepository(db)

	docs, err := storage.NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	thumbDir := t.TempDir()
	thumbs, err := storage.NewLocalBackend(thumbDir)
	require.NoError(t, err)

	service := services.NewBookService(repo, docs, thumbs, &stubRenderer{}, 0)
	resolver := content.NewServer(repo, thumbDir)

	router := NewRouter(RouterConfig{
		Store:    repo,
		Service:  service,
		Resolver: resolver,
		Version:  "test",
	})

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}
	return &httpFixture{router: router, repo: repo}, cleanup
}

func uploadRequest(t *testing.T, fileName string, fileContent []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("pdfFile", fileName)
	require.NoError(t, err)
	_, err = part.Write(fileContent)
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req, _ := http.NewRequest("POST", "/api/books/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestBooksController_GetAllBooks(t *testing.T) {
	t.Run("returns empty list when no books", func(t *testing.T) {
		f, cleanup := setupRouter(t)
		defer cleanup()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/books", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(0), response["count"])
	})

	t.Run("returns books with count", func(t *testing.T) {
		f, cleanup := setupRouter(t)
		defer cleanup()

		require.NoError(t, f.repo.Save(&entities.Book{Title: "Book 1", ContentPath: "/a.pdf"}))
		require.NoError(t, f.repo.Save(&entities.Book{Title: "Book 2", ContentPath: "/b.pdf"}))

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/books", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(2), response["count"])
	})
}

func TestBooksController_Upload(t *testing.T) {
	t.Run("creates book from multipart upload", func(t *testing.T) {
		f, cleanup := setupRouter(t)
		defer cleanup()

		req := uploadRequest(t, "novel.pdf", []byte("%PDF-1.4 data"), map[string]string{
			"name": "Truyện Kiều", "author": "Nguyễn Du", "category": "Poetry",
		})

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var book entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
		assert.NotZero(t, book.ID)
		assert.Equal(t, "Truyện Kiều", book.Title)
		assert.NotEmpty(t, book.ContentPath)
		assert.NotNil(t, book.ThumbnailPath)
	})

	t.Run("rejects non-pdf filename", func(t *testing.T) {
		f, cleanup := setupRouter(t)
		defer cleanup()

		req := uploadRequest(t, "report.txt", []byte("data"), map[string]string{"name": "X"})

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects missing file", func(t *testing.T) {
		f, cleanup := setupRouter(t)
		defer cleanup()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/books/upload", nil)
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBooksController_GetBookByID(t *testing.T) {
	f, cleanup := setupRouter(t)
	defer cleanup()

	book := &entities.Book{Title: "Found", ContentPath: "/a.pdf"}
	require.NoError(t, f.repo.Save(book))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/books/1", nil)
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/books/999", nil)
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/books/notanid", nil)
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooksController_UpdateBook(t *testing.T) {
	f, cleanup := setupRouter(t)
	defer cleanup()

	book := &entities.Book{Title: "Old", Author: "A", ContentPath: "/a.pdf"}
	require.NoError(t, f.repo.Save(book))

	body := `{"title":"New","author":"B","category":"C"}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/books/1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	updated, err := f.repo.FindByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "B", updated.Author)
}

func TestBooksController_DeleteBook(t *testing.T) {
	f, cleanup := setupRouter(t)
	defer cleanup()

	book := &entities.Book{Title: "Doomed", ContentPath: "/a.pdf"}
	require.NoError(t, f.repo.Save(book))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("DELETE", "/api/books/1", nil)
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// Deleting again is still not an error.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("DELETE", "/api/books/1", nil)
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBooksController_Search(t *testing.T) {
	f, cleanup := setupRouter(t)
	defer cleanup()

	require.NoError(t, f.repo.Save(&entities.Book{Title: "Go in Action", Author: "Kennedy", Category: "Programming", ContentPath: "/a.pdf"}))
	require.NoError(t, f.repo.Save(&entities.Book{Title: "Cooking", Author: "Chef", Category: "Food", ContentPath: "/b.pdf"}))

	cases := []struct {
		url   string
		count float64
	}{
		{"/api/books/search?keyword=kennedy", 1},
		{"/api/books/search?keyword=zzz", 0},
		{"/api/books/search/name?name=action", 1},
		{"/api/books/search/author?author=chef", 1},
		{"/api/books/search/category?category=program", 1},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", tc.url, nil)
		f.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, tc.url)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, tc.count, response["count"], tc.url)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/books/search", nil)
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBooksController_IncrementViews(t *testing.T) {
	f, cleanup := setupRouter(t)
	defer cleanup()

	require.NoError(t, f.repo.Save(&entities.Book{Title: "Viewed", ContentPath: "/a.pdf"}))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/books/1/view", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var book entities.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
	assert.Equal(t, int64(1), book.Views)
}
