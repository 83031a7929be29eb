package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thuvien/thuvien/internal/database/books"
	"github.com/thuvien/thuvien/internal/services"
)

// BooksController handles book CRUD, search and upload requests.
type BooksController struct {
	store   services.MetadataStore
	service *services.BookService
}

// NewBooksController creates a new BooksController.
func NewBooksController(store services.MetadataStore, service *services.BookService) *BooksController {
	return &BooksController{store: store, service: service}
}

// GetAllBooks lists every book.
// GET /api/books
func (controller *BooksController) GetAllBooks(c *gin.Context) {
	all, err := controller.store.FindAll()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": all, "count": len(all)})
}

// GetBookByID returns a single book.
// GET /api/books/:id
func (controller *BooksController) GetBookByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.store.FindByID(id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// UploadBook ingests a PDF with its metadata.
// POST /api/books/upload (multipart form: pdfFile, name, author, category)
func (controller *BooksController) UploadBook(c *gin.Context) {
	fileHeader, err := c.FormFile("pdfFile")
	if err != nil {
		respondBadRequest(c, "pdfFile is required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "open upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondInternalError(c, err, "read upload")
		return
	}

	book, err := controller.service.Upload(
		c.Request.Context(),
		data,
		fileHeader.Filename,
		c.PostForm("name"),
		c.PostForm("author"),
		c.PostForm("category"),
	)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			respondBadRequest(c, err.Error())
			return
		}
		respondInternalError(c, err, "upload book")
		return
	}

	c.JSON(http.StatusCreated, book)
}

// UpdateBook mutates title, author and category.
// PUT /api/books/:id
func (controller *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var body struct {
		Title    string `json:"title"`
		Author   string `json:"author"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := controller.service.Update(c.Request.Context(), id, body.Title, body.Author, body.Category)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// DeleteBook removes a book and its thumbnail artifact.
// DELETE /api/books/:id
func (controller *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.service.Delete(c.Request.Context(), id); err != nil {
		respondInternalError(c, err, "delete book")
		return
	}
	c.Status(http.StatusNoContent)
}

// SearchByKeyword searches title or author.
// GET /api/books/search?keyword=
func (controller *BooksController) SearchByKeyword(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		respondBadRequest(c, "keyword query parameter is required")
		return
	}

	found, err := controller.store.SearchByNameOrAuthor(keyword)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": found, "count": len(found)})
}

// SearchByField searches one column.
// GET /api/books/search/name|author|category?q=
func (controller *BooksController) SearchByField(field, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := c.Query(param)
		if value == "" {
			respondBadRequest(c, param+" query parameter is required")
			return
		}

		found, err := controller.store.SearchByField(field, value)
		if err != nil {
			respondInternalError(c, err, "search books by "+field)
			return
		}
		c.JSON(http.StatusOK, gin.H{"books": found, "count": len(found)})
	}
}

// IncrementViews bumps the view counter.
// POST /api/books/:id/view
func (controller *BooksController) IncrementViews(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.store.IncrementViews(id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "increment views")
		return
	}
	c.JSON(http.StatusOK, book)
}

// RegenerateThumbnail re-derives the thumbnail from the stored document.
// POST /api/books/:id/regenerate-thumbnail
func (controller *BooksController) RegenerateThumbnail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.service.RegenerateThumbnail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			respondNotFound(c, "book")
			return
		}
		if errors.Is(err, services.ErrNoSource) {
			respondBadRequest(c, "book has no primary document")
			return
		}
		respondInternalError(c, err, "regenerate thumbnail")
		return
	}
	c.JSON(http.StatusOK, book)
}
