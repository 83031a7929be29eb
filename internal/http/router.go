package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thuvien/thuvien/internal/content"
	"github.com/thuvien/thuvien/internal/database"
	"github.com/thuvien/thuvien/internal/services"
)

// RouterConfig carries all router dependencies.
type RouterConfig struct {
	Store    services.MetadataStore
	Service  *services.BookService
	Resolver *content.Server
	DB       *database.Database
	Version  string
}

// CORSMiddleware allows cross-origin access to the API. The original
// frontend is served from a different origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	booksController := NewBooksController(cfg.Store, cfg.Service)
	pdfController := NewPdfController(cfg.Resolver)
	thumbnailsController := NewThumbnailsController(cfg.Resolver)
	healthController := NewHealthController(cfg.DB, cfg.Version)

	api := router.Group("/api")
	{
		api.GET("/health", healthController.Status)

		api.GET("/books", booksController.GetAllBooks)
		api.POST("/books/upload", booksController.UploadBook)

		// Search routes must be registered before /books/:id.
		api.GET("/books/search", booksController.SearchByKeyword)
		api.GET("/books/search/name", booksController.SearchByField("title", "name"))
		api.GET("/books/search/author", booksController.SearchByField("author", "author"))
		api.GET("/books/search/category", booksController.SearchByField("category", "category"))

		api.GET("/books/:id", booksController.GetBookByID)
		api.PUT("/books/:id", booksController.UpdateBook)
		api.DELETE("/books/:id", booksController.DeleteBook)
		api.POST("/books/:id/view", booksController.IncrementViews)
		api.POST("/books/:id/regenerate-thumbnail", booksController.RegenerateThumbnail)
		api.GET("/books/:id/pdf", pdfController.GetPdf)
		api.GET("/books/:id/download", pdfController.DownloadPdf)

		api.GET("/thumbnails/:filename", thumbnailsController.GetThumbnail)
	}

	return router
}
