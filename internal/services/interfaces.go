package services

import (
	"github.com/thuvien/thuvien/internal/entities"
	"github.com/thuvien/thuvien/internal/thumbnail"
)

// MetadataStore provides CRUD and substring search over book records.
// Implemented by internal/database/books.Repository.
type MetadataStore interface {
	FindAll() ([]entities.Book, error)
	FindByID(id uint) (*entities.Book, error)
	Save(book *entities.Book) error
	DeleteByID(id uint) error
	SearchByField(field, substring string) ([]entities.Book, error)
	SearchByNameOrAuthor(keyword string) ([]entities.Book, error)
	IncrementViews(id uint) (*entities.Book, error)
	MissingThumbnails() ([]entities.Book, error)
}

// Renderer turns PDF bytes into a thumbnail image at the requested
// quality tier.
type Renderer interface {
	Render(pdf []byte, tier thumbnail.Quality) ([]byte, error)
}
