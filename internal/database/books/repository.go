// Package books provides database operations for book records. Repository
// satisfies the services.MetadataStore interface.
package books

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/thuvien/thuvien/internal/entities"
)

// ErrNotFound is returned when no book exists for the requested id.
var ErrNotFound = errors.New("book not found")

// Searchable columns for SearchByField. Anything else is rejected to keep
// user input out of the generated SQL.
var searchableFields = map[string]string{
	"title":    "title",
	"author":   "author",
	"category": "category",
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindAll retrieves every book, newest first.
func (r *Repository) FindAll() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("created_at DESC").Find(&books).Error
	return books, err
}

// FindByID retrieves a book by its ID.
func (r *Repository) FindByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

// Save persists a book, assigning an ID on first save.
func (r *Repository) Save(book *entities.Book) error {
	return r.db.Save(book).Error
}

// DeleteByID removes a book row. Deleting a missing row is not an error.
func (r *Repository) DeleteByID(id uint) error {
	return r.db.Delete(&entities.Book{}, id).Error
}

// SearchByField performs a case-insensitive substring search on a single
// column. Only title, author and category are searchable.
func (r *Repository) SearchByField(field, substring string) ([]entities.Book, error) {
	column, ok := searchableFields[field]
	if !ok {
		return nil, fmt.Errorf("field %q is not searchable", field)
	}

	var books []entities.Book
	pattern := "%" + substring + "%"
	err := r.db.Where(fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", column), pattern).
		Order("created_at DESC").Find(&books).Error
	return books, err
}

// SearchByNameOrAuthor searches books whose title or author contains the
// keyword (case-insensitive).
func (r *Repository) SearchByNameOrAuthor(keyword string) ([]entities.Book, error) {
	var books []entities.Book
	pattern := "%" + keyword + "%"
	err := r.db.Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", pattern, pattern).
		Order("created_at DESC").Find(&books).Error
	return books, err
}

// IncrementViews atomically bumps the view counter and returns the updated
// book.
func (r *Repository) IncrementViews(id uint) (*entities.Book, error) {
	result := r.db.Model(&entities.Book{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(id)
}

// MissingThumbnails returns books that have a primary document but no
// thumbnail, used by the background repair sweep.
func (r *Repository) MissingThumbnails() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("content_path <> '' AND (thumbnail_path IS NULL OR thumbnail_path = '')").
		Find(&books).Error
	return books, err
}
