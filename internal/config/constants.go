package config

const (
	DefaultDatabasePath = "./thuvien.db"
	DefaultUploadDir    = "./uploaded_books"
	DefaultThumbnailDir = "./thumbnails"
)
