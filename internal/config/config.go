package config

import (
	"github.com/spf13/viper"
)

// StorageBackend selects where uploaded documents are persisted.
type StorageBackend string

const (
	BackendLocal StorageBackend = "local" // Local filesystem (default)
	BackendDrive StorageBackend = "drive" // Google Drive
)

// DriveAuthMode selects how the Drive backend authenticates.
type DriveAuthMode string

const (
	DriveAuthServiceAccount DriveAuthMode = "service_account"
	DriveAuthOAuth          DriveAuthMode = "oauth"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Storage
		Drive
		Thumbnails
		Repair
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Storage struct {
		Backend      StorageBackend
		UploadDir    string // Root directory for local primary documents
		ThumbnailDir string // Root directory for local thumbnails
	}
	Drive struct {
		AuthMode        DriveAuthMode
		CredentialsPath string // Service account key JSON
		OAuthClientPath string // OAuth client secrets JSON
		OAuthTokenPath  string // Cached OAuth user token
		OAuthPort       int    // Local callback receiver port
		FolderID        string // Optional parent folder for uploads
	}
	Thumbnails struct {
		Width            int
		StandardDPI      float64
		ReducedDPI       float64
		ReducedThreshold int64 // Input size in bytes above which the reduced tier is used
	}
	Repair struct {
		Enabled  bool
		Schedule string // Cron format: "30 * * * *" = hourly at :30
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("storage_backend", "local")
	v.SetDefault("upload_dir", DefaultUploadDir)
	v.SetDefault("thumbnail_dir", DefaultThumbnailDir)

	// Google Drive defaults
	v.SetDefault("drive_auth_mode", "oauth")
	v.SetDefault("drive_credentials_path", "./credentials.json")
	v.SetDefault("drive_oauth_client_path", "./oauth_credentials.json")
	v.SetDefault("drive_oauth_token_path", "./tokens/drive_token.json")
	v.SetDefault("drive_oauth_port", 8888)
	v.SetDefault("drive_folder_id", "")

	// Thumbnail defaults
	v.SetDefault("thumbnail_width", 300)
	v.SetDefault("thumbnail_standard_dpi", 150.0)
	v.SetDefault("thumbnail_reduced_dpi", 72.0)
	v.SetDefault("thumbnail_reduced_threshold", int64(25*1024*1024))

	// Thumbnail repair sweep defaults
	v.SetDefault("repair_enabled", false)
	v.SetDefault("repair_schedule", "30 * * * *") // Hourly at :30

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Storage: Storage{
			Backend:      StorageBackend(v.GetString("STORAGE_BACKEND")),
			UploadDir:    v.GetString("UPLOAD_DIR"),
			ThumbnailDir: v.GetString("THUMBNAIL_DIR"),
		},
		Drive: Drive{
			AuthMode:        DriveAuthMode(v.GetString("DRIVE_AUTH_MODE")),
			CredentialsPath: v.GetString("DRIVE_CREDENTIALS_PATH"),
			OAuthClientPath: v.GetString("DRIVE_OAUTH_CLIENT_PATH"),
			OAuthTokenPath:  v.GetString("DRIVE_OAUTH_TOKEN_PATH"),
			OAuthPort:       v.GetInt("DRIVE_OAUTH_PORT"),
			FolderID:        v.GetString("DRIVE_FOLDER_ID"),
		},
		Thumbnails: Thumbnails{
			Width:            v.GetInt("THUMBNAIL_WIDTH"),
			StandardDPI:      v.GetFloat64("THUMBNAIL_STANDARD_DPI"),
			ReducedDPI:       v.GetFloat64("THUMBNAIL_REDUCED_DPI"),
			ReducedThreshold: v.GetInt64("THUMBNAIL_REDUCED_THRESHOLD"),
		},
		Repair: Repair{
			Enabled:  v.GetBool("REPAIR_ENABLED"),
			Schedule: v.GetString("REPAIR_SCHEDULE"),
		},
	}
}
