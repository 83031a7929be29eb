package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thuvien/thuvien/internal/config"
	"github.com/thuvien/thuvien/internal/content"
	"github.com/thuvien/thuvien/internal/database"
	"github.com/thuvien/thuvien/internal/database/books"
	http_controllers "github.com/thuvien/thuvien/internal/http"
	"github.com/thuvien/thuvien/internal/scheduler"
	"github.com/thuvien/thuvien/internal/services"
	"github.com/thuvien/thuvien/internal/storage"
	"github.com/thuvien/thuvien/internal/storage/drive"
	"github.com/thuvien/thuvien/internal/thumbnail"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// buildBackends returns the document and thumbnail backends for the
// configured storage mode. Local mode uses two directories; Drive mode
// shares one backend for both artifact classes.
func buildBackends(cfg *config.Config) (docs, thumbs storage.Backend, err error) {
	switch cfg.Storage.Backend {
	case config.BackendDrive:
		var auth drive.Authenticator
		switch cfg.Drive.AuthMode {
		case config.DriveAuthServiceAccount:
			auth = &drive.ServiceAccountAuth{CredentialsPath: cfg.Drive.CredentialsPath}
		case config.DriveAuthOAuth:
			auth = &drive.OAuthAuth{
				ClientSecretsPath: cfg.Drive.OAuthClientPath,
				TokenPath:         cfg.Drive.OAuthTokenPath,
				Port:              cfg.Drive.OAuthPort,
			}
		default:
			return nil, nil, fmt.Errorf("unknown drive auth mode %q", cfg.Drive.AuthMode)
		}
		backend := drive.New(auth, cfg.Drive.FolderID)
		return backend, backend, nil

	case config.BackendLocal:
		docs, err := storage.NewLocalBackend(cfg.Storage.UploadDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init upload dir: %w", err)
		}
		thumbs, err := storage.NewLocalBackend(cfg.Storage.ThumbnailDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init thumbnail dir: %w", err)
		}
		return docs, thumbs, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Thuvien v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	repo := books.NewRepository(db.DB)

	docs, thumbs, err := buildBackends(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("Storage backend: %s", cfg.Storage.Backend)

	renderer := thumbnail.NewRenderer(
		cfg.Thumbnails.Width,
		cfg.Thumbnails.StandardDPI,
		cfg.Thumbnails.ReducedDPI,
	)

	service := services.NewBookService(repo, docs, thumbs, renderer, cfg.Thumbnails.ReducedThreshold)

	resolver := content.NewServer(repo, cfg.Storage.ThumbnailDir)

	repair := scheduler.NewThumbnailRepairScheduler(service, cfg.Repair)
	repairCtx, repairCancel := context.WithCancel(context.Background())
	if err := repair.Start(repairCtx); err != nil {
		log.Fatalf("Failed to start thumbnail repair scheduler: %v", err)
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Store:    repo,
		Service:  service,
		Resolver: resolver,
		DB:       db,
		Version:  version,
	})

	onShutdown := func(ctx context.Context) {
		repairCancel()
		repair.Stop()
	}

	Serve(router, cfg, onShutdown)
}
