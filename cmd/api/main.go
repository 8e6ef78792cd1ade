//	@title			ScreenSnap API
//	@version		1.0
//	@description	Screenshot upload and sharing service.
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: **Bearer {token}**. Browsers send the session cookie instead.

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/screensnap/service/internal/auth"
	"github.com/screensnap/service/internal/config"
	"github.com/screensnap/service/internal/db"
	"github.com/screensnap/service/internal/screenshot"
	"github.com/screensnap/service/internal/shortid"
	"github.com/screensnap/service/internal/storage"

	_ "github.com/screensnap/service/docs/swagger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx := context.Background()

	records, closeRecords, err := newRecordStore(ctx, cfg)
	if err != nil {
		log.Fatalf("record store init failed: %v", err)
	}
	defer closeRecords()

	blobs, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	// Wire dependencies: store → service → handler
	shotSvc := screenshot.NewService(records, blobs, shortid.New(cfg.Upload.IDLength), screenshot.NewPolicy(), screenshot.Options{
		MaxBytes:       cfg.Upload.MaxBytes,
		Thumbnails:     cfg.Upload.Thumbnails,
		CleanupOrphans: cfg.Upload.CleanupOrphans,
	})
	shotHandler := screenshot.NewHandler(shotSvc, blobs, cfg.Upload.MaxBytes)

	sessions := auth.NewSessions(cfg.JWTSecret, cfg.SessionTTL)
	var authHandler *auth.Handler
	if cfg.OAuthEnabled() {
		authHandler = auth.NewHandler(auth.NewService(cfg.OAuth, sessions), cfg.IsProduction())
	} else {
		log.Println("OAUTH_CLIENT_ID/OAUTH_CLIENT_SECRET not set, sign-in disabled")
	}

	r := newRouter(routerDeps{
		shots:      shotHandler,
		auth:       authHandler,
		sessions:   sessions,
		serveFiles: cfg.Storage.Driver == config.StorageLocal,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s, records=%s, storage=%s)", cfg.Port, cfg.AppEnv, cfg.RecordStore, cfg.Storage.Driver)
		log.Printf("swagger UI at %s/swagger/", cfg.PublicBaseURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
		return
	}

	log.Println("server stopped")
}

// newRecordStore opens the record store selected by RECORD_STORE.
func newRecordStore(ctx context.Context, cfg *config.Config) (screenshot.RecordStore, func(), error) {
	switch cfg.RecordStore {
	case config.RecordStorePostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database migration failed: %w", err)
		}
		return screenshot.NewPostgresStore(pool), pool.Close, nil
	case config.RecordStoreSQLite:
		store, err := screenshot.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("records: using sqlite database %s", cfg.SQLitePath)
		return store, func() { _ = store.Close() }, nil
	case config.RecordStoreDocument:
		store, err := screenshot.NewDocumentStore(cfg.DocumentDir)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("records: using json document in %s", cfg.DocumentDir)
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported record store: %s", cfg.RecordStore)
	}
}
