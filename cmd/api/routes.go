package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/screensnap/service/internal/auth"
	appMiddleware "github.com/screensnap/service/internal/middleware"
	"github.com/screensnap/service/internal/screenshot"
	"github.com/screensnap/service/internal/storage"
)

type routerDeps struct {
	shots    *screenshot.Handler
	auth     *auth.Handler // nil when sign-in is not configured
	sessions *auth.Sessions
	// serveFiles mounts the local storage driver's files under /files.
	serveFiles bool
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Authenticate(d.sessions))
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Delete-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Share links
	r.Get("/s/{id}", d.shots.SharePage)

	r.With(appMiddleware.RequireAuth).Get("/gallery", d.shots.Gallery)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", d.shots.Upload)
		r.Get("/s/{id}", d.shots.PublicView)
		r.Get("/expiry-presets", d.shots.Presets)

		r.Route("/screenshots/{id}", func(r chi.Router) {
			r.Get("/", d.shots.Get)
			r.Delete("/", d.shots.Delete)
			r.Patch("/expiry", d.shots.SetExpiry)
			r.Patch("/visibility", d.shots.SetVisibility)
		})
	})

	if d.auth != nil {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", d.auth.Login)
			r.Get("/callback", d.auth.Callback)
			r.Post("/logout", d.auth.Logout)
		})
	} else {
		// without a provider there is nothing to exchange; send people home
		r.Get("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/", http.StatusFound)
		})
	}

	if d.serveFiles {
		r.Get(storage.LocalPublicPath+"/*", d.shots.ServeFile)
	}

	return r
}
