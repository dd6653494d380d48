package core

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handler returns an http.Handler implementing the admin API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.LogRequest)
	r.Use(chimiddleware.Recoverer)
	r.Use(SlashFix)
	r.Use(MarkSecure)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.RequireAuthentication)

		// Bucket-level operations
		r.Put("/buckets/{bucket}", func(w http.ResponseWriter, r *http.Request) {
			s.handleBucketPut(r.Context(), w, r, pathParam(r, "bucket"))
		})
		r.Delete("/buckets/{bucket}", func(w http.ResponseWriter, r *http.Request) {
			s.handleBucketDelete(r.Context(), w, r, pathParam(r, "bucket"))
		})

		// Object-level operations
		r.Put("/buckets/{bucket}/objects/{filename}", func(w http.ResponseWriter, r *http.Request) {
			s.handleObjectPut(r.Context(), w, r, pathParam(r, "bucket"), pathParam(r, "filename"))
		})
		r.Head("/buckets/{bucket}/objects/{filename}", func(w http.ResponseWriter, r *http.Request) {
			s.handleObjectHead(r.Context(), w, r, pathParam(r, "bucket"), pathParam(r, "filename"))
		})
		r.Delete("/buckets/{bucket}/objects/{filename}", func(w http.ResponseWriter, r *http.Request) {
			s.handleObjectDelete(r.Context(), w, r, pathParam(r, "bucket"), pathParam(r, "filename"))
		})
		r.Get("/buckets/{bucket}/objects/{filename}/path", func(w http.ResponseWriter, r *http.Request) {
			s.handleObjectPath(r.Context(), w, r, pathParam(r, "bucket"), pathParam(r, "filename"))
		})

		// URL generation
		r.Get("/urls/{scheme}", func(w http.ResponseWriter, r *http.Request) {
			s.handleURL(r.Context(), w, r, chi.URLParam(r, "scheme"))
		})
		r.Get("/schemes", func(w http.ResponseWriter, r *http.Request) {
			s.handleSchemes(r.Context(), w, r)
		})
		r.Get("/schemes.html", func(w http.ResponseWriter, r *http.Request) {
			s.handleSchemesPage(r.Context(), w, r)
		})
	})

	return r
}
