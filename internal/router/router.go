// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// handbook admin API. Routes are split into public auth endpoints and the
// authenticated editor area.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"handbook/internal/handlers"
	"handbook/internal/middleware"
	"handbook/internal/session"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up. limiter guards the credential endpoints.
func New(sessions *session.Store, auth *handlers.Auth, ed *handlers.Editor, limiter *middleware.RateLimiter, corsOrigin string) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(corsOrigin))
	r.Use(middleware.LoadSession(sessions))

	r.Get("/health", healthHandler)

	r.Get("/api/auth/session", auth.Session)

	r.Route("/api/admin", func(r chi.Router) {
		// Credential endpoints, accessible without a session.
		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)
			r.Post("/signup", auth.Signup)
			r.Post("/login", auth.Login)
		})
		r.Post("/logout", auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Route("/documents", func(r chi.Router) {
				r.Get("/", ed.ListDocuments)
				r.Get("/folders", ed.Folders)
				r.Get("/category-slug", ed.CategoryBySlug)
				r.Post("/create-folder", ed.CreateFolder)
				r.Put("/update-category", ed.UpdateCategory)
				r.Delete("/delete-folder", ed.DeleteFolder)
				r.Get("/document", ed.GetDocument)
				r.Post("/create-document", ed.CreateDocument)
				r.Put("/update-document", ed.UpdateDocument)
				r.Delete("/delete-document", ed.DeleteDocument)
			})

			r.Route("/user-branches", func(r chi.Router) {
				r.Get("/diff", ed.BranchDiff)
				r.Get("/has-diff", ed.HasDiff)
			})

			r.Route("/pull-requests", func(r chi.Router) {
				r.Post("/", ed.CreatePullRequest)
				r.Get("/reviewers", ed.Reviewers)
				r.With(middleware.RequireAdmin).Post("/{id}/merge", ed.MergePullRequest)
			})

			r.Get("/users", ed.Users)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":"Not found"}`)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, `{"status":"ok"}`)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
