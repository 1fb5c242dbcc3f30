package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the chi router for the public API.
func (app *App) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
	)

	r.Get("/api/health", app.handleHealth)

	r.Route("/api/session", func(r chi.Router) {
		r.Post("/", app.handleSessionCreate)
		r.Get("/", app.handleSessionGet)
		r.Delete("/", app.handleSessionDelete)
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/signup", app.handleSignUp)
		r.Post("/signin", app.handleSignIn)
		r.Post("/signout", app.handleSignOut)
	})

	r.Route("/api/agreements", func(r chi.Router) {
		r.Post("/", app.handleAgreementCreate)
		r.Get("/", app.handleAgreementList)
		r.Get("/stats", app.handleAgreementStats)
		r.Post("/import", app.handleAgreementImport)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", app.handleAgreementGet)
			r.Get("/export", app.handleAgreementExport)
			r.Post("/duplicate", app.handleAgreementDuplicate)
			r.Patch("/", app.handleAgreementUpdate)
			r.Delete("/", app.handleAgreementDelete)
			r.Patch("/status", app.handleAgreementStatus)
			r.Post("/signers", app.handleSignerAdd)
			r.Delete("/signers/{signerId}", app.handleSignerRemove)
			r.Post("/signers/{signerId}/signature", app.handleSignerSignature)
		})
	})

	r.Route("/api/profile/{userId}", func(r chi.Router) {
		r.Get("/", app.handleProfileGet)
		r.Patch("/", app.handleProfileUpdate)
		r.Post("/photo", app.handleProfilePhoto)
	})

	r.Route("/api/migrate", func(r chi.Router) {
		r.Get("/", app.handleMigrateActions)
		r.Post("/", app.handleMigrateRun)
	})

	return r
}
