package server

import (
	"net/http"
)

// handleSignUp registers a new account with the active provider and opens a
// browser session.
func (app *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := app.providers.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := p.Auth().SignUp(r.Context(), req.Email, req.Password, req.Metadata)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := app.openSession(w, r); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleSignIn authenticates with the active provider and opens a browser
// session.
func (app *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := app.providers.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := p.Auth().SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := app.openSession(w, r); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleSignOut signs out of the provider and clears the session cookie.
func (app *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	p, err := app.providers.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	if err := p.Auth().SignOut(r.Context()); err != nil {
		writeError(w, err)
		return
	}

	app.handleSessionDelete(w, r)
}

// openSession wraps the provider's current token in a session cookie.
func (app *App) openSession(w http.ResponseWriter, r *http.Request) error {
	p, err := app.providers.Get(r.Context())
	if err != nil {
		return err
	}

	providerToken, err := p.Auth().Token(r.Context())
	if err != nil {
		return err
	}

	token, err := app.sessions.Issue(providerToken)
	if err != nil {
		return err
	}

	app.setSessionCookie(w, token, app.cfg.SessionValidityDuration)
	return nil
}
