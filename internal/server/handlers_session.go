package server

import (
	"net/http"
	"time"
)

const sessionCookieName = "splitsheet_session"

// handleSessionCreate wraps a provider token in a session token and sets it
// as an http-only cookie.
func (app *App) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	token, err := app.sessions.Issue(req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	app.setSessionCookie(w, token, app.cfg.SessionValidityDuration)
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
}

// handleSessionGet validates the session cookie and reports the decoded
// session.
func (app *App) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
		return
	}

	s, err := app.sessions.Validate(cookie.Value)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": false})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":     s.Valid(time.Now()),
		"issuedAt":  s.IssuedAt,
		"expiresAt": s.ExpiresAt,
	})
}

// handleSessionDelete clears the session cookie.
func (app *App) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	app.setSessionCookie(w, "", -time.Hour)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (app *App) setSessionCookie(w http.ResponseWriter, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
