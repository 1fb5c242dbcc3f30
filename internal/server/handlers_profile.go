package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/models"
)

// Profile photos over this size are rejected before touching storage.
const maxPhotoSize = 8 << 20

func (app *App) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	user, err := app.profileService.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (app *App) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.UserUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}

	user, err := app.profileService.Update(r.Context(), chi.URLParam(r, "userId"), &upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleProfilePhoto accepts the raw image bytes with their content type and
// responds with the stored photo's URL.
func (app *App) handleProfilePhoto(w http.ResponseWriter, r *http.Request) {
	photo, err := io.ReadAll(io.LimitReader(r.Body, maxPhotoSize+1))
	if err != nil {
		writeError(w, err)
		return
	}
	if len(photo) == 0 || len(photo) > maxPhotoSize {
		writeError(w, common.ErrValidation)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := app.profileService.UploadPhoto(r.Context(), chi.URLParam(r, "userId"), photo, contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
