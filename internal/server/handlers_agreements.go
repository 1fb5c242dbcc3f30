package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/models"
)

func (app *App) handleAgreementCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string           `json:"userId"`
		Agreement models.Agreement `json:"agreement"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == "" {
		writeError(w, fmt.Errorf("%w: userId is required", common.ErrValidation))
		return
	}

	created, err := app.agreementService.Create(r.Context(), req.UserID, &req.Agreement)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleAgreementList lists the user's agreements; status, type, search and
// the creation date range are optional query filters.
func (app *App) handleAgreementList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, fmt.Errorf("%w: userId is required", common.ErrValidation))
		return
	}

	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, err)
		return
	}

	list, err := app.agreementService.List(r.Context(), userID, filters)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func parseFilters(r *http.Request) (*models.AgreementFilters, error) {
	q := r.URL.Query()
	filters := &models.AgreementFilters{
		Status: q.Get("status"),
		Type:   q.Get("type"),
		Search: q.Get("search"),
	}

	for param, dst := range map[string]**time.Time{
		"dateFrom": &filters.DateFrom,
		"dateTo":   &filters.DateTo,
	} {
		if v := q.Get(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be RFC3339", common.ErrValidation, param)
			}
			*dst = &t
		}
	}
	return filters, nil
}

func (app *App) handleAgreementStats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, fmt.Errorf("%w: userId is required", common.ErrValidation))
		return
	}

	stats, err := app.agreementService.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (app *App) handleAgreementGet(w http.ResponseWriter, r *http.Request) {
	agreement, err := app.agreementService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if agreement == nil {
		writeError(w, fmt.Errorf("%w: agreement", common.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, agreement)
}

func (app *App) handleAgreementUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.AgreementUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeError(w, err)
		return
	}

	updated, err := app.agreementService.Update(r.Context(), chi.URLParam(r, "id"), &upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (app *App) handleAgreementDelete(w http.ResponseWriter, r *http.Request) {
	if err := app.agreementService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (app *App) handleAgreementDuplicate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Title  string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == "" {
		writeError(w, fmt.Errorf("%w: userId is required", common.ErrValidation))
		return
	}
	if req.Title == "" {
		writeError(w, fmt.Errorf("%w: title is required", common.ErrValidation))
		return
	}

	copied, err := app.agreementService.Duplicate(r.Context(), chi.URLParam(r, "id"), req.Title, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, copied)
}

func (app *App) handleAgreementExport(w http.ResponseWriter, r *http.Request) {
	exported, err := app.agreementService.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(exported))
}

func (app *App) handleAgreementImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Data   string `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserID == "" {
		writeError(w, fmt.Errorf("%w: userId is required", common.ErrValidation))
		return
	}

	imported, err := app.agreementService.Import(r.Context(), req.UserID, req.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, imported)
}

func (app *App) handleAgreementStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		PDF    string `json:"pdf"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Status == "" {
		writeError(w, fmt.Errorf("%w: status is required", common.ErrValidation))
		return
	}

	updated, err := app.agreementService.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status, req.PDF)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (app *App) handleSignerAdd(w http.ResponseWriter, r *http.Request) {
	var signer models.Signer
	if err := decodeJSON(r, &signer); err != nil {
		writeError(w, err)
		return
	}

	added, err := app.agreementService.AddSigner(r.Context(), chi.URLParam(r, "id"), &signer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (app *App) handleSignerRemove(w http.ResponseWriter, r *http.Request) {
	err := app.agreementService.RemoveSigner(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "signerId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (app *App) handleSignerSignature(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Signature string `json:"signature"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	signedAt, err := app.agreementService.UpdateSignerSignature(r.Context(),
		chi.URLParam(r, "id"), chi.URLParam(r, "signerId"), req.Signature)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"signedAt": signedAt})
}
