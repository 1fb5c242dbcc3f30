package server

import (
	"net/http"

	"github.com/splitsheet/splitsheet/internal/migration"
	"github.com/splitsheet/splitsheet/internal/provider/docstore"
	"github.com/splitsheet/splitsheet/internal/provider/pgstore"
)

// handleMigrateActions lists the supported migration actions.
func (app *App) handleMigrateActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"actions": []string{
			migration.ActionMigrateUsers,
			migration.ActionMigrateAgreements,
			migration.ActionMigrateFiles,
			migration.ActionFullMigration,
			migration.ActionValidate,
		},
	})
}

// handleMigrateRun copies records from the document platform to Postgres.
// Both adapters are constructed directly: migration always addresses both
// backends regardless of the selection flag.
func (app *App) handleMigrateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	source := docstore.New(app.cfg, app.log)
	target, err := pgstore.New(r.Context(), app.cfg, app.log)
	if err != nil {
		writeError(w, err)
		return
	}
	defer target.Close()

	result := migration.NewTools(source, target, app.log).Run(r.Context(), req.Action)

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}
