package server

import "net/http"

// handleHealth reports the selected provider and which credentials are
// present. It never constructs a provider and never leaks secret values.
func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	selected := app.providers.CurrentProviderName()

	active := "none"
	if p := app.providers.CurrentProvider(); p != nil {
		active = p.Name()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"selectedProvider": selected,
		"activeProvider":   active,
		"usePostgres":      app.cfg.UsePostgres,
		"credentials": map[string]bool{
			"docstoreBaseUrl": app.cfg.DocstoreBaseURL != "",
			"docstoreApiKey":  app.cfg.DocstoreAPIKey != "",
			"databaseDsn":     app.cfg.DatabaseDSN != "",
			"s3Credentials":   app.cfg.S3RootUser != "" && app.cfg.S3RootPassword != "",
			"secretKey":       app.cfg.SecretKey != "",
		},
	})
}
