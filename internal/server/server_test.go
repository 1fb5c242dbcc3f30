package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsheet/splitsheet/internal/config"
	"github.com/splitsheet/splitsheet/internal/logging"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return NewApp(cfg, logging.NewLogger("production"))
}

func doRequest(t *testing.T, app *App, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	rec := doRequest(t, app, http.MethodGet, "/api/health", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status           string          `json:"status"`
		SelectedProvider string          `json:"selectedProvider"`
		ActiveProvider   string          `json:"activeProvider"`
		Credentials      map[string]bool `json:"credentials"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "docstore", resp.SelectedProvider)
	// The health surface never constructs a provider.
	assert.Equal(t, "none", resp.ActiveProvider)
	assert.True(t, resp.Credentials["secretKey"])
	assert.False(t, resp.Credentials["docstoreApiKey"])
}

func TestHealth_PostgresSelected(t *testing.T) {
	app := newTestApp(t)
	app.cfg.UsePostgres = true

	rec := doRequest(t, app, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"selectedProvider":"postgres"`)
}

func TestSession_RoundTrip(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodPost, "/api/session", `{"token":"provider-token-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, sessionCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(cookie)
	getRec := httptest.NewRecorder()
	app.Router().ServeHTTP(getRec, req)

	require.Equal(t, http.StatusOK, getRec.Code)
	var resp struct {
		Valid     bool      `json:"valid"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.WithinDuration(t, time.Now().Add(app.cfg.SessionValidityDuration), resp.ExpiresAt, time.Minute)
}

func TestSession_GetWithoutCookie(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestSession_GetWithTamperedCookie(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tampered"})
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valid":false`)
}

func TestSession_Delete(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodDelete, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestAgreementCreate_RequiresUserID(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodPost, "/api/agreements", `{"agreement":{"title":"Split"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgreementList_RequiresUserID(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/api/agreements", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgreementList_BadDateFilter(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/api/agreements?userId=u1&dateFrom=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "RFC3339")
}

func TestAgreementDuplicate_RequiresTitle(t *testing.T) {
	app := newTestApp(t)
	rec := doRequest(t, app, http.MethodPost, "/api/agreements/a1/duplicate", `{"userId":"user-1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title is required")
}

func TestAgreementImport_RequiresUserID(t *testing.T) {
	app := newTestApp(t)
	rec := doRequest(t, app, http.MethodPost, "/api/agreements/import", `{"data":"{}"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "userId is required")
}

func TestAgreementStatus_RequiresStatus(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodPatch, "/api/agreements/a1/status", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMigrateActions(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodGet, "/api/migrate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "full-migration")
	assert.Contains(t, rec.Body.String(), "validate")
}

func TestProfilePhoto_RejectsEmptyBody(t *testing.T) {
	app := newTestApp(t)

	rec := doRequest(t, app, http.MethodPost, "/api/profile/u1/photo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// signInFlow exercises the document-platform path end to end against a stub
// platform.
func TestSignIn_AgainstStubPlatform(t *testing.T) {
	platform := http.NewServeMux()
	platform.HandleFunc("/auth/v1/signin", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"accessToken":  "access-1",
			"refreshToken": "refresh-1",
			"user":         map[string]string{"id": "user-1", "email": "a@b.c"},
		})
	})
	platform.HandleFunc("/api/v1/collections/users/documents/user-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "a@b.c", "name": "A"})
	})
	srv := httptest.NewServer(platform)
	defer srv.Close()

	app := newTestApp(t)
	app.cfg.DocstoreBaseURL = srv.URL
	app.cfg.DocstoreAPIKey = "test-key"

	rec := doRequest(t, app, http.MethodPost, "/api/auth/signin", `{"email":"a@b.c","password":"secret"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"user-1"`)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}
