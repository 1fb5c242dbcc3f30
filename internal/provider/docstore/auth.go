package docstore

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/splitsheet/splitsheet/internal/models"
)

// AuthClient implements the Auth capability over the platform's auth
// endpoints. Session state is held in memory; the platform issues an access
// token and a refresh token per session.
type AuthClient struct {
	c    *Client
	data *DataClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	userID       string

	listenerMu sync.Mutex
	listeners  map[int]func(*models.User)
	nextID     int
}

func NewAuthClient(c *Client, data *DataClient) *AuthClient {
	return &AuthClient{
		c:         c,
		data:      data,
		listeners: make(map[int]func(*models.User)),
	}
}

type authCredentials struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var resp authResponse
	body := authCredentials{Email: email, Password: password}
	if err := a.c.doJSON(ctx, http.MethodPost, "/auth/v1/signin", nil, body, &resp); err != nil {
		return nil, normalizeAuthErr(err)
	}
	a.setSession(resp)

	user, err := a.ensureProfile(ctx, resp.User.ID, resp.User.Email, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if updated, err := a.data.UpdateUser(ctx, user.ID, &models.UserUpdate{LastLogin: &now}); err == nil {
		user = updated
	}

	a.notify(user)
	return user, nil
}

func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.User, error) {
	var resp authResponse
	body := authCredentials{Email: email, Password: password, Metadata: metadata}
	if err := a.c.doJSON(ctx, http.MethodPost, "/auth/v1/signup", nil, body, &resp); err != nil {
		return nil, normalizeAuthErr(err)
	}
	a.setSession(resp)

	// The paired profile record must exist before SignUp returns.
	user, err := a.ensureProfile(ctx, resp.User.ID, resp.User.Email, metadata)
	if err != nil {
		return nil, err
	}

	a.notify(user)
	return user, nil
}

func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	signedIn := a.accessToken != ""
	a.accessToken = ""
	a.refreshToken = ""
	a.userID = ""
	a.mu.Unlock()

	if !signedIn {
		return nil
	}

	if err := a.c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil); err != nil {
		return normalizeAuthErr(err)
	}
	a.notify(nil)
	return nil
}

func (a *AuthClient) CurrentUser(ctx context.Context) (*models.User, error) {
	a.mu.Lock()
	userID := a.userID
	a.mu.Unlock()

	if userID == "" {
		return nil, nil
	}
	return a.data.GetUser(ctx, userID)
}

func (a *AuthClient) OnAuthStateChanged(fn func(*models.User)) func() {
	a.listenerMu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.listenerMu.Lock()
			delete(a.listeners, id)
			a.listenerMu.Unlock()
		})
	}
}

// Token returns the cached access token without checking freshness.
func (a *AuthClient) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accessToken, nil
}

// RefreshToken exchanges the refresh token for a fresh access token.
func (a *AuthClient) RefreshToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	refresh := a.refreshToken
	a.mu.Unlock()

	if refresh == "" {
		return "", nil
	}

	var resp authResponse
	body := map[string]string{"refreshToken": refresh}
	if err := a.c.doJSON(ctx, http.MethodPost, "/auth/v1/token", nil, body, &resp); err != nil {
		return "", normalizeAuthErr(err)
	}

	a.mu.Lock()
	a.accessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		a.refreshToken = resp.RefreshToken
	}
	userID := a.userID
	a.mu.Unlock()

	if user, err := a.data.GetUser(ctx, userID); err == nil {
		a.notify(user)
	}
	return resp.AccessToken, nil
}

func (a *AuthClient) setSession(resp authResponse) {
	a.mu.Lock()
	a.accessToken = resp.AccessToken
	a.refreshToken = resp.RefreshToken
	a.userID = resp.User.ID
	a.mu.Unlock()
}

// ensureProfile loads the profile record paired with the auth identity,
// creating it from the identity when absent.
func (a *AuthClient) ensureProfile(ctx context.Context, userID, email string, metadata map[string]any) (*models.User, error) {
	user, err := a.data.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	now := time.Now()
	user = &models.User{
		ID:        userID,
		Email:     email,
		LastLogin: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name, ok := metadata["name"].(string); ok {
		user.Name = name
	}
	user.ApplyDefaults(now)

	// Upsert keyed by the auth id so the profile and identity share one id.
	if err := a.data.UpsertUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (a *AuthClient) notify(user *models.User) {
	a.listenerMu.Lock()
	fns := make([]func(*models.User), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.listenerMu.Unlock()

	for _, fn := range fns {
		go fn(user)
	}
}
