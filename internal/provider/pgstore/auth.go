package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/dbx"
	"github.com/splitsheet/splitsheet/internal/models"
)

const pgUniqueViolation = "23505"

// AuthClient implements the Auth capability with local credentials: bcrypt
// hashes in the auth_accounts table and self-issued HS256 access tokens.
type AuthClient struct {
	db   *sql.DB
	data *DataClient

	secretKey     []byte
	tokenValidity time.Duration

	mu          sync.Mutex
	accessToken string
	userID      string

	listenerMu sync.Mutex
	listeners  map[int]func(*models.User)
	nextID     int
}

func NewAuthClient(db *sql.DB, data *DataClient, secretKey []byte, tokenValidity time.Duration) *AuthClient {
	return &AuthClient{
		db:            db,
		data:          data,
		secretKey:     secretKey,
		tokenValidity: tokenValidity,
		listeners:     make(map[int]func(*models.User)),
	}
}

func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	var (
		accountID    string
		passwordHash string
	)
	query := `SELECT id, password_hash FROM auth_accounts WHERE email = $1`
	err := a.db.QueryRowContext(ctx, query, email).Scan(&accountID, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown email", common.ErrAuth)
		}
		return nil, dbErr(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: wrong password", common.ErrAuth)
	}

	now := time.Now()
	user, err := a.data.UpdateUser(ctx, accountID, &models.UserUpdate{LastLogin: &now})
	if err != nil {
		return nil, err
	}

	if err := a.openSession(accountID); err != nil {
		return nil, err
	}
	a.notify(user)
	return user, nil
}

func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:        uuid.NewString(),
		Email:     email,
		LastLogin: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if name, ok := metadata["name"].(string); ok {
		user.Name = name
	}
	user.ApplyDefaults(now)

	// The account and its paired profile row are created atomically, so
	// the profile exists before SignUp returns.
	err = dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `INSERT INTO auth_accounts (id, email, password_hash, created_at)
			 VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, query, user.ID, email, string(hash), now); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return fmt.Errorf("%w: email already registered", common.ErrAuth)
			}
			return dbErr(err)
		}
		return a.data.insertUser(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	if err := a.openSession(user.ID); err != nil {
		return nil, err
	}
	a.notify(user)
	return user, nil
}

func (a *AuthClient) SignOut(ctx context.Context) error {
	a.mu.Lock()
	signedIn := a.userID != ""
	a.accessToken = ""
	a.userID = ""
	a.mu.Unlock()

	if signedIn {
		a.notify(nil)
	}
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

// RefreshToken issues a fresh access token for the current session.
func (a *AuthClient) RefreshToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	userID := a.userID
	a.mu.Unlock()

	if userID == "" {
		return "", nil
	}

	token, err := GenerateToken(userID, a.secretKey, a.tokenValidity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrProvider, err)
	}

	a.mu.Lock()
	a.accessToken = token
	a.mu.Unlock()

	if user, err := a.data.GetUser(ctx, userID); err == nil {
		a.notify(user)
	}
	return token, nil
}

func (a *AuthClient) openSession(userID string) error {
	token, err := GenerateToken(userID, a.secretKey, a.tokenValidity)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrProvider, err)
	}

	a.mu.Lock()
	a.accessToken = token
	a.userID = userID
	a.mu.Unlock()
	return nil
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
