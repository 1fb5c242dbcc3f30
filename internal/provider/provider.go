// Package provider defines the capability contract every backing-service
// adapter must satisfy. An adapter bundles three capability sets (Auth,
// Data and Storage) over one specific backend, translating between that
// backend's native record shape and the canonical models.
package provider

import (
	"context"
	"time"

	"github.com/splitsheet/splitsheet/internal/models"
)

// Provider names, reported by Name() and by the selection facade.
const (
	NameDocstore = "docstore"
	NamePostgres = "postgres"
)

// Provider is one backing-service adapter. Adapters are stateless wrappers
// over network calls and are cheap and idempotent to construct.
type Provider interface {
	// Name returns the provider identifier (NameDocstore or NamePostgres).
	Name() string
	Auth() Auth
	Data() Data
	Storage() Storage
}

// Auth is the authentication capability. Failures caused by bad credentials
// or a missing session are reported as common.ErrAuth; backend faults as
// common.ErrProvider.
type Auth interface {
	// SignIn authenticates with email and password and returns the
	// canonical user.
	SignIn(ctx context.Context, email, password string) (*models.User, error)

	// SignUp registers a new identity. On success the paired canonical
	// profile record exists before SignUp returns.
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*models.User, error)

	// SignOut terminates the current session. Idempotent: signing out
	// with no active session is not an error.
	SignOut(ctx context.Context) error

	// CurrentUser returns the signed-in user, or (nil, nil) when there is
	// no session.
	CurrentUser(ctx context.Context) (*models.User, error)

	// OnAuthStateChanged registers a callback invoked asynchronously,
	// at least once per actual state transition (sign-in, sign-out, token
	// refresh). Ordering relative to other transitions fired in the same
	// instant is not guaranteed. The returned unsubscribe function is
	// idempotent and stops all future invocations once called.
	OnAuthStateChanged(fn func(*models.User)) (unsubscribe func())

	// Token returns the current access token, possibly cached by the
	// backend client. Do not rely on it for freshness. Returns "" with a
	// nil error when no session exists.
	Token(ctx context.Context) (string, error)

	// RefreshToken always contacts the backend for a fresh token, never
	// returning a cached value. Returns "" with a nil error when no
	// session exists.
	RefreshToken(ctx context.Context) (string, error)
}

// Data is the record capability for users and agreements.
//
// Reads that find nothing return (nil, nil); updates of a missing record
// fail with common.ErrNotFound. The signer operations are non-atomic
// read-modify-write over the embedded signer array: the whole array is
// written back, so concurrent signer edits on one agreement from different
// processes are last-write-wins. Callers needing strong consistency must
// serialize signer edits externally.
type Data interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateUser(ctx context.Context, userID string, upd *models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error

	// CreateAgreement accepts a partial record and fills every omitted
	// optional field with its declared default before persisting.
	CreateAgreement(ctx context.Context, agreement *models.Agreement) (*models.Agreement, error)
	GetAgreement(ctx context.Context, agreementID string) (*models.Agreement, error)
	// GetAgreements returns every agreement owned by userID that matches
	// the filters, ordered by creation time descending.
	GetAgreements(ctx context.Context, userID string, filters *models.AgreementFilters) ([]*models.Agreement, error)
	UpdateAgreement(ctx context.Context, agreementID string, upd *models.AgreementUpdate) (*models.Agreement, error)
	DeleteAgreement(ctx context.Context, agreementID string) error

	// UpdateSignerSignature marks the matching signer as signed with the
	// given signature payload and returns the timestamp used.
	UpdateSignerSignature(ctx context.Context, agreementID, signerID, signatureData string) (time.Time, error)
	// AddSigner synthesizes an id, defaults role/status/order, appends
	// the signer and persists the whole list.
	AddSigner(ctx context.Context, agreementID string, signer *models.Signer) (*models.Signer, error)
	// RemoveSigner filters the matching id out without renumbering the
	// remaining order values.
	RemoveSigner(ctx context.Context, agreementID, signerID string) error

	// Admin surface used by the migration tool, which talks to both
	// adapters directly. Upserts are keyed by the record id and are
	// idempotent on re-run.
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListAgreements(ctx context.Context) ([]*models.Agreement, error)
	UpsertUser(ctx context.Context, user *models.User) error
	UpsertAgreement(ctx context.Context, agreement *models.Agreement) error
}

// UploadOptions carries optional parameters for Storage.Upload.
type UploadOptions struct {
	ContentType string
	// Upsert overwrites an existing object at the same path.
	Upsert bool
}

// Storage is the object storage capability.
type Storage interface {
	// Upload stores the bytes and returns the object's download URL.
	Upload(ctx context.Context, bucket, path string, data []byte, opts *UploadOptions) (string, error)
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Delete(ctx context.Context, bucket, path string) error

	// PublicURL derives the permanent URL for bucket+path. It is purely
	// computational and never contacts the backend.
	PublicURL(bucket, path string) string

	// SignedURL returns a time-limited URL. A provider without native
	// expiring URLs falls back to the permanent public URL, so callers
	// must treat the result as best-effort temporary.
	SignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error)
}

// DefaultSignedURLExpiry is used when callers pass a non-positive expiry.
const DefaultSignedURLExpiry = time.Hour
