package pgstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/splitsheet/splitsheet/internal/models"
)

// jsonb renders a value as a jsonb column payload.
func jsonb(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode jsonb: %w", err)
	}
	return b, nil
}

func decodeJSONB[T any](raw []byte, out *T) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode jsonb: %w", err)
	}
	return nil
}

// rowScanner matches both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `id, email, name, profile_picture, phone, company, role,
	is_email_verified, last_login, preferences,
	stripe_customer_id, stripe_price_id, stripe_subscription_id, stripe_subscription_status,
	created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		preferences []byte
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.ProfilePicture, &u.Phone, &u.Company, &u.Role,
		&u.IsEmailVerified, &u.LastLogin, &preferences,
		&u.StripeCustomerID, &u.StripePriceID, &u.StripeSubscriptionID, &u.StripeSubscriptionStatus,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONB(preferences, &u.Preferences); err != nil {
		return nil, err
	}
	u.ApplyDefaults(time.Now())
	return &u, nil
}

const agreementColumns = `id, title, song_title, description, publication_date, last_modified,
	composers, status, type, created_by, signers, signer_emails, document_url, metadata,
	expires_at, signed_at, completed_at, pdf_url, created_at, updated_at`

func scanAgreement(row rowScanner) (*models.Agreement, error) {
	var (
		a            models.Agreement
		composers    []byte
		signers      []byte
		signerEmails []byte
		metadata     []byte
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.SongTitle, &a.Description, &a.PublicationDate, &a.LastModified,
		&composers, &a.Status, &a.Type, &a.CreatedBy, &signers, &signerEmails, &a.DocumentURL, &metadata,
		&a.ExpiresAt, &a.SignedAt, &a.CompletedAt, &a.PDFURL, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := decodeJSONB(composers, &a.Composers); err != nil {
		return nil, err
	}
	if err := decodeJSONB(signers, &a.Signers); err != nil {
		return nil, err
	}
	if err := decodeJSONB(signerEmails, &a.SignerEmails); err != nil {
		return nil, err
	}
	if err := decodeJSONB(metadata, &a.Metadata); err != nil {
		return nil, err
	}
	a.ApplyDefaults(time.Now())
	return &a, nil
}
