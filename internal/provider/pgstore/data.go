package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/dbx"
	"github.com/splitsheet/splitsheet/internal/models"
)

// DataClient implements the Data capability over PostgreSQL. Users and
// agreements live in their own tables; composers, signers and the other
// loosely structured fields are jsonb columns.
type DataClient struct {
	db *sql.DB

	// Serializes in-process signer edits per agreement, on top of the
	// row lock taken inside the transaction.
	signerLocks common.KeyedMutex
}

func NewDataClient(db *sql.DB) *DataClient {
	return &DataClient{db: db}
}

// dbErr wraps a backend failure as a provider fault.
func dbErr(err error) error {
	return fmt.Errorf("%w: %v", common.ErrProvider, err)
}

// Users

func (d *DataClient) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	user.ApplyDefaults(now)

	if err := d.insertUser(ctx, d.db, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (d *DataClient) insertUser(ctx context.Context, db dbx.DBTX, user *models.User) error {
	preferences, err := jsonb(user.Preferences)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.ProfilePicture, user.Phone, user.Company, user.Role,
		user.IsEmailVerified, user.LastLogin, preferences,
		user.StripeCustomerID, user.StripePriceID, user.StripeSubscriptionID, user.StripeSubscriptionStatus,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (d *DataClient) GetUser(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(d.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dbErr(err)
	}
	return user, nil
}

func (d *DataClient) UpdateUser(ctx context.Context, userID string, upd *models.UserUpdate) (*models.User, error) {
	var updated *models.User

	err := dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
		user, err := scanUser(tx.QueryRowContext(ctx, query, userID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
			}
			return dbErr(err)
		}

		if upd != nil {
			upd.Apply(user)
		}
		user.UpdatedAt = time.Now()

		preferences, err := jsonb(user.Preferences)
		if err != nil {
			return err
		}

		update := `UPDATE users SET
			 email = $2, name = $3, profile_picture = $4, phone = $5, company = $6, role = $7,
			 is_email_verified = $8, last_login = $9, preferences = $10,
			 stripe_customer_id = $11, stripe_price_id = $12,
			 stripe_subscription_id = $13, stripe_subscription_status = $14,
			 updated_at = $15
			 WHERE id = $1`

		if _, err := tx.ExecContext(ctx, update,
			user.ID, user.Email, user.Name, user.ProfilePicture, user.Phone, user.Company, user.Role,
			user.IsEmailVerified, user.LastLogin, preferences,
			user.StripeCustomerID, user.StripePriceID, user.StripeSubscriptionID, user.StripeSubscriptionStatus,
			user.UpdatedAt); err != nil {
			return dbErr(err)
		}

		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *DataClient) DeleteUser(ctx context.Context, userID string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		return dbErr(err)
	}
	return nil
}

// Agreements

func (d *DataClient) CreateAgreement(ctx context.Context, agreement *models.Agreement) (*models.Agreement, error) {
	now := time.Now()
	if agreement.ID == "" {
		agreement.ID = uuid.NewString()
	}
	agreement.CreatedAt = now
	agreement.UpdatedAt = now
	agreement.LastModified = now
	agreement.ApplyDefaults(now)

	if err := d.insertAgreement(ctx, d.db, agreement); err != nil {
		return nil, err
	}
	return agreement, nil
}

func (d *DataClient) insertAgreement(ctx context.Context, db dbx.DBTX, a *models.Agreement) error {
	args, err := agreementArgs(a)
	if err != nil {
		return err
	}

	query := `INSERT INTO agreements (` + agreementColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return dbErr(err)
	}
	return nil
}

// agreementArgs renders a full agreement row in column order.
func agreementArgs(a *models.Agreement) ([]any, error) {
	composers, err := jsonb(a.Composers)
	if err != nil {
		return nil, err
	}
	signers, err := jsonb(a.Signers)
	if err != nil {
		return nil, err
	}
	signerEmails, err := jsonb(a.SignerEmails)
	if err != nil {
		return nil, err
	}
	metadata, err := jsonb(a.Metadata)
	if err != nil {
		return nil, err
	}

	return []any{
		a.ID, a.Title, a.SongTitle, a.Description, a.PublicationDate, a.LastModified,
		composers, a.Status, a.Type, a.CreatedBy, signers, signerEmails, a.DocumentURL, metadata,
		a.ExpiresAt, a.SignedAt, a.CompletedAt, a.PDFURL, a.CreatedAt, a.UpdatedAt,
	}, nil
}

func (d *DataClient) GetAgreement(ctx context.Context, agreementID string) (*models.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`

	agreement, err := scanAgreement(d.db.QueryRowContext(ctx, query, agreementID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, dbErr(err)
	}
	return agreement, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLikePattern escapes the ILIKE metacharacters so a search term
// matches literally, the way the document provider matches it.
func escapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// buildAgreementsQuery renders the filtered listing as SQL. Every predicate
// is evaluated server-side, mirroring the in-memory filter semantics of the
// document provider.
func buildAgreementsQuery(userID string, filters *models.AgreementFilters) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + agreementColumns + ` FROM agreements WHERE created_by = $1`)
	args := []any{userID}

	if filters != nil {
		if filters.Status != "" {
			args = append(args, filters.Status)
			fmt.Fprintf(&sb, " AND status = $%d", len(args))
		}
		if filters.Type != "" {
			args = append(args, filters.Type)
			fmt.Fprintf(&sb, " AND type = $%d", len(args))
		}
		if filters.DateFrom != nil {
			args = append(args, *filters.DateFrom)
			fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
		}
		if filters.DateTo != nil {
			args = append(args, *filters.DateTo)
			fmt.Fprintf(&sb, " AND created_at <= $%d", len(args))
		}
		if filters.Search != "" {
			args = append(args, "%"+escapeLikePattern(filters.Search)+"%")
			fmt.Fprintf(&sb, ` AND (title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, len(args), len(args))
		}
	}

	sb.WriteString(" ORDER BY created_at DESC")
	return sb.String(), args
}

func (d *DataClient) GetAgreements(ctx context.Context, userID string, filters *models.AgreementFilters) ([]*models.Agreement, error) {
	query, args := buildAgreementsQuery(userID, filters)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	agreements := []*models.Agreement{}
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		agreements = append(agreements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return agreements, nil
}

func (d *DataClient) UpdateAgreement(ctx context.Context, agreementID string, upd *models.AgreementUpdate) (*models.Agreement, error) {
	var updated *models.Agreement

	err := dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		agreement, err := d.lockAgreement(ctx, tx, agreementID)
		if err != nil {
			return err
		}

		if upd != nil {
			upd.Apply(agreement)
		}
		now := time.Now()
		agreement.UpdatedAt = now
		agreement.LastModified = now

		if err := d.writeAgreement(ctx, tx, agreement); err != nil {
			return err
		}
		updated = agreement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (d *DataClient) DeleteAgreement(ctx context.Context, agreementID string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM agreements WHERE id = $1`, agreementID); err != nil {
		return dbErr(err)
	}
	return nil
}

// lockAgreement loads the agreement row under FOR UPDATE.
func (d *DataClient) lockAgreement(ctx context.Context, tx dbx.DBTX, agreementID string) (*models.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1 FOR UPDATE`

	agreement, err := scanAgreement(tx.QueryRowContext(ctx, query, agreementID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: agreement %s", common.ErrNotFound, agreementID)
		}
		return nil, dbErr(err)
	}
	return agreement, nil
}

func (d *DataClient) writeAgreement(ctx context.Context, tx dbx.DBTX, a *models.Agreement) error {
	args, err := agreementArgs(a)
	if err != nil {
		return err
	}

	query := `UPDATE agreements SET
		 title = $2, song_title = $3, description = $4, publication_date = $5, last_modified = $6,
		 composers = $7, status = $8, type = $9, created_by = $10, signers = $11, signer_emails = $12,
		 document_url = $13, metadata = $14, expires_at = $15, signed_at = $16, completed_at = $17,
		 pdf_url = $18, created_at = $19, updated_at = $20
		 WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return dbErr(err)
	}
	return nil
}

// Signer mutation protocol: the whole signer array is rewritten under a row
// lock, so concurrent edits within this process and database are serialized.
// Edits racing through different databases remain last-write-wins.

func (d *DataClient) UpdateSignerSignature(ctx context.Context, agreementID, signerID, signatureData string) (time.Time, error) {
	unlock := d.signerLocks.Lock(agreementID)
	defer unlock()

	var signedAt time.Time
	err := dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		agreement, err := d.lockAgreement(ctx, tx, agreementID)
		if err != nil {
			return err
		}

		idx := -1
		for i := range agreement.Signers {
			if agreement.Signers[i].ID == signerID {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("%w: signer %s in agreement %s", common.ErrNotFound, signerID, agreementID)
		}

		signedAt = time.Now()
		agreement.Signers[idx].Signed = true
		agreement.Signers[idx].SignedAt = &signedAt
		agreement.Signers[idx].Signature = signatureData
		agreement.UpdatedAt = signedAt
		agreement.LastModified = signedAt

		return d.writeAgreement(ctx, tx, agreement)
	})
	if err != nil {
		return time.Time{}, err
	}
	return signedAt, nil
}

func (d *DataClient) AddSigner(ctx context.Context, agreementID string, signer *models.Signer) (*models.Signer, error) {
	unlock := d.signerLocks.Lock(agreementID)
	defer unlock()

	var added models.Signer
	err := dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		agreement, err := d.lockAgreement(ctx, tx, agreementID)
		if err != nil {
			return err
		}

		now := time.Now()
		added = models.Signer{
			ID:     models.NewSignerID(now),
			UserID: signer.UserID,
			Email:  signer.Email,
			Name:   signer.Name,
			Role:   signer.Role,
			Status: models.SignerStatusPending,
			Order:  len(agreement.Signers) + 1,
		}
		if added.Role == "" {
			added.Role = models.DefaultSignerRole
		}

		agreement.Signers = append(agreement.Signers, added)
		agreement.UpdatedAt = now
		agreement.LastModified = now

		return d.writeAgreement(ctx, tx, agreement)
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

func (d *DataClient) RemoveSigner(ctx context.Context, agreementID, signerID string) error {
	unlock := d.signerLocks.Lock(agreementID)
	defer unlock()

	return dbx.WithTx(ctx, d.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		agreement, err := d.lockAgreement(ctx, tx, agreementID)
		if err != nil {
			return err
		}

		// Remaining order values are intentionally not renumbered.
		filtered := make([]models.Signer, 0, len(agreement.Signers))
		for _, s := range agreement.Signers {
			if s.ID != signerID {
				filtered = append(filtered, s)
			}
		}

		now := time.Now()
		agreement.Signers = filtered
		agreement.UpdatedAt = now
		agreement.LastModified = now

		return d.writeAgreement(ctx, tx, agreement)
	})
}

// Admin surface for the migration tool.

func (d *DataClient) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return users, nil
}

func (d *DataClient) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements ORDER BY created_at`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, dbErr(err)
	}
	defer rows.Close()

	agreements := []*models.Agreement{}
	for rows.Next() {
		a, err := scanAgreement(rows)
		if err != nil {
			return nil, dbErr(err)
		}
		agreements = append(agreements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr(err)
	}
	return agreements, nil
}

func (d *DataClient) UpsertUser(ctx context.Context, user *models.User) error {
	u := *user
	u.ApplyDefaults(time.Now())

	preferences, err := jsonb(u.Preferences)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		 email = EXCLUDED.email, name = EXCLUDED.name, profile_picture = EXCLUDED.profile_picture,
		 phone = EXCLUDED.phone, company = EXCLUDED.company, role = EXCLUDED.role,
		 is_email_verified = EXCLUDED.is_email_verified, last_login = EXCLUDED.last_login,
		 preferences = EXCLUDED.preferences, stripe_customer_id = EXCLUDED.stripe_customer_id,
		 stripe_price_id = EXCLUDED.stripe_price_id, stripe_subscription_id = EXCLUDED.stripe_subscription_id,
		 stripe_subscription_status = EXCLUDED.stripe_subscription_status,
		 created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`

	_, err = d.db.ExecContext(ctx, query,
		u.ID, u.Email, u.Name, u.ProfilePicture, u.Phone, u.Company, u.Role,
		u.IsEmailVerified, u.LastLogin, preferences,
		u.StripeCustomerID, u.StripePriceID, u.StripeSubscriptionID, u.StripeSubscriptionStatus,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (d *DataClient) UpsertAgreement(ctx context.Context, agreement *models.Agreement) error {
	a := *agreement
	a.ApplyDefaults(time.Now())

	args, err := agreementArgs(&a)
	if err != nil {
		return err
	}

	query := `INSERT INTO agreements (` + agreementColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		 ON CONFLICT (id) DO UPDATE SET
		 title = EXCLUDED.title, song_title = EXCLUDED.song_title, description = EXCLUDED.description,
		 publication_date = EXCLUDED.publication_date, last_modified = EXCLUDED.last_modified,
		 composers = EXCLUDED.composers, status = EXCLUDED.status, type = EXCLUDED.type,
		 created_by = EXCLUDED.created_by, signers = EXCLUDED.signers, signer_emails = EXCLUDED.signer_emails,
		 document_url = EXCLUDED.document_url, metadata = EXCLUDED.metadata,
		 expires_at = EXCLUDED.expires_at, signed_at = EXCLUDED.signed_at, completed_at = EXCLUDED.completed_at,
		 pdf_url = EXCLUDED.pdf_url, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`

	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return dbErr(err)
	}
	return nil
}
