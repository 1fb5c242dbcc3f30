package docstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/models"
)

const (
	usersCollection      = "users"
	agreementsCollection = "agreements"
)

// DataClient implements the Data capability over the platform's document
// endpoints.
type DataClient struct {
	c *Client

	// Serializes in-process signer edits per agreement. Cross-process
	// edits stay last-write-wins over the whole signer array.
	signerLocks common.KeyedMutex
}

func NewDataClient(c *Client) *DataClient {
	return &DataClient{c: c}
}

func collectionPath(collection string) string {
	return "/api/v1/collections/" + collection + "/documents"
}

func documentPath(collection, id string) string {
	return collectionPath(collection) + "/" + url.PathEscape(id)
}

type documentList[T any] struct {
	Documents []T `json:"documents"`
}

// Users

func (d *DataClient) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now()
	user.ApplyDefaults(now)
	user.CreatedAt = now
	user.UpdatedAt = now

	doc := userToDoc(user)
	var created userDoc
	if err := d.c.doJSON(ctx, http.MethodPost, collectionPath(usersCollection), nil, doc, &created); err != nil {
		return nil, normalizeErr(err)
	}
	return docToUser(created.ID, &created, now), nil
}

func (d *DataClient) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var doc userDoc
	err := d.c.doJSON(ctx, http.MethodGet, documentPath(usersCollection, userID), nil, nil, &doc)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, normalizeErr(err)
	}
	return docToUser(userID, &doc, time.Now()), nil
}

func (d *DataClient) UpdateUser(ctx context.Context, userID string, upd *models.UserUpdate) (*models.User, error) {
	now := time.Now()
	patch := userUpdateToPatch(upd, now)

	if err := d.c.doJSON(ctx, http.MethodPatch, documentPath(usersCollection, userID), nil, patch, nil); err != nil {
		return nil, normalizeErr(err)
	}

	// The operation is complete only once the record reloads non-empty.
	updated, err := d.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: user %s after update", common.ErrNotFound, userID)
	}
	return updated, nil
}

func (d *DataClient) DeleteUser(ctx context.Context, userID string) error {
	if err := d.c.doJSON(ctx, http.MethodDelete, documentPath(usersCollection, userID), nil, nil, nil); err != nil {
		return normalizeErr(err)
	}
	return nil
}

// Agreements

func (d *DataClient) CreateAgreement(ctx context.Context, agreement *models.Agreement) (*models.Agreement, error) {
	now := time.Now()
	agreement.ApplyDefaults(now)
	agreement.CreatedAt = now
	agreement.UpdatedAt = now
	agreement.LastModified = now

	doc := agreementToDoc(agreement)
	var created agreementDoc
	if err := d.c.doJSON(ctx, http.MethodPost, collectionPath(agreementsCollection), nil, doc, &created); err != nil {
		return nil, normalizeErr(err)
	}
	return docToAgreement(created.ID, &created, now), nil
}

func (d *DataClient) GetAgreement(ctx context.Context, agreementID string) (*models.Agreement, error) {
	var doc agreementDoc
	err := d.c.doJSON(ctx, http.MethodGet, documentPath(agreementsCollection, agreementID), nil, nil, &doc)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, normalizeErr(err)
	}
	return docToAgreement(agreementID, &doc, time.Now()), nil
}

// GetAgreements pushes the equality predicates down to the platform and
// finishes date-range and search filtering in memory, so the results match
// the relational provider's semantics exactly.
func (d *DataClient) GetAgreements(ctx context.Context, userID string, filters *models.AgreementFilters) ([]*models.Agreement, error) {
	query := url.Values{"createdBy": {userID}}
	if filters != nil {
		if filters.Status != "" {
			query.Set("status", filters.Status)
		}
		if filters.Type != "" {
			query.Set("type", filters.Type)
		}
	}

	var list documentList[agreementDoc]
	if err := d.c.doJSON(ctx, http.MethodGet, collectionPath(agreementsCollection), query, nil, &list); err != nil {
		return nil, normalizeErr(err)
	}

	now := time.Now()
	agreements := make([]*models.Agreement, 0, len(list.Documents))
	for i := range list.Documents {
		a := docToAgreement(list.Documents[i].ID, &list.Documents[i], now)
		if filters.Matches(a) {
			agreements = append(agreements, a)
		}
	}

	sort.SliceStable(agreements, func(i, j int) bool {
		return agreements[i].CreatedAt.After(agreements[j].CreatedAt)
	})
	return agreements, nil
}

func (d *DataClient) UpdateAgreement(ctx context.Context, agreementID string, upd *models.AgreementUpdate) (*models.Agreement, error) {
	now := time.Now()
	patch := agreementUpdateToPatch(upd, now)

	if err := d.c.doJSON(ctx, http.MethodPatch, documentPath(agreementsCollection, agreementID), nil, patch, nil); err != nil {
		return nil, normalizeErr(err)
	}

	updated, err := d.GetAgreement(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("%w: agreement %s after update", common.ErrNotFound, agreementID)
	}
	return updated, nil
}

func (d *DataClient) DeleteAgreement(ctx context.Context, agreementID string) error {
	if err := d.c.doJSON(ctx, http.MethodDelete, documentPath(agreementsCollection, agreementID), nil, nil, nil); err != nil {
		return normalizeErr(err)
	}
	return nil
}

// Signer mutation protocol: read the agreement, mutate the in-memory signer
// array, write the whole array back.

func (d *DataClient) UpdateSignerSignature(ctx context.Context, agreementID, signerID, signatureData string) (time.Time, error) {
	unlock := d.signerLocks.Lock(agreementID)
	defer unlock()

	agreement, err := d.GetAgreement(ctx, agreementID)
	if err != nil {
		return time.Time{}, err
	}
	if agreement == nil {
		return time.Time{}, fmt.Errorf("%w: agreement %s", common.ErrNotFound, agreementID)
	}

	idx := -1
	for i := range agreement.Signers {
		if agreement.Signers[i].ID == signerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return time.Time{}, fmt.Errorf("%w: signer %s in agreement %s", common.ErrNotFound, signerID, agreementID)
	}

	signedAt := time.Now()
	agreement.Signers[idx].Signed = true
	agreement.Signers[idx].SignedAt = &signedAt
	agreement.Signers[idx].Signature = signatureData

	if err := d.writeSigners(ctx, agreementID, agreement.Signers, signedAt); err != nil {
		return time.Time{}, err
	}
	return signedAt, nil
}

func (d *DataClient) AddSigner(ctx context.Context, agreementID string, signer *models.Signer) (*models.Signer, error) {
	unlock := d.signerLocks.Lock(agreementID)
	defer unlock()

	agreement, err := d.GetAgreement(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if agreement == nil {
		return nil, fmt.Errorf("%w: agreement %s", common.ErrNotFound, agreementID)
	}

	now := time.Now()
	newSigner := models.Signer{
		ID:     models.NewSignerID(now),
		UserID: signer.UserID,
		Email:  signer.Email,
		Name:   signer.Name,
		Role:   signer.Role,
		Status: models.SignerStatusPending,
		Order:  len(agreement.Signers) + 1,
	}
	if newSigner.Role == "" {
		newSigner.Role = models.DefaultSignerRole
	}

	signers := append(agreement.Signers, newSigner)
	if err := d.writeSigners(ctx, agreementID, signers, now); err != nil {
		return nil, err
	}
	return &newSigner, nil
}

func (d *DataClient) RemoveSigner(ctx context.Context, agreementID, signerID string) error {
	unlock := d.signerLocks.Lock(agreementID)
	defer unlock()

	agreement, err := d.GetAgreement(ctx, agreementID)
	if err != nil {
		return err
	}
	if agreement == nil {
		return fmt.Errorf("%w: agreement %s", common.ErrNotFound, agreementID)
	}

	// Remaining order values are intentionally not renumbered.
	filtered := make([]models.Signer, 0, len(agreement.Signers))
	for _, s := range agreement.Signers {
		if s.ID != signerID {
			filtered = append(filtered, s)
		}
	}

	return d.writeSigners(ctx, agreementID, filtered, time.Now())
}

func (d *DataClient) writeSigners(ctx context.Context, agreementID string, signers []models.Signer, at time.Time) error {
	docs := make([]signerDoc, len(signers))
	for i, s := range signers {
		docs[i] = signerToDoc(s)
	}

	patch := map[string]any{
		"signers":      docs,
		"lastModified": isoTime(at),
		"updatedAt":    isoTime(at),
	}
	if err := d.c.doJSON(ctx, http.MethodPatch, documentPath(agreementsCollection, agreementID), nil, patch, nil); err != nil {
		return normalizeErr(err)
	}
	return nil
}

// Admin surface for the migration tool.

func (d *DataClient) ListUsers(ctx context.Context) ([]*models.User, error) {
	var list documentList[userDoc]
	if err := d.c.doJSON(ctx, http.MethodGet, collectionPath(usersCollection), nil, nil, &list); err != nil {
		return nil, normalizeErr(err)
	}

	now := time.Now()
	users := make([]*models.User, len(list.Documents))
	for i := range list.Documents {
		users[i] = docToUser(list.Documents[i].ID, &list.Documents[i], now)
	}
	return users, nil
}

func (d *DataClient) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	var list documentList[agreementDoc]
	if err := d.c.doJSON(ctx, http.MethodGet, collectionPath(agreementsCollection), nil, nil, &list); err != nil {
		return nil, normalizeErr(err)
	}

	now := time.Now()
	agreements := make([]*models.Agreement, len(list.Documents))
	for i := range list.Documents {
		agreements[i] = docToAgreement(list.Documents[i].ID, &list.Documents[i], now)
	}
	return agreements, nil
}

func (d *DataClient) UpsertUser(ctx context.Context, user *models.User) error {
	doc := userToDoc(user)
	if err := d.c.doJSON(ctx, http.MethodPut, documentPath(usersCollection, user.ID), nil, doc, nil); err != nil {
		return normalizeErr(err)
	}
	return nil
}

func (d *DataClient) UpsertAgreement(ctx context.Context, agreement *models.Agreement) error {
	doc := agreementToDoc(agreement)
	if err := d.c.doJSON(ctx, http.MethodPut, documentPath(agreementsCollection, agreement.ID), nil, doc, nil); err != nil {
		return normalizeErr(err)
	}
	return nil
}
