package agreements

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/models"
	"github.com/splitsheet/splitsheet/internal/provider"
)

// fakeData embeds the Data interface so only the methods a test exercises
// need implementations.
type fakeData struct {
	provider.Data

	users      map[string]*models.User
	agreements []*models.Agreement
	agreement  *models.Agreement

	created    *models.Agreement
	lastUpdate *models.AgreementUpdate
}

func (f *fakeData) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return f.users[userID], nil
}

func (f *fakeData) GetAgreement(ctx context.Context, agreementID string) (*models.Agreement, error) {
	return f.agreement, nil
}

func (f *fakeData) CreateAgreement(ctx context.Context, agreement *models.Agreement) (*models.Agreement, error) {
	agreement.ID = "agreement-1"
	agreement.ApplyDefaults(time.Now())
	f.created = agreement
	return agreement, nil
}

func (f *fakeData) GetAgreements(ctx context.Context, userID string, filters *models.AgreementFilters) ([]*models.Agreement, error) {
	return f.agreements, nil
}

func (f *fakeData) UpdateAgreement(ctx context.Context, agreementID string, upd *models.AgreementUpdate) (*models.Agreement, error) {
	f.lastUpdate = upd
	a := &models.Agreement{ID: agreementID}
	upd.Apply(a)
	return a, nil
}

type fakeStorage struct {
	provider.Storage

	uploadedBucket string
	uploadedPath   string
	uploadedData   []byte
	uploadedOpts   *provider.UploadOptions
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, path string, data []byte, opts *provider.UploadOptions) (string, error) {
	f.uploadedBucket = bucket
	f.uploadedPath = path
	f.uploadedData = data
	f.uploadedOpts = opts
	return "https://files.example/" + bucket + "/" + path, nil
}

type fakeProvider struct {
	data    *fakeData
	storage *fakeStorage
}

func (p *fakeProvider) Name() string              { return provider.NameDocstore }
func (p *fakeProvider) Auth() provider.Auth       { return nil }
func (p *fakeProvider) Data() provider.Data       { return p.data }
func (p *fakeProvider) Storage() provider.Storage { return p.storage }

type staticSource struct{ p provider.Provider }

func (s *staticSource) Get(ctx context.Context) (provider.Provider, error) { return s.p, nil }

func newTestService() (*Service, *fakeData, *fakeStorage) {
	data := &fakeData{users: map[string]*models.User{}}
	storage := &fakeStorage{}
	p := &fakeProvider{data: data, storage: storage}
	return NewService(&staticSource{p: p}, logging.NewLogger("production")), data, storage
}

func TestCreate_SynthesizesCreatorSigner(t *testing.T) {
	svc, data, _ := newTestService()
	data.users["user-1"] = &models.User{ID: "user-1", Email: "Creator@Example.com", Name: "Creator Name"}

	created, err := svc.Create(context.Background(), "user-1", &models.Agreement{
		Title:   "Split",
		Signers: []models.Signer{{ID: "signer-x", Email: "other@example.com"}},
	})
	require.NoError(t, err)

	require.Len(t, created.Signers, 2)
	first := created.Signers[0]
	assert.Equal(t, models.CreatorSignerRole, first.Role)
	assert.Equal(t, "user-1", first.UserID)
	assert.Equal(t, "Creator@Example.com", first.Email)
	assert.Equal(t, "signer-x", created.Signers[1].ID)
	assert.Equal(t, "user-1", created.CreatedBy)
}

func TestCreate_DedupesSignerEmails(t *testing.T) {
	svc, data, _ := newTestService()
	data.users["user-1"] = &models.User{ID: "user-1", Email: "creator@example.com"}

	created, err := svc.Create(context.Background(), "user-1", &models.Agreement{
		Signers: []models.Signer{
			{Email: "other@example.com"},
			{Email: "CREATOR@example.com"},
		},
		SignerEmails: []string{"other@example.com", "third@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"creator@example.com", "other@example.com", "third@example.com"},
		created.SignerEmails)
}

func TestCreate_UnknownCreator(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "missing", &models.Agreement{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateStatus_InvalidDataURL(t *testing.T) {
	svc, data, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "agreement-1", models.StatusSigned, "just-bytes")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Nil(t, data.lastUpdate)
}

func TestUpdateStatus_InvalidBase64(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "agreement-1", models.StatusSigned,
		"data:application/pdf;base64,!!not-base64!!")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestUpdateStatus_UploadsPDF(t *testing.T) {
	svc, data, storage := newTestService()
	payload := base64.StdEncoding.EncodeToString([]byte("pdf-bytes"))

	updated, err := svc.UpdateStatus(context.Background(), "agreement-1", models.StatusSigned,
		"data:application/pdf;base64,"+payload)
	require.NoError(t, err)

	assert.Equal(t, PDFBucket, storage.uploadedBucket)
	assert.Equal(t, []byte("pdf-bytes"), storage.uploadedData)
	assert.Equal(t, "application/pdf", storage.uploadedOpts.ContentType)
	assert.True(t, storage.uploadedOpts.Upsert)

	require.NotNil(t, data.lastUpdate)
	require.NotNil(t, data.lastUpdate.PDFURL)
	assert.Contains(t, *data.lastUpdate.PDFURL, PDFBucket)
	require.NotNil(t, data.lastUpdate.SignedAt)
	assert.Equal(t, models.StatusSigned, updated.Status)
}

func TestUpdateStatus_CompletedSetsCompletedAt(t *testing.T) {
	svc, data, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), "agreement-1", models.StatusCompleted, "")
	require.NoError(t, err)
	require.NotNil(t, data.lastUpdate)
	assert.NotNil(t, data.lastUpdate.CompletedAt)
	assert.Nil(t, data.lastUpdate.SignedAt)
}

func TestStats_CountsByStatus(t *testing.T) {
	svc, data, _ := newTestService()
	data.agreements = []*models.Agreement{
		{Status: models.StatusDraft},
		{Status: models.StatusDraft},
		{Status: models.StatusPending},
		{Status: models.StatusSigned},
		{Status: models.StatusCompleted},
		{Status: "archived"},
	}

	stats, err := svc.Stats(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 2, stats.Draft)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Signed)
	assert.Equal(t, 1, stats.Completed)
}

func TestDuplicate_ResetsSignersAndGoesThroughCreate(t *testing.T) {
	svc, data, _ := newTestService()
	data.users["user-2"] = &models.User{ID: "user-2", Email: "copier@example.com"}
	signedAt := time.Now().Add(-time.Hour)
	data.agreement = &models.Agreement{
		ID:          "agreement-1",
		Title:       "Original",
		Description: "split for the single",
		Type:        "splitsheet",
		Metadata:    map[string]any{"bpm": "120"},
		Signers: []models.Signer{
			{ID: "signer-old", Email: "other@example.com", Status: "signed", Signed: true, SignedAt: &signedAt, Signature: "sig"},
		},
	}

	copied, err := svc.Duplicate(context.Background(), "agreement-1", "Copy", "user-2")
	require.NoError(t, err)

	assert.Equal(t, "Copy", copied.Title)
	assert.Equal(t, "split for the single", copied.Description)
	assert.Equal(t, "user-2", copied.CreatedBy)

	require.Len(t, copied.Signers, 2)
	assert.Equal(t, models.CreatorSignerRole, copied.Signers[0].Role)
	reset := copied.Signers[1]
	assert.NotEqual(t, "signer-old", reset.ID)
	assert.Equal(t, models.SignerStatusPending, reset.Status)
	assert.False(t, reset.Signed)
	assert.Nil(t, reset.SignedAt)
	assert.Empty(t, reset.Signature)
}

func TestDuplicate_MissingAgreement(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Duplicate(context.Background(), "agreement-1", "Copy", "user-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestExport_RendersJSON(t *testing.T) {
	svc, data, _ := newTestService()
	data.agreement = &models.Agreement{ID: "agreement-1", Title: "Split"}

	out, err := svc.Export(context.Background(), "agreement-1")
	require.NoError(t, err)

	var decoded models.Agreement
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "agreement-1", decoded.ID)
	assert.Equal(t, "Split", decoded.Title)
}

func TestExport_MissingAgreement(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Export(context.Background(), "agreement-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestImport_CreatesFromPayload(t *testing.T) {
	svc, data, _ := newTestService()
	data.users["user-1"] = &models.User{ID: "user-1", Email: "creator@example.com"}

	payload := `{"id":"stale-id","title":"Imported","type":"splitsheet","status":"signed",` +
		`"signers":[{"email":"other@example.com"}]}`
	imported, err := svc.Import(context.Background(), "user-1", payload)
	require.NoError(t, err)

	assert.Equal(t, "Imported", imported.Title)
	assert.Equal(t, "splitsheet", imported.Type)
	assert.NotEqual(t, "stale-id", imported.ID)
	assert.Equal(t, models.StatusDraft, imported.Status)
	require.Len(t, imported.Signers, 2)
	assert.Equal(t, models.CreatorSignerRole, imported.Signers[0].Role)
}

func TestImport_UnparseablePayload(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Import(context.Background(), "user-1", "{not json")
	assert.ErrorIs(t, err, common.ErrValidation)
}
