package migration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/models"
	"github.com/splitsheet/splitsheet/internal/provider"
)

// fakeData is an in-memory Data capability for migration tests. Only the
// admin surface is exercised here.
type fakeData struct {
	users      map[string]*models.User
	agreements map[string]*models.Agreement

	listErr      error
	failUpsertID string
}

func newFakeData() *fakeData {
	return &fakeData{
		users:      map[string]*models.User{},
		agreements: map[string]*models.Agreement{},
	}
}

func (f *fakeData) ListUsers(ctx context.Context) ([]*models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	users := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		users = append(users, u)
	}
	return users, nil
}

func (f *fakeData) ListAgreements(ctx context.Context) ([]*models.Agreement, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	agreements := make([]*models.Agreement, 0, len(f.agreements))
	for _, a := range f.agreements {
		agreements = append(agreements, a)
	}
	return agreements, nil
}

func (f *fakeData) UpsertUser(ctx context.Context, user *models.User) error {
	if user.ID == f.failUpsertID {
		return errors.New("upsert rejected")
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeData) UpsertAgreement(ctx context.Context, agreement *models.Agreement) error {
	if agreement.ID == f.failUpsertID {
		return errors.New("upsert rejected")
	}
	f.agreements[agreement.ID] = agreement
	return nil
}

func (f *fakeData) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return nil, errors.New("not used")
}
func (f *fakeData) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return f.users[userID], nil
}
func (f *fakeData) UpdateUser(ctx context.Context, userID string, upd *models.UserUpdate) (*models.User, error) {
	return nil, errors.New("not used")
}
func (f *fakeData) DeleteUser(ctx context.Context, userID string) error { return nil }
func (f *fakeData) CreateAgreement(ctx context.Context, agreement *models.Agreement) (*models.Agreement, error) {
	return nil, errors.New("not used")
}
func (f *fakeData) GetAgreement(ctx context.Context, agreementID string) (*models.Agreement, error) {
	return f.agreements[agreementID], nil
}
func (f *fakeData) GetAgreements(ctx context.Context, userID string, filters *models.AgreementFilters) ([]*models.Agreement, error) {
	return nil, errors.New("not used")
}
func (f *fakeData) UpdateAgreement(ctx context.Context, agreementID string, upd *models.AgreementUpdate) (*models.Agreement, error) {
	return nil, errors.New("not used")
}
func (f *fakeData) DeleteAgreement(ctx context.Context, agreementID string) error { return nil }
func (f *fakeData) UpdateSignerSignature(ctx context.Context, agreementID, signerID, signatureData string) (time.Time, error) {
	return time.Time{}, errors.New("not used")
}
func (f *fakeData) AddSigner(ctx context.Context, agreementID string, signer *models.Signer) (*models.Signer, error) {
	return nil, errors.New("not used")
}
func (f *fakeData) RemoveSigner(ctx context.Context, agreementID, signerID string) error {
	return nil
}

type fakeProvider struct {
	name string
	data *fakeData
}

func (p *fakeProvider) Name() string              { return p.name }
func (p *fakeProvider) Auth() provider.Auth       { return nil }
func (p *fakeProvider) Data() provider.Data       { return p.data }
func (p *fakeProvider) Storage() provider.Storage { return nil }

func newTestTools() (*Tools, *fakeData, *fakeData) {
	source := newFakeData()
	target := newFakeData()
	tools := NewTools(
		&fakeProvider{name: provider.NameDocstore, data: source},
		&fakeProvider{name: provider.NamePostgres, data: target},
		logging.NewLogger("production"),
	)
	return tools, source, target
}

func TestMigrateUsers_CopiesAll(t *testing.T) {
	tools, source, target := newTestTools()
	source.users["u1"] = &models.User{ID: "u1", Email: "a@b.c"}
	source.users["u2"] = &models.User{ID: "u2", Email: "d@e.f"}

	result, err := tools.MigrateUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Migrated)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, target.users, 2)
}

func TestMigrateUsers_Idempotent(t *testing.T) {
	tools, source, target := newTestTools()
	source.users["u1"] = &models.User{ID: "u1", Email: "a@b.c"}

	_, err := tools.MigrateUsers(context.Background())
	require.NoError(t, err)
	result, err := tools.MigrateUsers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Migrated)
	assert.Len(t, target.users, 1)
}

func TestMigrateUsers_PerRecordFailuresDoNotAbort(t *testing.T) {
	tools, source, target := newTestTools()
	source.users["u1"] = &models.User{ID: "u1"}
	source.users["u2"] = &models.User{ID: "u2"}
	target.failUpsertID = "u1"

	result, err := tools.MigrateUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Migrated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "u1")
	assert.Len(t, target.users, 1)
}

func TestMigrateUsers_SourceListFailureAborts(t *testing.T) {
	tools, source, _ := newTestTools()
	source.listErr = errors.New("source down")

	_, err := tools.MigrateUsers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source down")
}

func TestMigrateAgreements_KeepsSigners(t *testing.T) {
	tools, source, target := newTestTools()
	source.agreements["a1"] = &models.Agreement{
		ID:      "a1",
		Title:   "Split",
		Signers: []models.Signer{{ID: "signer-1", Email: "a@b.c", Order: 1}},
	}

	result, err := tools.MigrateAgreements(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Migrated)
	require.Len(t, target.agreements["a1"].Signers, 1)
	assert.Equal(t, "signer-1", target.agreements["a1"].Signers[0].ID)
}

func TestRunFullMigration(t *testing.T) {
	tools, source, target := newTestTools()
	source.users["u1"] = &models.User{ID: "u1"}
	source.agreements["a1"] = &models.Agreement{ID: "a1"}

	result, err := tools.RunFullMigration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Users.Migrated)
	assert.Equal(t, 1, result.Agreements.Migrated)
	assert.NotNil(t, result.Files)
	assert.Len(t, target.users, 1)
	assert.Len(t, target.agreements, 1)
}

func TestValidateMigration_CountsOnly(t *testing.T) {
	tools, source, target := newTestTools()
	source.users["u1"] = &models.User{ID: "u1"}
	source.agreements["a1"] = &models.Agreement{ID: "a1"}
	source.agreements["a2"] = &models.Agreement{ID: "a2"}
	target.users["u1"] = &models.User{ID: "u1", Email: "different@b.c"}
	target.agreements["a1"] = &models.Agreement{ID: "a1"}

	result, err := tools.ValidateMigration(context.Background())
	require.NoError(t, err)
	assert.True(t, result.UsersMatch)
	assert.False(t, result.AgreementsMatch)
	assert.Equal(t, 2, result.SourceAgreements)
	assert.Equal(t, 1, result.TargetAgreements)
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "agreement count mismatch")
	assert.Contains(t, result.Issues[0], "source 2, target 1")
}

func TestValidateMigration_Valid(t *testing.T) {
	tools, source, target := newTestTools()
	source.users["u1"] = &models.User{ID: "u1"}
	target.users["u1"] = &models.User{ID: "u1"}

	result, err := tools.ValidateMigration(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
	assert.NotNil(t, result.Issues)
}

func TestValidateMigration_ReportsEveryMismatch(t *testing.T) {
	tools, source, _ := newTestTools()
	source.users["u1"] = &models.User{ID: "u1"}
	source.agreements["a1"] = &models.Agreement{ID: "a1"}

	result, err := tools.ValidateMigration(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 2)
	assert.Contains(t, result.Issues[0], "user count mismatch")
	assert.Contains(t, result.Issues[1], "agreement count mismatch")
}

func TestRun_Envelope(t *testing.T) {
	tools, source, _ := newTestTools()
	source.users["u1"] = &models.User{ID: "u1"}

	result := tools.Run(context.Background(), ActionMigrateUsers)
	assert.True(t, result.Success)
	assert.Equal(t, ActionMigrateUsers, result.Action)
	assert.NotNil(t, result.Result)
	assert.Empty(t, result.Error)
}

func TestRun_UnknownAction(t *testing.T) {
	tools, _, _ := newTestTools()

	result := tools.Run(context.Background(), "defragment")
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "defragment")
	assert.Nil(t, result.Result)
}

func TestRun_ListFailure(t *testing.T) {
	tools, source, _ := newTestTools()
	source.listErr = errors.New("source down")

	result := tools.Run(context.Background(), ActionFullMigration)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "source down")
}
