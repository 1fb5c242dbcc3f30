package pgstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/models"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-1", secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := GetUserIDFromToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestGetUserIDFromToken_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("user-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(token, secret)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestGetUserIDFromToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("user-1", []byte("secret-a"), time.Hour)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(token, []byte("secret-b"))
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestBuildAgreementsQuery_NoFilters(t *testing.T) {
	query, args := buildAgreementsQuery("user-1", nil)

	assert.Contains(t, query, "WHERE created_by = $1")
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.NotContains(t, query, "status")
	require.Len(t, args, 1)
	assert.Equal(t, "user-1", args[0])
}

func TestBuildAgreementsQuery_AllFilters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	query, args := buildAgreementsQuery("user-1", &models.AgreementFilters{
		Status:   "draft",
		Type:     "split",
		Search:   "alpha",
		DateFrom: &from,
		DateTo:   &to,
	})

	assert.Contains(t, query, "AND status = $2")
	assert.Contains(t, query, "AND type = $3")
	assert.Contains(t, query, "AND created_at >= $4")
	assert.Contains(t, query, "AND created_at <= $5")
	assert.Contains(t, query, `AND (title ILIKE $6 ESCAPE '\' OR description ILIKE $6 ESCAPE '\')`)
	require.Len(t, args, 6)
	assert.Equal(t, "%alpha%", args[5])
}

func TestBuildAgreementsQuery_SearchOnly(t *testing.T) {
	query, args := buildAgreementsQuery("user-1", &models.AgreementFilters{Search: "beta"})

	assert.Contains(t, query, `AND (title ILIKE $2 ESCAPE '\' OR description ILIKE $2 ESCAPE '\')`)
	require.Len(t, args, 2)
	assert.Equal(t, "%beta%", args[1])
}

func TestBuildAgreementsQuery_SearchEscapesWildcards(t *testing.T) {
	// `%`, `_` and `\` in a search term must match literally, as the
	// document provider matches them.
	_, args := buildAgreementsQuery("user-1", &models.AgreementFilters{Search: `100%_a\b`})

	require.Len(t, args, 2)
	assert.Equal(t, `%100\%\_a\\b%`, args[1])
}

func TestJSONBRoundTrip(t *testing.T) {
	signers := []models.Signer{{ID: "signer-1", Email: "a@b.c", Order: 1}}

	raw, err := jsonb(signers)
	require.NoError(t, err)

	var decoded []models.Signer
	require.NoError(t, decodeJSONB(raw, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "signer-1", decoded[0].ID)
	assert.Equal(t, 1, decoded[0].Order)
}

func TestDecodeJSONB_EmptyLeavesZeroValue(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, decodeJSONB(nil, &decoded))
	assert.Nil(t, decoded)
}
