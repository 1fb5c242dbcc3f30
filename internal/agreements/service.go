// Package agreements is the provider-independent agreement service: every
// operation resolves the active provider through the selection facade and
// works on canonical records only.
package agreements

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/splitsheet/splitsheet/internal/common"
	"github.com/splitsheet/splitsheet/internal/logging"
	"github.com/splitsheet/splitsheet/internal/models"
	"github.com/splitsheet/splitsheet/internal/provider"
)

// PDFBucket receives uploaded agreement PDFs.
const PDFBucket = "agreement-pdfs"

// ProviderSource resolves the active provider. The selection facade
// satisfies this.
type ProviderSource interface {
	Get(ctx context.Context) (provider.Provider, error)
}

// Stats is the per-user agreement status breakdown.
type Stats struct {
	Total     int `json:"total"`
	Draft     int `json:"draft"`
	Pending   int `json:"pending"`
	Signed    int `json:"signed"`
	Completed int `json:"completed"`
}

type Service struct {
	providers ProviderSource
	log       logging.Logger
}

func NewService(providers ProviderSource, log logging.Logger) *Service {
	return &Service{providers: providers, log: log}
}

// Create persists a new agreement for the user. The creator is synthesized
// as the first signer from their profile, and signerEmails is rebuilt as
// the deduplicated list of all signer emails.
func (s *Service) Create(ctx context.Context, userID string, agreement *models.Agreement) (*models.Agreement, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}

	creator, err := p.Data().GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
	}

	now := time.Now()
	creatorSigner := models.Signer{
		ID:     models.NewSignerID(now),
		UserID: creator.ID,
		Email:  creator.Email,
		Name:   creator.Name,
		Role:   models.CreatorSignerRole,
		Status: models.SignerStatusPending,
	}

	agreement.CreatedBy = userID
	agreement.Signers = append([]models.Signer{creatorSigner}, agreement.Signers...)
	agreement.SignerEmails = dedupeEmails(agreement.Signers, agreement.SignerEmails)

	created, err := p.Data().CreateAgreement(ctx, agreement)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "agreement created", "agreementId", created.ID, "createdBy", userID)
	return created, nil
}

// dedupeEmails merges signer emails with any extra addresses, keeping first
// occurrence order and dropping duplicates and blanks.
func dedupeEmails(signers []models.Signer, extra []string) []string {
	seen := make(map[string]bool)
	merged := []string{}
	add := func(email string) {
		email = strings.TrimSpace(strings.ToLower(email))
		if email == "" || seen[email] {
			return
		}
		seen[email] = true
		merged = append(merged, email)
	}

	for _, signer := range signers {
		add(signer.Email)
	}
	for _, email := range extra {
		add(email)
	}
	return merged
}

func (s *Service) Get(ctx context.Context, agreementID string) (*models.Agreement, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Data().GetAgreement(ctx, agreementID)
}

func (s *Service) List(ctx context.Context, userID string, filters *models.AgreementFilters) ([]*models.Agreement, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Data().GetAgreements(ctx, userID, filters)
}

func (s *Service) Update(ctx context.Context, agreementID string, upd *models.AgreementUpdate) (*models.Agreement, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Data().UpdateAgreement(ctx, agreementID, upd)
}

func (s *Service) Delete(ctx context.Context, agreementID string) error {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return err
	}
	return p.Data().DeleteAgreement(ctx, agreementID)
}

// UpdateStatus sets the agreement status and optionally attaches a PDF
// delivered as a data URL. The signing timestamps follow the status.
func (s *Service) UpdateStatus(ctx context.Context, agreementID, status, pdfDataURL string) (*models.Agreement, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}

	upd := &models.AgreementUpdate{Status: &status}

	if pdfDataURL != "" {
		pdfURL, err := s.uploadPDF(ctx, p, agreementID, pdfDataURL)
		if err != nil {
			return nil, err
		}
		upd.PDFURL = &pdfURL
	}

	now := time.Now()
	switch status {
	case models.StatusSigned:
		upd.SignedAt = &now
	case models.StatusCompleted:
		upd.CompletedAt = &now
	}

	updated, err := p.Data().UpdateAgreement(ctx, agreementID, upd)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "agreement status updated", "agreementId", agreementID, "status", status)
	return updated, nil
}

// uploadPDF decodes a `data:application/pdf;base64,...` payload and stores
// it, returning the download URL.
func (s *Service) uploadPDF(ctx context.Context, p provider.Provider, agreementID, dataURL string) (string, error) {
	_, payload, found := strings.Cut(dataURL, ";base64,")
	if !found {
		return "", fmt.Errorf("%w: pdf payload is not a base64 data url", common.ErrValidation)
	}

	pdf, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: decode pdf payload: %v", common.ErrValidation, err)
	}

	path := fmt.Sprintf("%s/agreement-%d.pdf", agreementID, time.Now().UnixMilli())
	return p.Storage().Upload(ctx, PDFBucket, path, pdf, &provider.UploadOptions{
		ContentType: "application/pdf",
		Upsert:      true,
	})
}

// Signer operations, delegated to the active provider.

func (s *Service) AddSigner(ctx context.Context, agreementID string, signer *models.Signer) (*models.Signer, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return nil, err
	}
	return p.Data().AddSigner(ctx, agreementID, signer)
}

func (s *Service) RemoveSigner(ctx context.Context, agreementID, signerID string) error {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return err
	}
	return p.Data().RemoveSigner(ctx, agreementID, signerID)
}

func (s *Service) UpdateSignerSignature(ctx context.Context, agreementID, signerID, signatureData string) (time.Time, error) {
	p, err := s.providers.Get(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return p.Data().UpdateSignerSignature(ctx, agreementID, signerID, signatureData)
}

// Duplicate creates a copy of an existing agreement under a new title. The
// copied signers get fresh ids and start over as pending with no signature;
// the copy then goes through Create, so the new creator signer is
// synthesized the usual way.
func (s *Service) Duplicate(ctx context.Context, agreementID, newTitle, userID string) (*models.Agreement, error) {
	original, err := s.Get(ctx, agreementID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, fmt.Errorf("%w: agreement %s", common.ErrNotFound, agreementID)
	}

	now := time.Now()
	signers := make([]models.Signer, len(original.Signers))
	for i, signer := range original.Signers {
		signer.ID = models.NewSignerID(now)
		signer.Status = models.SignerStatusPending
		signer.Signed = false
		signer.SignedAt = nil
		signer.Signature = ""
		signers[i] = signer
	}

	copied := &models.Agreement{
		Title:       newTitle,
		Description: original.Description,
		Type:        original.Type,
		Signers:     signers,
		Metadata:    original.Metadata,
		ExpiresAt:   original.ExpiresAt,
	}
	return s.Create(ctx, userID, copied)
}

// Export renders the agreement as indented JSON.
func (s *Service) Export(ctx context.Context, agreementID string) (string, error) {
	agreement, err := s.Get(ctx, agreementID)
	if err != nil {
		return "", err
	}
	if agreement == nil {
		return "", fmt.Errorf("%w: agreement %s", common.ErrNotFound, agreementID)
	}

	out, err := json.MarshalIndent(agreement, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Import parses an exported agreement payload and creates it for the user.
// Only the portable fields are taken from the payload; ids, timestamps and
// status are assigned fresh. An unparseable payload fails validation.
func (s *Service) Import(ctx context.Context, userID, payload string) (*models.Agreement, error) {
	var parsed models.Agreement
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse agreement payload: %v", common.ErrValidation, err)
	}

	imported := &models.Agreement{
		Title:       parsed.Title,
		Description: parsed.Description,
		Type:        parsed.Type,
		Signers:     parsed.Signers,
		Metadata:    parsed.Metadata,
		ExpiresAt:   parsed.ExpiresAt,
	}
	return s.Create(ctx, userID, imported)
}

// Stats breaks the user's agreements down by status.
func (s *Service) Stats(ctx context.Context, userID string) (*Stats, error) {
	agreements, err := s.List(ctx, userID, nil)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: len(agreements)}
	for _, a := range agreements {
		switch a.Status {
		case models.StatusDraft:
			stats.Draft++
		case models.StatusPending:
			stats.Pending++
		case models.StatusSigned:
			stats.Signed++
		case models.StatusCompleted:
			stats.Completed++
		}
	}
	return stats, nil
}
