package models

import "time"

// Agreement statuses used by the unified service. Providers store the value
// as a free-form string, so unknown statuses round-trip untouched.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusSigned    = "signed"
	StatusCompleted = "completed"
)

// Agreement is the canonical agreement record. The embedded signer list is
// exclusively owned by the agreement; order in the list is significant and
// the first entry is conventionally the creator.
type Agreement struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	SongTitle       string    `json:"songTitle"`
	Description     string    `json:"description"`
	PublicationDate time.Time `json:"publicationDate"`
	// LastModified is refreshed on every mutation, independently from
	// UpdatedAt.
	LastModified time.Time        `json:"lastModified"`
	Composers    []map[string]any `json:"composers"`
	Status       string           `json:"status"`
	Type         string           `json:"type"`
	CreatedBy    string           `json:"createdBy"`
	Signers      []Signer         `json:"signers"`
	SignerEmails []string         `json:"signerEmails"`
	DocumentURL  string           `json:"documentUrl"`
	Metadata     map[string]any   `json:"metadata"`
	ExpiresAt    time.Time        `json:"expiresAt"`
	SignedAt     time.Time        `json:"signedAt"`
	CompletedAt  time.Time        `json:"completedAt"`
	PDFURL       string           `json:"pdfUrl"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// ApplyDefaults fills omitted optional fields with their declared defaults
// (empty string, empty list, empty map, or now for timestamps) so callers
// never observe absent fields in a returned agreement.
func (a *Agreement) ApplyDefaults(now time.Time) {
	if a.Status == "" {
		a.Status = StatusDraft
	}
	if a.Composers == nil {
		a.Composers = []map[string]any{}
	}
	if a.Signers == nil {
		a.Signers = []Signer{}
	}
	if a.SignerEmails == nil {
		a.SignerEmails = []string{}
	}
	if a.Metadata == nil {
		a.Metadata = map[string]any{}
	}
	if a.PublicationDate.IsZero() {
		a.PublicationDate = now
	}
	if a.LastModified.IsZero() {
		a.LastModified = now
	}
	if a.ExpiresAt.IsZero() {
		a.ExpiresAt = now
	}
	if a.SignedAt.IsZero() {
		a.SignedAt = now
	}
	if a.CompletedAt.IsZero() {
		a.CompletedAt = now
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
}

// AgreementFilters restricts GetAgreements results. All filters are ANDed;
// Search is a case-insensitive substring match on title OR description.
// DateFrom/DateTo bound the creation time inclusively.
type AgreementFilters struct {
	Status   string     `json:"status,omitempty"`
	Type     string     `json:"type,omitempty"`
	Search   string     `json:"search,omitempty"`
	DateFrom *time.Time `json:"dateFrom,omitempty"`
	DateTo   *time.Time `json:"dateTo,omitempty"`
}

// AgreementUpdate is a partial agreement record: nil fields are left
// untouched. UpdatedAt and LastModified are always refreshed by the adapter
// regardless of which fields changed.
type AgreementUpdate struct {
	Title           *string           `json:"title,omitempty"`
	SongTitle       *string           `json:"songTitle,omitempty"`
	Description     *string           `json:"description,omitempty"`
	PublicationDate *time.Time        `json:"publicationDate,omitempty"`
	Composers       *[]map[string]any `json:"composers,omitempty"`
	Status          *string           `json:"status,omitempty"`
	Type            *string           `json:"type,omitempty"`
	Signers         *[]Signer         `json:"signers,omitempty"`
	SignerEmails    *[]string         `json:"signerEmails,omitempty"`
	DocumentURL     *string           `json:"documentUrl,omitempty"`
	Metadata        *map[string]any   `json:"metadata,omitempty"`
	ExpiresAt       *time.Time        `json:"expiresAt,omitempty"`
	SignedAt        *time.Time        `json:"signedAt,omitempty"`
	CompletedAt     *time.Time        `json:"completedAt,omitempty"`
	PDFURL          *string           `json:"pdfUrl,omitempty"`
}

// Apply copies the set fields onto the agreement record.
func (p *AgreementUpdate) Apply(a *Agreement) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.SongTitle != nil {
		a.SongTitle = *p.SongTitle
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.PublicationDate != nil {
		a.PublicationDate = *p.PublicationDate
	}
	if p.Composers != nil {
		a.Composers = *p.Composers
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.Signers != nil {
		a.Signers = *p.Signers
	}
	if p.SignerEmails != nil {
		a.SignerEmails = *p.SignerEmails
	}
	if p.DocumentURL != nil {
		a.DocumentURL = *p.DocumentURL
	}
	if p.Metadata != nil {
		a.Metadata = *p.Metadata
	}
	if p.ExpiresAt != nil {
		a.ExpiresAt = *p.ExpiresAt
	}
	if p.SignedAt != nil {
		a.SignedAt = *p.SignedAt
	}
	if p.CompletedAt != nil {
		a.CompletedAt = *p.CompletedAt
	}
	if p.PDFURL != nil {
		a.PDFURL = *p.PDFURL
	}
}

// Matches reports whether the agreement satisfies the filters. Adapters
// whose backend cannot evaluate a predicate server-side use it to finish
// filtering in memory, so both providers expose identical semantics.
func (f *AgreementFilters) Matches(a *Agreement) bool {
	if f == nil {
		return true
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.DateFrom != nil && a.CreatedAt.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && a.CreatedAt.After(*f.DateTo) {
		return false
	}
	if f.Search != "" && !containsFold(a.Title, f.Search) && !containsFold(a.Description, f.Search) {
		return false
	}
	return true
}
