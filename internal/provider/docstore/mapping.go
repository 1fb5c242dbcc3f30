package docstore

import (
	"time"

	"github.com/splitsheet/splitsheet/internal/models"
)

// Document shapes as stored by the platform: camelCase keys, timestamps as
// ISO-8601 strings. Mapping back to the canonical model supplies the
// declared default for every absent field, so non-optional canonical fields
// are never left unset.

type signerDoc struct {
	ID        string `json:"id"`
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	Order     int    `json:"order,omitempty"`
	Signed    bool   `json:"signed"`
	SignedAt  string `json:"signedAt,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type userDoc struct {
	ID                       string         `json:"id,omitempty"`
	Email                    string         `json:"email"`
	Name                     string         `json:"name"`
	ProfilePicture           string         `json:"profilePicture"`
	Phone                    string         `json:"phone"`
	Company                  string         `json:"company"`
	Role                     string         `json:"role"`
	IsEmailVerified          bool           `json:"isEmailVerified"`
	LastLogin                string         `json:"lastLogin,omitempty"`
	Preferences              map[string]any `json:"preferences"`
	StripeCustomerID         string         `json:"stripeCustomerId"`
	StripePriceID            string         `json:"stripePriceId"`
	StripeSubscriptionID     string         `json:"stripeSubscriptionId"`
	StripeSubscriptionStatus string         `json:"stripeSubscriptionStatus"`
	CreatedAt                string         `json:"createdAt,omitempty"`
	UpdatedAt                string         `json:"updatedAt,omitempty"`
}

type agreementDoc struct {
	ID              string           `json:"id,omitempty"`
	Title           string           `json:"title"`
	SongTitle       string           `json:"songTitle"`
	Description     string           `json:"description"`
	PublicationDate string           `json:"publicationDate,omitempty"`
	LastModified    string           `json:"lastModified,omitempty"`
	Composers       []map[string]any `json:"composers"`
	Status          string           `json:"status"`
	Type            string           `json:"type"`
	CreatedBy       string           `json:"createdBy"`
	Signers         []signerDoc      `json:"signers"`
	SignerEmails    []string         `json:"signerEmails"`
	DocumentURL     string           `json:"documentUrl"`
	Metadata        map[string]any   `json:"metadata"`
	ExpiresAt       string           `json:"expiresAt,omitempty"`
	SignedAt        string           `json:"signedAt,omitempty"`
	CompletedAt     string           `json:"completedAt,omitempty"`
	PDFURL          string           `json:"pdfUrl"`
	CreatedAt       string           `json:"createdAt,omitempty"`
	UpdatedAt       string           `json:"updatedAt,omitempty"`
}

// isoTime renders a timestamp the way the platform stores them.
func isoTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseISO parses a stored timestamp, substituting fallback when the field
// is absent or unparseable.
func parseISO(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fallback
	}
	return t
}

func userToDoc(u *models.User) *userDoc {
	return &userDoc{
		Email:                    u.Email,
		Name:                     u.Name,
		ProfilePicture:           u.ProfilePicture,
		Phone:                    u.Phone,
		Company:                  u.Company,
		Role:                     u.Role,
		IsEmailVerified:          u.IsEmailVerified,
		LastLogin:                isoTime(u.LastLogin),
		Preferences:              u.Preferences,
		StripeCustomerID:         u.StripeCustomerID,
		StripePriceID:            u.StripePriceID,
		StripeSubscriptionID:     u.StripeSubscriptionID,
		StripeSubscriptionStatus: u.StripeSubscriptionStatus,
		CreatedAt:                isoTime(u.CreatedAt),
		UpdatedAt:                isoTime(u.UpdatedAt),
	}
}

func docToUser(id string, d *userDoc, now time.Time) *models.User {
	u := &models.User{
		ID:                       id,
		Email:                    d.Email,
		Name:                     d.Name,
		ProfilePicture:           d.ProfilePicture,
		Phone:                    d.Phone,
		Company:                  d.Company,
		Role:                     d.Role,
		IsEmailVerified:          d.IsEmailVerified,
		LastLogin:                parseISO(d.LastLogin, now),
		Preferences:              d.Preferences,
		StripeCustomerID:         d.StripeCustomerID,
		StripePriceID:            d.StripePriceID,
		StripeSubscriptionID:     d.StripeSubscriptionID,
		StripeSubscriptionStatus: d.StripeSubscriptionStatus,
		CreatedAt:                parseISO(d.CreatedAt, now),
		UpdatedAt:                parseISO(d.UpdatedAt, now),
	}
	if u.ID == "" {
		u.ID = d.ID
	}
	u.ApplyDefaults(now)
	return u
}

func signerToDoc(s models.Signer) signerDoc {
	d := signerDoc{
		ID:        s.ID,
		UserID:    s.UserID,
		Email:     s.Email,
		Name:      s.Name,
		Role:      s.Role,
		Status:    s.Status,
		Order:     s.Order,
		Signed:    s.Signed,
		Signature: s.Signature,
	}
	if s.SignedAt != nil {
		d.SignedAt = isoTime(*s.SignedAt)
	}
	return d
}

func docToSigner(d signerDoc) models.Signer {
	s := models.Signer{
		ID:        d.ID,
		UserID:    d.UserID,
		Email:     d.Email,
		Name:      d.Name,
		Role:      d.Role,
		Status:    d.Status,
		Order:     d.Order,
		Signed:    d.Signed,
		Signature: d.Signature,
	}
	if d.SignedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, d.SignedAt); err == nil {
			s.SignedAt = &t
		}
	}
	return s
}

func agreementToDoc(a *models.Agreement) *agreementDoc {
	signers := make([]signerDoc, len(a.Signers))
	for i, s := range a.Signers {
		signers[i] = signerToDoc(s)
	}

	return &agreementDoc{
		Title:           a.Title,
		SongTitle:       a.SongTitle,
		Description:     a.Description,
		PublicationDate: isoTime(a.PublicationDate),
		LastModified:    isoTime(a.LastModified),
		Composers:       a.Composers,
		Status:          a.Status,
		Type:            a.Type,
		CreatedBy:       a.CreatedBy,
		Signers:         signers,
		SignerEmails:    a.SignerEmails,
		DocumentURL:     a.DocumentURL,
		Metadata:        a.Metadata,
		ExpiresAt:       isoTime(a.ExpiresAt),
		SignedAt:        isoTime(a.SignedAt),
		CompletedAt:     isoTime(a.CompletedAt),
		PDFURL:          a.PDFURL,
		CreatedAt:       isoTime(a.CreatedAt),
		UpdatedAt:       isoTime(a.UpdatedAt),
	}
}

func docToAgreement(id string, d *agreementDoc, now time.Time) *models.Agreement {
	signers := make([]models.Signer, len(d.Signers))
	for i, s := range d.Signers {
		signers[i] = docToSigner(s)
	}

	a := &models.Agreement{
		ID:              id,
		Title:           d.Title,
		SongTitle:       d.SongTitle,
		Description:     d.Description,
		PublicationDate: parseISO(d.PublicationDate, now),
		LastModified:    parseISO(d.LastModified, now),
		Composers:       d.Composers,
		Status:          d.Status,
		Type:            d.Type,
		CreatedBy:       d.CreatedBy,
		Signers:         signers,
		SignerEmails:    d.SignerEmails,
		DocumentURL:     d.DocumentURL,
		Metadata:        d.Metadata,
		ExpiresAt:       parseISO(d.ExpiresAt, now),
		SignedAt:        parseISO(d.SignedAt, now),
		CompletedAt:     parseISO(d.CompletedAt, now),
		PDFURL:          d.PDFURL,
		CreatedAt:       parseISO(d.CreatedAt, now),
		UpdatedAt:       parseISO(d.UpdatedAt, now),
	}
	if a.ID == "" {
		a.ID = d.ID
	}
	a.ApplyDefaults(now)
	return a
}

// userUpdateToPatch renders the set fields of a partial update as a patch
// document, stamping updatedAt.
func userUpdateToPatch(upd *models.UserUpdate, now time.Time) map[string]any {
	patch := map[string]any{"updatedAt": isoTime(now)}
	if upd == nil {
		return patch
	}
	if upd.Email != nil {
		patch["email"] = *upd.Email
	}
	if upd.Name != nil {
		patch["name"] = *upd.Name
	}
	if upd.ProfilePicture != nil {
		patch["profilePicture"] = *upd.ProfilePicture
	}
	if upd.Phone != nil {
		patch["phone"] = *upd.Phone
	}
	if upd.Company != nil {
		patch["company"] = *upd.Company
	}
	if upd.Role != nil {
		patch["role"] = *upd.Role
	}
	if upd.IsEmailVerified != nil {
		patch["isEmailVerified"] = *upd.IsEmailVerified
	}
	if upd.LastLogin != nil {
		patch["lastLogin"] = isoTime(*upd.LastLogin)
	}
	if upd.Preferences != nil {
		patch["preferences"] = *upd.Preferences
	}
	if upd.StripeCustomerID != nil {
		patch["stripeCustomerId"] = *upd.StripeCustomerID
	}
	if upd.StripePriceID != nil {
		patch["stripePriceId"] = *upd.StripePriceID
	}
	if upd.StripeSubscriptionID != nil {
		patch["stripeSubscriptionId"] = *upd.StripeSubscriptionID
	}
	if upd.StripeSubscriptionStatus != nil {
		patch["stripeSubscriptionStatus"] = *upd.StripeSubscriptionStatus
	}
	return patch
}

// agreementUpdateToPatch renders the set fields of a partial update as a
// patch document. updatedAt and lastModified are refreshed unconditionally.
func agreementUpdateToPatch(upd *models.AgreementUpdate, now time.Time) map[string]any {
	patch := map[string]any{
		"updatedAt":    isoTime(now),
		"lastModified": isoTime(now),
	}
	if upd == nil {
		return patch
	}
	if upd.Title != nil {
		patch["title"] = *upd.Title
	}
	if upd.SongTitle != nil {
		patch["songTitle"] = *upd.SongTitle
	}
	if upd.Description != nil {
		patch["description"] = *upd.Description
	}
	if upd.PublicationDate != nil {
		patch["publicationDate"] = isoTime(*upd.PublicationDate)
	}
	if upd.Composers != nil {
		patch["composers"] = *upd.Composers
	}
	if upd.Status != nil {
		patch["status"] = *upd.Status
	}
	if upd.Type != nil {
		patch["type"] = *upd.Type
	}
	if upd.Signers != nil {
		docs := make([]signerDoc, len(*upd.Signers))
		for i, s := range *upd.Signers {
			docs[i] = signerToDoc(s)
		}
		patch["signers"] = docs
	}
	if upd.SignerEmails != nil {
		patch["signerEmails"] = *upd.SignerEmails
	}
	if upd.DocumentURL != nil {
		patch["documentUrl"] = *upd.DocumentURL
	}
	if upd.Metadata != nil {
		patch["metadata"] = *upd.Metadata
	}
	if upd.ExpiresAt != nil {
		patch["expiresAt"] = isoTime(*upd.ExpiresAt)
	}
	if upd.SignedAt != nil {
		patch["signedAt"] = isoTime(*upd.SignedAt)
	}
	if upd.CompletedAt != nil {
		patch["completedAt"] = isoTime(*upd.CompletedAt)
	}
	if upd.PDFURL != nil {
		patch["pdfUrl"] = *upd.PDFURL
	}
	return patch
}
