// Package models holds the canonical cross-provider shapes for users,
// agreements and signers. Every provider adapter translates its native
// record format to and from these types.
package models

import "time"

// User is the canonical profile record. The id is assigned by the backing
// store on creation and is immutable afterwards.
type User struct {
	ID                       string         `json:"id"`
	Email                    string         `json:"email"`
	Name                     string         `json:"name"`
	ProfilePicture           string         `json:"profilePicture"`
	Phone                    string         `json:"phone"`
	Company                  string         `json:"company"`
	Role                     string         `json:"role"`
	IsEmailVerified          bool           `json:"isEmailVerified"`
	LastLogin                time.Time      `json:"lastLogin"`
	Preferences              map[string]any `json:"preferences"`
	StripeCustomerID         string         `json:"stripeCustomerId"`
	StripePriceID            string         `json:"stripePriceId"`
	StripeSubscriptionID     string         `json:"stripeSubscriptionId"`
	StripeSubscriptionStatus string         `json:"stripeSubscriptionStatus"`
	CreatedAt                time.Time      `json:"createdAt"`
	UpdatedAt                time.Time      `json:"updatedAt"`
}

// DefaultUserRole is assigned when a profile is created without a role.
const DefaultUserRole = "user"

// ApplyDefaults fills every absent optional field with its declared default
// so callers never observe partially populated records.
func (u *User) ApplyDefaults(now time.Time) {
	if u.Role == "" {
		u.Role = DefaultUserRole
	}
	if u.Preferences == nil {
		u.Preferences = map[string]any{}
	}
	if u.LastLogin.IsZero() {
		u.LastLogin = now
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = now
	}
}

// UserUpdate is a partial user record: nil fields are left untouched.
type UserUpdate struct {
	Email                    *string         `json:"email,omitempty"`
	Name                     *string         `json:"name,omitempty"`
	ProfilePicture           *string         `json:"profilePicture,omitempty"`
	Phone                    *string         `json:"phone,omitempty"`
	Company                  *string         `json:"company,omitempty"`
	Role                     *string         `json:"role,omitempty"`
	IsEmailVerified          *bool           `json:"isEmailVerified,omitempty"`
	LastLogin                *time.Time      `json:"lastLogin,omitempty"`
	Preferences              *map[string]any `json:"preferences,omitempty"`
	StripeCustomerID         *string         `json:"stripeCustomerId,omitempty"`
	StripePriceID            *string         `json:"stripePriceId,omitempty"`
	StripeSubscriptionID     *string         `json:"stripeSubscriptionId,omitempty"`
	StripeSubscriptionStatus *string         `json:"stripeSubscriptionStatus,omitempty"`
}

// Apply copies the set fields onto the user record.
func (p *UserUpdate) Apply(u *User) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.Company != nil {
		u.Company = *p.Company
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.IsEmailVerified != nil {
		u.IsEmailVerified = *p.IsEmailVerified
	}
	if p.LastLogin != nil {
		u.LastLogin = *p.LastLogin
	}
	if p.Preferences != nil {
		u.Preferences = *p.Preferences
	}
	if p.StripeCustomerID != nil {
		u.StripeCustomerID = *p.StripeCustomerID
	}
	if p.StripePriceID != nil {
		u.StripePriceID = *p.StripePriceID
	}
	if p.StripeSubscriptionID != nil {
		u.StripeSubscriptionID = *p.StripeSubscriptionID
	}
	if p.StripeSubscriptionStatus != nil {
		u.StripeSubscriptionStatus = *p.StripeSubscriptionStatus
	}
}
