package models

import (
	"fmt"
	"time"

	"github.com/splitsheet/splitsheet/internal/common"
)

// Signer is a party required to sign an agreement. Signers are embedded in
// the agreement record and have no independent lifecycle.
type Signer struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Status string `json:"status"`
	// Order is the 1-based position assigned at insertion. It is never
	// reassigned on removal, so gaps are permitted after deletion.
	Order     int        `json:"order,omitempty"`
	Signed    bool       `json:"signed"`
	SignedAt  *time.Time `json:"signedAt,omitempty"`
	Signature string     `json:"signature,omitempty"`
}

const (
	DefaultSignerRole   = "signer"
	SignerStatusPending = "pending"

	// CreatorSignerRole marks the first signer synthesized from the
	// agreement creator's profile at creation time.
	CreatorSignerRole = "Creator"
)

// NewSignerID generates a signer id in the `signer-<timestamp>-<suffix>`
// format. Ids are never reused.
func NewSignerID(now time.Time) string {
	suffix, err := common.MakeRandHexString(4)
	if err != nil {
		// crypto/rand failing is unrecoverable; fall back to the clock.
		suffix = fmt.Sprintf("%x", now.UnixNano()&0xffffffff)
	}
	return fmt.Sprintf("signer-%d-%s", now.UnixMilli(), suffix)
}
