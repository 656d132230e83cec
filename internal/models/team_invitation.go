package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/teamseats/pkg/validator"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Valid reports whether the status is recognised.
func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined:
		return true
	}
	return false
}

// TeamInvitation is an offer of a seat addressed to an email. Only the
// SHA-256 digest of the token is persisted; Token carries the plaintext in
// memory right after it was issued or looked up.
type TeamInvitation struct {
	BaseModel

	TeamOwnerID string           `gorm:"size:64;not null;index" json:"team_owner_id" validate:"required,max=64"`
	MemberEmail string           `gorm:"size:254;not null;index" json:"member_email" validate:"required,email,max=254"`
	MemberName  string           `gorm:"size:120;not null" json:"member_name" validate:"required,max=120"`
	Role        Role             `gorm:"size:16;not null" json:"role" validate:"required,oneof=admin editor viewer"`
	Token       string           `gorm:"-" json:"-"`
	TokenHash   string           `gorm:"size:64;not null;uniqueIndex" json:"-" validate:"required,len=64,hexadecimal"`
	Status      InvitationStatus `gorm:"size:16;not null;index" json:"status" validate:"required,oneof=pending accepted declined"`
	ExpiresAt   time.Time        `gorm:"not null;index" json:"expires_at" validate:"required"`
}

// IsPending reports whether the invitation can still be acted upon state-wise.
func (i *TeamInvitation) IsPending() bool {
	return i.Status == InvitationPending
}

// IsExpired reports whether now is past the invitation deadline.
func (i *TeamInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Validate checks the record before it is persisted.
func (i *TeamInvitation) Validate() error {
	if err := validator.ValidateStruct(i); err != nil {
		return fmt.Errorf("team invitation: %w", err)
	}
	return nil
}

// HashToken returns the hex SHA-256 digest stored for an invitation token.
func HashToken(token string) string {
	checksum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(checksum[:])
}
