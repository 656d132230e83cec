package models

import (
	"fmt"
	"strings"

	"github.com/charlesng35/teamseats/pkg/validator"
)

// Role is the permission level of a seat.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// ParseRole resolves a role name case-insensitively.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

// Valid reports whether the role is recognised.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// MemberStatus is the lifecycle state of a seat.
type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberPending  MemberStatus = "pending"
	MemberInactive MemberStatus = "inactive"
)

// TeamMember occupies a seat on an owner's team. An email holds at most one
// seat per owner.
type TeamMember struct {
	BaseModel

	TeamOwnerID string       `gorm:"size:64;not null;index;uniqueIndex:idx_team_members_owner_email" json:"team_owner_id" validate:"required,max=64"`
	MemberName  string       `gorm:"size:120;not null" json:"member_name" validate:"required,max=120"`
	MemberEmail string       `gorm:"size:254;not null;index;uniqueIndex:idx_team_members_owner_email" json:"member_email" validate:"required,email,max=254"`
	Role        Role         `gorm:"size:16;not null" json:"role" validate:"required,oneof=admin editor viewer"`
	Status      MemberStatus `gorm:"size:16;not null;index" json:"status" validate:"required,oneof=active pending inactive"`
}

// Validate checks the record before it is persisted.
func (m *TeamMember) Validate() error {
	if err := validator.ValidateStruct(m); err != nil {
		return fmt.Errorf("team member: %w", err)
	}
	return nil
}

// OwnerSeatName derives the display name of an owner's own seat from the
// local part of their email address.
func OwnerSeatName(email string) string {
	email = NormalizeEmail(email)
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	if email == "" {
		return "Owner"
	}
	return email
}
