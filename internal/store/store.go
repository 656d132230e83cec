// Package store is the persistence boundary for invitations, seats and account
// usage. It validates records on the way in and out and holds no business rules.
package store

import (
	"context"
	"time"

	"github.com/charlesng35/teamseats/internal/models"
)

// InvitationFilter narrows List results. Zero-valued fields are ignored.
type InvitationFilter struct {
	TeamOwnerID   string
	MemberEmail   string
	Status        models.InvitationStatus
	Statuses      []models.InvitationStatus
	UpdatedBefore time.Time
	ExpiresBefore time.Time
	Limit         int
}

// InvitationPatch lists the mutable invitation fields. Nil fields are left untouched.
// When ExpectStatus is set the update only applies while the stored status
// still matches it; otherwise Update fails with ErrConflict.
type InvitationPatch struct {
	Status     *models.InvitationStatus
	Token      *string
	ExpiresAt  *time.Time
	MemberName *string

	ExpectStatus *models.InvitationStatus
}

// Empty reports whether the patch changes nothing.
func (p InvitationPatch) Empty() bool {
	return p.Status == nil && p.Token == nil && p.ExpiresAt == nil && p.MemberName == nil
}

// InvitationStore persists team invitations.
type InvitationStore interface {
	Get(ctx context.Context, id string) (*models.TeamInvitation, error)
	GetByToken(ctx context.Context, token string) (*models.TeamInvitation, error)
	List(ctx context.Context, filter InvitationFilter) ([]models.TeamInvitation, error)
	Insert(ctx context.Context, invitation *models.TeamInvitation) error
	Update(ctx context.Context, id string, patch InvitationPatch) (*models.TeamInvitation, error)
	// Delete removes the invitation owned by ownerID. Missing rows are not an error.
	Delete(ctx context.Context, ownerID, id string) error
	// Purge removes every invitation matching filter and reports how many went.
	Purge(ctx context.Context, filter InvitationFilter) (int64, error)
}

// MemberFilter narrows List results. Zero-valued fields are ignored.
type MemberFilter struct {
	TeamOwnerID string
	MemberEmail string
	Status      models.MemberStatus
}

// MemberPatch lists the mutable member fields. Nil fields are left untouched.
type MemberPatch struct {
	MemberName *string
	Role       *models.Role
	Status     *models.MemberStatus
}

// Empty reports whether the patch changes nothing.
func (p MemberPatch) Empty() bool {
	return p.MemberName == nil && p.Role == nil && p.Status == nil
}

// MemberStore persists team seats.
type MemberStore interface {
	Get(ctx context.Context, ownerID, id string) (*models.TeamMember, error)
	List(ctx context.Context, filter MemberFilter) ([]models.TeamMember, error)
	Count(ctx context.Context, filter MemberFilter) (int64, error)
	Insert(ctx context.Context, member *models.TeamMember) error
	Update(ctx context.Context, ownerID, id string, patch MemberPatch) (*models.TeamMember, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// AccountPatch lists the mutable account fields. Nil fields are left untouched.
type AccountPatch struct {
	Email  *string
	Plan   *models.Plan
	Totals *models.PlanLimits
}

// AccountStore persists per-account plan and usage records.
type AccountStore interface {
	Get(ctx context.Context, id string) (*models.UserData, error)
	Insert(ctx context.Context, data *models.UserData) error
	Update(ctx context.Context, id string, patch AccountPatch) (*models.UserData, error)
	// AddUsage increments the used counter of kind by amount only while the
	// result stays within the quota total. It reports whether the row changed.
	AddUsage(ctx context.Context, id string, kind models.UsageKind, amount int64) (bool, error)
	// SetUsage overwrites the used counter of kind.
	SetUsage(ctx context.Context, id string, kind models.UsageKind, value int64) (*models.UserData, error)
}
