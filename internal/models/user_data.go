package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charlesng35/teamseats/pkg/validator"
)

// UsageKind identifies one of the metered quotas.
type UsageKind string

const (
	UsageStorage UsageKind = "storage"
	UsageTokens  UsageKind = "tokens"
	UsagePrompts UsageKind = "prompts"
)

// UsageKinds lists every metered quota.
func UsageKinds() []UsageKind {
	return []UsageKind{UsageStorage, UsageTokens, UsagePrompts}
}

// ParseUsageKind resolves a quota name case-insensitively.
func ParseUsageKind(value string) (UsageKind, error) {
	kind := UsageKind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case UsageStorage, UsageTokens, UsagePrompts:
		return kind, nil
	}
	return "", fmt.Errorf("unknown usage kind %q", value)
}

// Label is the display name used in quota messages.
func (k UsageKind) Label() string {
	switch k {
	case UsageStorage, UsageTokens, UsagePrompts:
		return string(k)
	}
	return "usage"
}

// Column returns the used and total column names backing the quota.
func (k UsageKind) Column() (used, total string) {
	return string(k) + "_used", string(k) + "_total"
}

// UserData is the per-account plan and quota record.
type UserData struct {
	ID    string `gorm:"primaryKey;size:64" json:"id" validate:"required,max=64"`
	Email string `gorm:"size:254" json:"email" validate:"omitempty,email,max=254"`
	Plan  Plan   `gorm:"size:32;not null" json:"plan" validate:"required,oneof=Basic Pro Enterprise"`

	StorageUsed  int64 `gorm:"not null;default:0" json:"storage_used" validate:"gte=0"`
	StorageTotal int64 `gorm:"not null;default:0" json:"storage_total" validate:"gte=0"`
	TokensUsed   int64 `gorm:"not null;default:0" json:"tokens_used" validate:"gte=0"`
	TokensTotal  int64 `gorm:"not null;default:0" json:"tokens_total" validate:"gte=0"`
	PromptsUsed  int64 `gorm:"not null;default:0" json:"prompts_used" validate:"gte=0"`
	PromptsTotal int64 `gorm:"not null;default:0" json:"prompts_total" validate:"gte=0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the historical table name.
func (UserData) TableName() string {
	return "users_data"
}

// NewUserData builds a record on the given plan with zero usage.
func NewUserData(accountID, email string, plan Plan) *UserData {
	data := &UserData{ID: accountID, Email: NormalizeEmail(email)}
	data.ApplyPlan(plan)
	return data
}

// ApplyPlan switches the plan and resets quota totals to the plan's allowance.
// Usage counters are preserved.
func (u *UserData) ApplyPlan(plan Plan) {
	limits, _ := plan.Limits()
	u.Plan = plan
	u.StorageTotal = limits.Storage
	u.TokensTotal = limits.Tokens
	u.PromptsTotal = limits.Prompts
}

// Usage returns the used and total values for kind.
func (u *UserData) Usage(kind UsageKind) (used, total int64, ok bool) {
	switch kind {
	case UsageStorage:
		return u.StorageUsed, u.StorageTotal, true
	case UsageTokens:
		return u.TokensUsed, u.TokensTotal, true
	case UsagePrompts:
		return u.PromptsUsed, u.PromptsTotal, true
	}
	return 0, 0, false
}

// SetUsed overwrites the used counter for kind.
func (u *UserData) SetUsed(kind UsageKind, value int64) {
	switch kind {
	case UsageStorage:
		u.StorageUsed = value
	case UsageTokens:
		u.TokensUsed = value
	case UsagePrompts:
		u.PromptsUsed = value
	}
}

// Validate checks the record before it is persisted.
func (u *UserData) Validate() error {
	if err := validator.ValidateStruct(u); err != nil {
		return fmt.Errorf("user data: %w", err)
	}
	return nil
}
