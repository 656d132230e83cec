package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/models"
)

// GormAccountStore implements AccountStore on top of gorm.
type GormAccountStore struct {
	db *gorm.DB
}

var _ AccountStore = (*GormAccountStore)(nil)

// NewAccountStore constructs a GormAccountStore.
func NewAccountStore(db *gorm.DB) (*GormAccountStore, error) {
	if db == nil {
		return nil, errors.New("account store: db is required")
	}
	return &GormAccountStore{db: db}, nil
}

// Get returns the usage record of account id.
func (s *GormAccountStore) Get(ctx context.Context, id string) (*models.UserData, error) {
	const op = "account store: get"

	var data models.UserData
	if err := s.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Take(&data).Error; err != nil {
		return nil, translate(op, err)
	}
	if err := data.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	return &data, nil
}

// Insert persists a new usage record.
func (s *GormAccountStore) Insert(ctx context.Context, data *models.UserData) error {
	if data == nil {
		return invalid("account store: insert", errors.New("user data is nil"))
	}
	data.Email = models.NormalizeEmail(data.Email)
	if err := data.Validate(); err != nil {
		return invalid("account store: insert", err)
	}
	return translate("account store: insert", s.db.WithContext(ctx).Create(data).Error)
}

// Update applies patch and returns the stored result.
func (s *GormAccountStore) Update(ctx context.Context, id string, patch AccountPatch) (*models.UserData, error) {
	const op = "account store: update"

	updates := map[string]any{}
	if patch.Email != nil {
		updates["email"] = models.NormalizeEmail(*patch.Email)
	}
	if patch.Plan != nil {
		if !patch.Plan.Valid() {
			return nil, invalid(op, fmt.Errorf("unknown plan %q", *patch.Plan))
		}
		updates["plan"] = *patch.Plan
	}
	if patch.Totals != nil {
		updates["storage_total"] = patch.Totals.Storage
		updates["tokens_total"] = patch.Totals.Tokens
		updates["prompts_total"] = patch.Totals.Prompts
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	result := s.db.WithContext(ctx).Model(&models.UserData{}).Where("id = ?", strings.TrimSpace(id)).Updates(updates)
	if result.Error != nil {
		return nil, translate(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, translate(op, gorm.ErrRecordNotFound)
	}
	return s.Get(ctx, id)
}

// AddUsage increments the used counter guarded by the quota total, so
// concurrent increments cannot push usage past the allowance.
func (s *GormAccountStore) AddUsage(ctx context.Context, id string, kind models.UsageKind, amount int64) (bool, error) {
	const op = "account store: add usage"

	if amount <= 0 {
		return false, invalid(op, errors.New("amount must be positive"))
	}
	used, total, err := usageColumns(kind)
	if err != nil {
		return false, invalid(op, err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.UserData{}).
		Where("id = ?", strings.TrimSpace(id)).
		Where(fmt.Sprintf("%s + ? <= %s", used, total), amount).
		Update(used, gorm.Expr(used+" + ?", amount))
	if result.Error != nil {
		return false, translate(op, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// SetUsage overwrites the used counter of kind.
func (s *GormAccountStore) SetUsage(ctx context.Context, id string, kind models.UsageKind, value int64) (*models.UserData, error) {
	const op = "account store: set usage"

	if value < 0 {
		return nil, invalid(op, errors.New("usage must not be negative"))
	}
	used, _, err := usageColumns(kind)
	if err != nil {
		return nil, invalid(op, err)
	}

	result := s.db.WithContext(ctx).Model(&models.UserData{}).Where("id = ?", strings.TrimSpace(id)).Update(used, value)
	if result.Error != nil {
		return nil, translate(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, translate(op, gorm.ErrRecordNotFound)
	}
	return s.Get(ctx, id)
}

func usageColumns(kind models.UsageKind) (used, total string, err error) {
	parsed, err := models.ParseUsageKind(string(kind))
	if err != nil {
		return "", "", err
	}
	used, total = parsed.Column()
	return used, total, nil
}
