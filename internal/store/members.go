package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/models"
)

// GormMemberStore implements MemberStore on top of gorm.
type GormMemberStore struct {
	db *gorm.DB
}

var _ MemberStore = (*GormMemberStore)(nil)

// NewMemberStore constructs a GormMemberStore.
func NewMemberStore(db *gorm.DB) (*GormMemberStore, error) {
	if db == nil {
		return nil, errors.New("member store: db is required")
	}
	return &GormMemberStore{db: db}, nil
}

// Get returns the seat id on ownerID's team.
func (s *GormMemberStore) Get(ctx context.Context, ownerID, id string) (*models.TeamMember, error) {
	const op = "member store: get"

	var member models.TeamMember
	err := s.db.WithContext(ctx).
		Where("id = ? AND team_owner_id = ?", strings.TrimSpace(id), strings.TrimSpace(ownerID)).
		Take(&member).Error
	if err != nil {
		return nil, translate(op, err)
	}
	if err := member.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	return &member, nil
}

// List returns seats matching filter in the order they were created.
func (s *GormMemberStore) List(ctx context.Context, filter MemberFilter) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := applyMemberFilter(s.db.WithContext(ctx), filter).Order("created_at ASC").Find(&members).Error; err != nil {
		return nil, translate("member store: list", err)
	}
	for i := range members {
		if err := members[i].Validate(); err != nil {
			return nil, invalid("member store: list", err)
		}
	}
	return members, nil
}

// Count returns the number of seats matching filter.
func (s *GormMemberStore) Count(ctx context.Context, filter MemberFilter) (int64, error) {
	var count int64
	if err := applyMemberFilter(s.db.WithContext(ctx).Model(&models.TeamMember{}), filter).Count(&count).Error; err != nil {
		return 0, translate("member store: count", err)
	}
	return count, nil
}

// Insert persists a new seat.
func (s *GormMemberStore) Insert(ctx context.Context, member *models.TeamMember) error {
	if member == nil {
		return invalid("member store: insert", errors.New("member is nil"))
	}
	member.MemberEmail = models.NormalizeEmail(member.MemberEmail)
	if err := member.Validate(); err != nil {
		return invalid("member store: insert", err)
	}
	return translate("member store: insert", s.db.WithContext(ctx).Create(member).Error)
}

// Update applies patch to the seat and returns the stored result.
func (s *GormMemberStore) Update(ctx context.Context, ownerID, id string, patch MemberPatch) (*models.TeamMember, error) {
	const op = "member store: update"

	if patch.Empty() {
		return s.Get(ctx, ownerID, id)
	}

	updates := map[string]any{}
	if patch.MemberName != nil {
		name := strings.TrimSpace(*patch.MemberName)
		if name == "" {
			return nil, invalid(op, errors.New("member_name is empty"))
		}
		updates["member_name"] = name
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, invalid(op, errors.New("unknown role "+string(*patch.Role)))
		}
		updates["role"] = *patch.Role
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.MemberActive, models.MemberPending, models.MemberInactive:
		default:
			return nil, invalid(op, errors.New("unknown status "+string(*patch.Status)))
		}
		updates["status"] = *patch.Status
	}

	result := s.db.WithContext(ctx).
		Model(&models.TeamMember{}).
		Where("id = ? AND team_owner_id = ?", strings.TrimSpace(id), strings.TrimSpace(ownerID)).
		Updates(updates)
	if result.Error != nil {
		return nil, translate(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, translate(op, gorm.ErrRecordNotFound)
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes the seat from ownerID's team.
func (s *GormMemberStore) Delete(ctx context.Context, ownerID, id string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND team_owner_id = ?", strings.TrimSpace(id), strings.TrimSpace(ownerID)).
		Delete(&models.TeamMember{})
	if result.Error != nil {
		return translate("member store: delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("member store: delete", gorm.ErrRecordNotFound)
	}
	return nil
}

func applyMemberFilter(query *gorm.DB, filter MemberFilter) *gorm.DB {
	if owner := strings.TrimSpace(filter.TeamOwnerID); owner != "" {
		query = query.Where("team_owner_id = ?", owner)
	}
	if email := models.NormalizeEmail(filter.MemberEmail); email != "" {
		query = query.Where("member_email = ?", email)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}
