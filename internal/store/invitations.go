package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/pkg/logger"
)

// GormInvitationStore implements InvitationStore on top of gorm.
type GormInvitationStore struct {
	db *gorm.DB
}

var _ InvitationStore = (*GormInvitationStore)(nil)

// NewInvitationStore constructs a GormInvitationStore.
func NewInvitationStore(db *gorm.DB) (*GormInvitationStore, error) {
	if db == nil {
		return nil, errors.New("invitation store: db is required")
	}
	return &GormInvitationStore{db: db}, nil
}

// Get returns the invitation with the given id.
func (s *GormInvitationStore) Get(ctx context.Context, id string) (*models.TeamInvitation, error) {
	return s.first(ctx, "invitation store: get", "id = ?", strings.TrimSpace(id))
}

// GetByToken returns the invitation holding token, looked up by its digest.
func (s *GormInvitationStore) GetByToken(ctx context.Context, token string) (*models.TeamInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	invitation, err := s.first(ctx, "invitation store: get by token", "token_hash = ?", models.HashToken(token))
	if err != nil {
		return nil, err
	}
	invitation.Token = token
	return invitation, nil
}

func (s *GormInvitationStore) first(ctx context.Context, op string, query string, args ...any) (*models.TeamInvitation, error) {
	var invitation models.TeamInvitation
	if err := s.db.WithContext(ctx).Where(query, args...).Take(&invitation).Error; err != nil {
		return nil, translate(op, err)
	}
	if err := invitation.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	return &invitation, nil
}

// List returns invitations matching filter, newest first. Rows that fail
// validation are skipped and logged.
func (s *GormInvitationStore) List(ctx context.Context, filter InvitationFilter) ([]models.TeamInvitation, error) {
	var rows []models.TeamInvitation
	query := applyInvitationFilter(s.db.WithContext(ctx), filter).Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, translate("invitation store: list", err)
	}

	out := rows[:0]
	for _, row := range rows {
		if err := row.Validate(); err != nil {
			logger.WithModule("store").Warn("skipping invalid invitation row",
				zap.String("invitation_id", row.ID),
				zap.Error(err),
			)
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// Insert persists a new invitation.
func (s *GormInvitationStore) Insert(ctx context.Context, invitation *models.TeamInvitation) error {
	if invitation == nil {
		return invalid("invitation store: insert", errors.New("invitation is nil"))
	}
	invitation.MemberEmail = models.NormalizeEmail(invitation.MemberEmail)
	if token := strings.TrimSpace(invitation.Token); token != "" {
		invitation.TokenHash = models.HashToken(token)
	}
	if err := invitation.Validate(); err != nil {
		return invalid("invitation store: insert", err)
	}
	return translate("invitation store: insert", s.db.WithContext(ctx).Create(invitation).Error)
}

// Update applies patch to the invitation and returns the stored result.
func (s *GormInvitationStore) Update(ctx context.Context, id string, patch InvitationPatch) (*models.TeamInvitation, error) {
	const op = "invitation store: update"

	if patch.Empty() {
		return s.Get(ctx, id)
	}

	updates := map[string]any{}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, invalid(op, errors.New("unknown status "+string(*patch.Status)))
		}
		updates["status"] = *patch.Status
	}
	if patch.Token != nil {
		if strings.TrimSpace(*patch.Token) == "" {
			return nil, invalid(op, errors.New("token is empty"))
		}
		updates["token_hash"] = models.HashToken(*patch.Token)
	}
	if patch.ExpiresAt != nil {
		if patch.ExpiresAt.IsZero() {
			return nil, invalid(op, errors.New("expires_at is zero"))
		}
		updates["expires_at"] = *patch.ExpiresAt
	}
	if patch.MemberName != nil {
		name := strings.TrimSpace(*patch.MemberName)
		if name == "" {
			return nil, invalid(op, errors.New("member_name is empty"))
		}
		updates["member_name"] = name
	}

	query := s.db.WithContext(ctx).
		Model(&models.TeamInvitation{}).
		Where("id = ?", strings.TrimSpace(id))
	if patch.ExpectStatus != nil {
		query = query.Where("status = ?", *patch.ExpectStatus)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return nil, translate(op, result.Error)
	}
	if result.RowsAffected == 0 {
		if patch.ExpectStatus == nil {
			return nil, translate(op, gorm.ErrRecordNotFound)
		}
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: status is no longer %s: %w", op, *patch.ExpectStatus, ErrConflict)
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Token != nil {
		updated.Token = strings.TrimSpace(*patch.Token)
	}
	return updated, nil
}

// Delete removes the invitation owned by ownerID.
func (s *GormInvitationStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND team_owner_id = ?", strings.TrimSpace(id), strings.TrimSpace(ownerID)).
		Delete(&models.TeamInvitation{}).Error
	return translate("invitation store: delete", err)
}

// Purge removes all invitations matching filter. An empty filter is rejected.
func (s *GormInvitationStore) Purge(ctx context.Context, filter InvitationFilter) (int64, error) {
	if filter.unbounded() {
		return 0, invalid("invitation store: purge", errors.New("filter is empty"))
	}
	result := applyInvitationFilter(s.db.WithContext(ctx), filter).Delete(&models.TeamInvitation{})
	if result.Error != nil {
		return 0, translate("invitation store: purge", result.Error)
	}
	return result.RowsAffected, nil
}

func (f InvitationFilter) unbounded() bool {
	return strings.TrimSpace(f.TeamOwnerID) == "" &&
		strings.TrimSpace(f.MemberEmail) == "" &&
		f.Status == "" &&
		len(f.Statuses) == 0 &&
		f.UpdatedBefore.IsZero() &&
		f.ExpiresBefore.IsZero()
}

func applyInvitationFilter(query *gorm.DB, filter InvitationFilter) *gorm.DB {
	if owner := strings.TrimSpace(filter.TeamOwnerID); owner != "" {
		query = query.Where("team_owner_id = ?", owner)
	}
	if email := models.NormalizeEmail(filter.MemberEmail); email != "" {
		query = query.Where("member_email = ?", email)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if !filter.UpdatedBefore.IsZero() {
		query = query.Where("updated_at < ?", filter.UpdatedBefore)
	}
	if !filter.ExpiresBefore.IsZero() {
		query = query.Where("expires_at < ?", filter.ExpiresBefore)
	}
	return query
}
