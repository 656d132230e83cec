package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/internal/store"
	apperrors "github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/logger"
	"github.com/charlesng35/teamseats/pkg/validator"
)

// UpdateMemberInput describes mutable seat fields.
type UpdateMemberInput struct {
	Name *string `json:"member_name" validate:"omitempty,max=120"`
	Role *string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
}

// TeamService manages the seats on an owner's team.
type TeamService struct {
	members   store.MemberStore
	observers []InvitationObserver
	log       *zap.Logger
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(members store.MemberStore, observers ...InvitationObserver) (*TeamService, error) {
	if members == nil {
		return nil, errors.New("team service: member store is required")
	}
	return &TeamService{
		members:   members,
		observers: observers,
		log:       logger.WithModule("team"),
	}, nil
}

// Subscribe registers an observer notified after every seat change.
func (s *TeamService) Subscribe(observer InvitationObserver) {
	if observer != nil {
		s.observers = append(s.observers, observer)
	}
}

// ListMembers returns every seat on the session account's team.
func (s *TeamService) ListMembers(ctx context.Context, session auth.Session) ([]models.TeamMember, error) {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	members, err := s.members.List(ctx, store.MemberFilter{TeamOwnerID: session.AccountID})
	if err != nil {
		return nil, storeError(err, nil)
	}
	return members, nil
}

// RemoveMember deletes a seat. The owner's own seat cannot be removed.
func (s *TeamService) RemoveMember(ctx context.Context, session auth.Session, id string) error {
	ctx = ensureContext(ctx)

	member, err := s.load(ctx, session, id)
	if err != nil {
		return err
	}
	if s.isOwnerSeat(session, member) {
		return ErrOwnerSeat
	}

	if err := s.members.Delete(ctx, session.AccountID, member.ID); err != nil {
		return storeError(err, ErrMemberNotFound)
	}

	s.log.Info("team member removed",
		zap.String("owner_id", session.AccountID),
		zap.String("member_id", member.ID),
	)
	s.changed(ctx, session.AccountID)
	return nil
}

// UpdateMember changes a seat's display name or role. The owner's own seat
// keeps the admin role.
func (s *TeamService) UpdateMember(ctx context.Context, session auth.Session, id string, input UpdateMemberInput) (*models.TeamMember, error) {
	ctx = ensureContext(ctx)

	if input.Name != nil {
		trimmed := strings.TrimSpace(*input.Name)
		input.Name = &trimmed
	}
	if input.Role != nil {
		lowered := strings.ToLower(strings.TrimSpace(*input.Role))
		input.Role = &lowered
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	member, err := s.load(ctx, session, id)
	if err != nil {
		return nil, err
	}

	patch := store.MemberPatch{}
	if input.Name != nil && *input.Name != "" && *input.Name != member.MemberName {
		patch.MemberName = input.Name
	}
	if input.Role != nil && *input.Role != "" && models.Role(*input.Role) != member.Role {
		if s.isOwnerSeat(session, member) {
			return nil, ErrOwnerSeat
		}
		role := models.Role(*input.Role)
		patch.Role = &role
	}
	if patch.Empty() {
		return member, nil
	}

	updated, err := s.members.Update(ctx, session.AccountID, member.ID, patch)
	if err != nil {
		return nil, storeError(err, ErrMemberNotFound)
	}
	s.changed(ctx, session.AccountID)
	return updated, nil
}

func (s *TeamService) load(ctx context.Context, session auth.Session, id string) (*models.TeamMember, error) {
	if err := session.Validate(); err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}
	id = strings.TrimSpace(id)
	if err := validator.ValidateVar("id", id, "required,max=64"); err != nil {
		return nil, validationError(err)
	}

	member, err := s.members.Get(ctx, session.AccountID, id)
	if err != nil {
		return nil, storeError(err, ErrMemberNotFound)
	}
	return member, nil
}

func (s *TeamService) isOwnerSeat(session auth.Session, member *models.TeamMember) bool {
	return session.Email != "" && member.MemberEmail == models.NormalizeEmail(session.Email)
}

func (s *TeamService) changed(ctx context.Context, ownerID string) {
	for _, observer := range s.observers {
		observer(ctx, ownerID)
	}
}
