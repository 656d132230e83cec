package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/internal/notify"
	"github.com/charlesng35/teamseats/internal/store"
	apperrors "github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/logger"
	"github.com/charlesng35/teamseats/pkg/metrics"
	"github.com/charlesng35/teamseats/pkg/validator"
)

// DefaultInvitationExpiry is the lifetime of a freshly issued or resent invitation.
const DefaultInvitationExpiry = 7 * 24 * time.Hour

// maxTokenAttempts bounds retries when a rotated token collides with the old one.
const maxTokenAttempts = 3

// Decision is the recipient's answer to an invitation.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionDecline Decision = "decline"
)

// ParseDecision resolves the action segment of a resolution link.
func ParseDecision(value string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(value))) {
	case DecisionAccept:
		return DecisionAccept, nil
	case DecisionDecline:
		return DecisionDecline, nil
	}
	return "", apperrors.NewValidation("action must be accept or decline")
}

// InvitationObserver is notified after every change to an owner's invitations or seats.
type InvitationObserver func(ctx context.Context, ownerID string)

// AccountProvisioner returns the usage record of the session account,
// creating it on first use.
type AccountProvisioner interface {
	Ensure(ctx context.Context, session auth.Session) (*models.UserData, error)
}

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationAppURL configures the public base URL used in accept/decline links.
func WithInvitationAppURL(url string) InvitationOption {
	return func(s *InvitationService) {
		s.appURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithInvitationExpiry overrides the invitation lifetime.
func WithInvitationExpiry(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithInvitationTokenIssuer replaces the token source.
func WithInvitationTokenIssuer(issuer TokenIssuer) InvitationOption {
	return func(s *InvitationService) {
		if issuer != nil {
			s.tokens = issuer
		}
	}
}

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInvitationObserver registers a change observer.
func WithInvitationObserver(observer InvitationObserver) InvitationOption {
	return func(s *InvitationService) {
		if observer != nil {
			s.observers = append(s.observers, observer)
		}
	}
}

// InvitationService drives the invitation lifecycle: creation under seat and
// duplicate policy, token resolution, resend and cancellation.
type InvitationService struct {
	invitations store.InvitationStore
	members     store.MemberStore
	accounts    AccountProvisioner
	dispatcher  notify.Dispatcher
	tokens      TokenIssuer
	appURL      string
	expiry      time.Duration
	now         func() time.Time
	observers   []InvitationObserver
	log         *zap.Logger
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(
	invitations store.InvitationStore,
	members store.MemberStore,
	accounts AccountProvisioner,
	dispatcher notify.Dispatcher,
	opts ...InvitationOption,
) (*InvitationService, error) {
	switch {
	case invitations == nil:
		return nil, errors.New("invitation service: invitation store is required")
	case members == nil:
		return nil, errors.New("invitation service: member store is required")
	case accounts == nil:
		return nil, errors.New("invitation service: account provisioner is required")
	case dispatcher == nil:
		return nil, errors.New("invitation service: dispatcher is required")
	}

	service := &InvitationService{
		invitations: invitations,
		members:     members,
		accounts:    accounts,
		dispatcher:  dispatcher,
		tokens:      NewRandomTokenIssuer(DefaultTokenBytes),
		appURL:      "http://localhost:3000",
		expiry:      DefaultInvitationExpiry,
		now:         time.Now,
		log:         logger.WithModule("invitations"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Subscribe registers an observer after construction.
func (s *InvitationService) Subscribe(observer InvitationObserver) {
	if observer != nil {
		s.observers = append(s.observers, observer)
	}
}

// CreateInvitationInput is the owner supplied content of a new invitation.
type CreateInvitationInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,max=120"`
	Role  string `json:"role" validate:"required,oneof=admin editor viewer"`
}

func (in CreateInvitationInput) normalized() CreateInvitationInput {
	return CreateInvitationInput{
		Email: models.NormalizeEmail(in.Email),
		Name:  strings.TrimSpace(in.Name),
		Role:  strings.ToLower(strings.TrimSpace(in.Role)),
	}
}

// Create validates policy and persists a pending invitation, then dispatches
// the email. When dispatch fails the stored invitation is returned together
// with ErrDispatchFailed; it is not rolled back.
func (s *InvitationService) Create(ctx context.Context, session auth.Session, input CreateInvitationInput) (*models.TeamInvitation, error) {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	input = input.normalized()
	if err := validateInput(input); err != nil {
		return nil, err
	}
	owner := session.AccountID

	// Provisioning creates the owner's own seat, which the duplicate member
	// check below must see.
	account, err := s.accounts.Ensure(ctx, session)
	if err != nil {
		return nil, err
	}

	existing, err := s.members.Count(ctx, store.MemberFilter{
		TeamOwnerID: owner,
		MemberEmail: input.Email,
		Status:      models.MemberActive,
	})
	if err != nil {
		return nil, storeError(err, nil)
	}
	if existing > 0 {
		return nil, s.reject(ErrDuplicateMember)
	}

	pending, err := s.invitations.List(ctx, store.InvitationFilter{
		TeamOwnerID: owner,
		MemberEmail: input.Email,
		Status:      models.InvitationPending,
		Limit:       1,
	})
	if err != nil {
		return nil, storeError(err, nil)
	}
	if len(pending) > 0 {
		return nil, s.reject(ErrDuplicatePendingInvite)
	}

	seats, err := s.members.Count(ctx, store.MemberFilter{TeamOwnerID: owner, Status: models.MemberActive})
	if err != nil {
		return nil, storeError(err, nil)
	}
	if limit := account.Plan.SeatLimit(); seats >= int64(limit) {
		return nil, s.reject(ErrSeatLimitReached.WithMessage(
			fmt.Sprintf("You've reached the maximum team members limit for your %s plan", account.Plan),
		))
	}

	token, err := s.issueToken("")
	if err != nil {
		return nil, err
	}

	now := s.now()
	invitation := &models.TeamInvitation{
		BaseModel:   models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TeamOwnerID: owner,
		MemberEmail: input.Email,
		MemberName:  input.Name,
		Role:        models.Role(input.Role),
		Token:       token,
		Status:      models.InvitationPending,
		ExpiresAt:   now.Add(s.expiry),
	}
	if err := s.invitations.Insert(ctx, invitation); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, s.reject(ErrDuplicatePendingInvite.WithInternal(err))
		}
		metrics.InvitationEvents.WithLabelValues("created", "failure").Inc()
		return nil, storeError(err, nil)
	}

	metrics.InvitationEvents.WithLabelValues("created", "success").Inc()
	s.log.Info("invitation created",
		zap.String("owner_id", owner),
		zap.String("invitation_id", invitation.ID),
		zap.String("role", input.Role),
	)
	s.changed(ctx, owner)

	if err := s.dispatch(ctx, invitation); err != nil {
		return invitation, err
	}
	return invitation, nil
}

// Resolution is the outcome of a successful accept or decline.
type Resolution struct {
	Decision   Decision
	Invitation *models.TeamInvitation
	Member     *models.TeamMember
}

// Resolve applies the recipient's decision to the invitation holding token.
// Expired invitations are rejected and left pending. When acceptance is
// recorded but the seat cannot be created, the accepted invitation is
// returned with ErrMembershipNotCreated.
func (s *InvitationService) Resolve(ctx context.Context, token string, decision Decision) (*Resolution, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidation("Token is required")
	}
	if decision != DecisionAccept && decision != DecisionDecline {
		return nil, apperrors.NewValidation("action must be accept or decline")
	}

	invitation, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, s.reject(ErrInvalidToken.WithInternal(err))
		}
		return nil, storeError(err, nil)
	}
	if !invitation.IsPending() {
		return nil, s.reject(ErrInvalidState)
	}
	if invitation.IsExpired(s.now()) {
		return nil, s.reject(ErrInvitationExpired)
	}

	status := models.InvitationDeclined
	event := "declined"
	if decision == DecisionAccept {
		status = models.InvitationAccepted
		event = "accepted"
	}
	expected := models.InvitationPending
	updated, err := s.invitations.Update(ctx, invitation.ID, store.InvitationPatch{
		Status:       &status,
		ExpectStatus: &expected,
	})
	if err != nil {
		metrics.InvitationEvents.WithLabelValues(event, "failure").Inc()
		switch {
		case errors.Is(err, store.ErrConflict):
			return nil, s.reject(ErrInvalidState.WithInternal(err))
		case errors.Is(err, store.ErrNotFound):
			return nil, s.reject(ErrInvalidToken.WithInternal(err))
		}
		return nil, ErrResolveFailed.WithInternal(err)
	}
	s.changed(ctx, updated.TeamOwnerID)

	resolution := &Resolution{Decision: decision, Invitation: updated}
	if decision == DecisionDecline {
		metrics.InvitationEvents.WithLabelValues(event, "success").Inc()
		s.log.Info("invitation declined", zap.String("invitation_id", updated.ID))
		return resolution, nil
	}

	member := &models.TeamMember{
		TeamOwnerID: updated.TeamOwnerID,
		MemberName:  updated.MemberName,
		MemberEmail: updated.MemberEmail,
		Role:        updated.Role,
		Status:      models.MemberActive,
	}
	if err := s.insertOrReactivate(ctx, member); err != nil {
		metrics.InvitationEvents.WithLabelValues(event, "failure").Inc()
		s.log.Error("invitation accepted but membership not created",
			zap.String("invitation_id", updated.ID),
			zap.String("owner_id", updated.TeamOwnerID),
			zap.Error(err),
		)
		return resolution, ErrMembershipNotCreated.WithInternal(err)
	}

	metrics.InvitationEvents.WithLabelValues(event, "success").Inc()
	s.log.Info("invitation accepted",
		zap.String("invitation_id", updated.ID),
		zap.String("member_id", member.ID),
	)
	s.changed(ctx, updated.TeamOwnerID)
	resolution.Member = member
	return resolution, nil
}

// insertOrReactivate creates the seat, or revives the inactive seat the
// invitee already holds in the team.
func (s *InvitationService) insertOrReactivate(ctx context.Context, member *models.TeamMember) error {
	err := s.members.Insert(ctx, member)
	if !errors.Is(err, store.ErrConflict) {
		return err
	}
	seats, listErr := s.members.List(ctx, store.MemberFilter{
		TeamOwnerID: member.TeamOwnerID,
		MemberEmail: member.MemberEmail,
	})
	if listErr != nil || len(seats) == 0 {
		return err
	}
	if seats[0].Status == models.MemberActive {
		return err
	}
	status := models.MemberActive
	revived, updateErr := s.members.Update(ctx, member.TeamOwnerID, seats[0].ID, store.MemberPatch{
		MemberName: &member.MemberName,
		Role:       &member.Role,
		Status:     &status,
	})
	if updateErr != nil {
		return updateErr
	}
	*member = *revived
	return nil
}

// Resend rotates the token of a pending invitation, extends its deadline and
// dispatches a new email. The new token always differs from the previous one
// and the new deadline is always later than the previous one.
func (s *InvitationService) Resend(ctx context.Context, session auth.Session, id string) (*models.TeamInvitation, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !invitation.IsPending() {
		return nil, s.reject(ErrInvalidState)
	}

	token, err := s.issueToken(invitation.TokenHash)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(s.expiry)
	if !expiresAt.After(invitation.ExpiresAt) {
		expiresAt = invitation.ExpiresAt.Add(time.Second)
	}

	expected := models.InvitationPending
	updated, err := s.invitations.Update(ctx, invitation.ID, store.InvitationPatch{
		Token:        &token,
		ExpiresAt:    &expiresAt,
		ExpectStatus: &expected,
	})
	if err != nil {
		metrics.InvitationEvents.WithLabelValues("resent", "failure").Inc()
		if errors.Is(err, store.ErrConflict) {
			return nil, s.reject(ErrInvalidState.WithInternal(err))
		}
		return nil, storeError(err, ErrInvitationNotFound)
	}

	metrics.InvitationEvents.WithLabelValues("resent", "success").Inc()
	s.log.Info("invitation resent", zap.String("invitation_id", updated.ID))
	s.changed(ctx, updated.TeamOwnerID)

	if err := s.dispatch(ctx, updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// Cancel deletes the invitation regardless of its status. Cancelling an
// invitation that no longer exists succeeds.
func (s *InvitationService) Cancel(ctx context.Context, session auth.Session, id string) error {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return apperrors.ErrUnauthorized.WithInternal(err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return apperrors.NewValidation("invitation id is required")
	}

	if err := s.invitations.Delete(ctx, session.AccountID, id); err != nil {
		metrics.InvitationEvents.WithLabelValues("cancelled", "failure").Inc()
		return storeError(err, nil)
	}

	metrics.InvitationEvents.WithLabelValues("cancelled", "success").Inc()
	s.log.Info("invitation cancelled", zap.String("invitation_id", id), zap.String("owner_id", session.AccountID))
	s.changed(ctx, session.AccountID)
	return nil
}

// Rename changes the invitee's display name while the invitation is pending.
func (s *InvitationService) Rename(ctx context.Context, session auth.Session, id, name string) (*models.TeamInvitation, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if err := validator.ValidateVar("name", name, "required,max=120"); err != nil {
		return nil, validationError(err)
	}

	invitation, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	if !invitation.IsPending() {
		return nil, s.reject(ErrInvalidState)
	}

	expected := models.InvitationPending
	updated, err := s.invitations.Update(ctx, invitation.ID, store.InvitationPatch{
		MemberName:   &name,
		ExpectStatus: &expected,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, s.reject(ErrInvalidState.WithInternal(err))
		}
		return nil, storeError(err, ErrInvitationNotFound)
	}
	s.changed(ctx, updated.TeamOwnerID)
	return updated, nil
}

// Get returns an invitation owned by the session account.
func (s *InvitationService) Get(ctx context.Context, session auth.Session, id string) (*models.TeamInvitation, error) {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewValidation("invitation id is required")
	}

	invitation, err := s.invitations.Get(ctx, id)
	if err != nil {
		return nil, storeError(err, ErrInvitationNotFound)
	}
	if invitation.TeamOwnerID != session.AccountID {
		return nil, ErrInvitationNotFound
	}
	return invitation, nil
}

// List returns the session account's invitations, optionally narrowed to one status.
func (s *InvitationService) List(ctx context.Context, session auth.Session, status string) ([]models.TeamInvitation, error) {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	filter := store.InvitationFilter{TeamOwnerID: session.AccountID}
	if status = strings.ToLower(strings.TrimSpace(status)); status != "" {
		parsed := models.InvitationStatus(status)
		if !parsed.Valid() {
			return nil, apperrors.NewValidation("status must be one of: pending, accepted, declined")
		}
		filter.Status = parsed
	}

	invitations, err := s.invitations.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, nil)
	}
	return invitations, nil
}

// SendInvitationEmailInput mirrors the mail relay request body.
type SendInvitationEmailInput struct {
	To          string `json:"to" validate:"required,email"`
	Name        string `json:"name" validate:"required,max=120"`
	Role        string `json:"role" validate:"required,oneof=admin editor viewer"`
	Token       string `json:"token" validate:"required,max=64"`
	TeamOwnerID string `json:"teamOwnerId" validate:"required,max=64"`
}

// SendInvitationEmail re-sends the email of an existing pending invitation.
// The token must belong to a pending invitation of the session account
// addressed to the same recipient.
func (s *InvitationService) SendInvitationEmail(ctx context.Context, session auth.Session, input SendInvitationEmailInput) error {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return apperrors.ErrUnauthorized.WithInternal(err)
	}

	input.To = models.NormalizeEmail(input.To)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	input.Name = strings.TrimSpace(input.Name)
	input.Token = strings.TrimSpace(input.Token)
	input.TeamOwnerID = strings.TrimSpace(input.TeamOwnerID)
	if err := validateInput(input); err != nil {
		return err
	}
	if input.TeamOwnerID != session.AccountID {
		return apperrors.ErrForbidden
	}

	invitation, err := s.invitations.GetByToken(ctx, input.Token)
	if err != nil {
		return storeError(err, ErrInvalidToken)
	}
	if invitation.TeamOwnerID != session.AccountID || invitation.MemberEmail != input.To {
		return ErrInvalidToken
	}
	if !invitation.IsPending() {
		return ErrInvalidState
	}

	outgoing := *invitation
	outgoing.MemberName = input.Name
	outgoing.Role = models.Role(input.Role)
	return s.dispatch(ctx, &outgoing)
}

func (s *InvitationService) dispatch(ctx context.Context, invitation *models.TeamInvitation) error {
	accept, decline := notify.Links(s.appURL, invitation.Token)
	err := s.dispatcher.Dispatch(ctx, notify.Notification{
		RecipientEmail: invitation.MemberEmail,
		RecipientName:  invitation.MemberName,
		Role:           string(invitation.Role),
		AcceptURL:      accept,
		DeclineURL:     decline,
		ExpiresIn:      s.expiry,
	})
	if err != nil {
		s.log.Warn("invitation stored but email dispatch failed",
			zap.String("invitation_id", invitation.ID),
			zap.Error(err),
		)
		return ErrDispatchFailed.WithInternal(err)
	}
	return nil
}

// issueToken returns a fresh token whose digest differs from previousHash.
func (s *InvitationService) issueToken(previousHash string) (string, error) {
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.tokens.Issue()
		if err != nil {
			return "", apperrors.ErrInternalServer.WithInternal(err)
		}
		if token != "" && models.HashToken(token) != previousHash {
			return token, nil
		}
	}
	return "", apperrors.ErrInternalServer.WithInternal(errors.New("token issuer returned a reused token"))
}

func (s *InvitationService) reject(err *apperrors.AppError) error {
	metrics.InvitationRejections.WithLabelValues(err.Code).Inc()
	return err
}

func (s *InvitationService) changed(ctx context.Context, ownerID string) {
	for _, observer := range s.observers {
		observer(ctx, ownerID)
	}
}

func validateInput(input interface{}) error {
	if err := validator.ValidateStruct(input); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var failures validator.ValidationErrors
	if errors.As(err, &failures) {
		return apperrors.NewValidation(strings.Join(failures.Messages(), "; ")).WithInternal(err)
	}
	return apperrors.ErrValidation.WithInternal(err)
}
