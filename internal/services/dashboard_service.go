package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/cache"
	"github.com/charlesng35/teamseats/internal/models"
	apperrors "github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/logger"
	"github.com/charlesng35/teamseats/pkg/metrics"
)

// DefaultDashboardCacheTTL bounds how long a cached read model is served.
const DefaultDashboardCacheTTL = 30 * time.Second

// Outcome reports how a dashboard command settled.
type Outcome string

const (
	// OutcomeConfirmed means the command succeeded and the optimistic model stands.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeReconciled means the command failed and the model was reloaded.
	OutcomeReconciled Outcome = "reconciled"
)

// Dashboard is the owner's read model: usage, seats and open invitations.
type Dashboard struct {
	UserData       *models.UserData        `json:"user_data"`
	TeamMembers    []models.TeamMember     `json:"team_members"`
	PendingInvites []models.TeamInvitation `json:"pending_invites"`
	SeatLimit      int                     `json:"seat_limit"`
	SeatsUsed      int                     `json:"seats_used"`
}

// Clone returns a deep copy safe to patch.
func (d *Dashboard) Clone() *Dashboard {
	if d == nil {
		return nil
	}
	out := &Dashboard{SeatLimit: d.SeatLimit, SeatsUsed: d.SeatsUsed}
	if d.UserData != nil {
		data := *d.UserData
		out.UserData = &data
	}
	out.TeamMembers = append([]models.TeamMember(nil), d.TeamMembers...)
	out.PendingInvites = append([]models.TeamInvitation(nil), d.PendingInvites...)
	return out
}

func (d *Dashboard) recount() {
	active := 0
	for _, member := range d.TeamMembers {
		if member.Status == models.MemberActive {
			active++
		}
	}
	d.SeatsUsed = active
	if d.UserData != nil {
		d.SeatLimit = d.UserData.Plan.SeatLimit()
	}
}

// Result is returned by Apply for both outcomes.
type Result struct {
	Outcome   Outcome    `json:"outcome"`
	Dashboard *Dashboard `json:"dashboard"`
}

// Command is a dashboard mutation. Implementations live in this package.
type Command interface {
	// Name labels the command in logs and metrics.
	Name() string
	patch(d *Dashboard)
	execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error
}

// DashboardOption customises DashboardService behaviour.
type DashboardOption func(*DashboardService)

// WithDashboardCache caches read models in store for ttl.
func WithDashboardCache(store cache.Store, ttl time.Duration) DashboardOption {
	return func(s *DashboardService) {
		s.cache = store
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// DashboardService aggregates the owner's read model and applies commands to it.
type DashboardService struct {
	accounts    *AccountService
	invitations *InvitationService
	team        *TeamService
	cache       cache.Store
	ttl         time.Duration
	log         *zap.Logger
}

// NewDashboardService constructs a DashboardService and subscribes it to
// invitation and seat changes so cached read models are dropped.
func NewDashboardService(accounts *AccountService, invitations *InvitationService, team *TeamService, opts ...DashboardOption) (*DashboardService, error) {
	switch {
	case accounts == nil:
		return nil, errors.New("dashboard service: account service is required")
	case invitations == nil:
		return nil, errors.New("dashboard service: invitation service is required")
	case team == nil:
		return nil, errors.New("dashboard service: team service is required")
	}

	service := &DashboardService{
		accounts:    accounts,
		invitations: invitations,
		team:        team,
		ttl:         DefaultDashboardCacheTTL,
		log:         logger.WithModule("dashboard"),
	}
	for _, opt := range opts {
		opt(service)
	}

	invitations.Subscribe(service.Invalidate)
	team.Subscribe(service.Invalidate)
	return service, nil
}

// Load returns the session account's read model, provisioning the account on
// first access.
func (s *DashboardService) Load(ctx context.Context, session auth.Session) (*Dashboard, error) {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	if cached, ok := s.cached(ctx, session.AccountID); ok {
		return cached, nil
	}

	data, err := s.accounts.Ensure(ctx, session)
	if err != nil {
		return nil, err
	}
	members, err := s.team.ListMembers(ctx, session)
	if err != nil {
		return nil, err
	}
	pending, err := s.invitations.List(ctx, session, string(models.InvitationPending))
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{
		UserData:       data,
		TeamMembers:    members,
		PendingInvites: pending,
	}
	dashboard.recount()
	s.store(ctx, session.AccountID, dashboard)
	return dashboard, nil
}

// Apply patches a copy of the read model optimistically and executes cmd.
// On success the patched model is returned as confirmed. On failure the
// authoritative model is reloaded and returned as reconciled alongside the
// command error.
func (s *DashboardService) Apply(ctx context.Context, session auth.Session, cmd Command) (*Result, error) {
	ctx = ensureContext(ctx)
	if cmd == nil {
		return nil, apperrors.NewValidation("command is required")
	}

	current, err := s.Load(ctx, session)
	if err != nil {
		return nil, err
	}

	optimistic := current.Clone()
	cmd.patch(optimistic)
	optimistic.recount()

	if execErr := cmd.execute(ctx, s, session, optimistic); execErr != nil {
		metrics.DashboardCommands.WithLabelValues(cmd.Name(), string(OutcomeReconciled)).Inc()
		s.Invalidate(ctx, session.AccountID)

		fresh, loadErr := s.Load(ctx, session)
		if loadErr != nil {
			s.log.Error("dashboard reload failed",
				zap.String("account_id", session.AccountID),
				zap.String("command", cmd.Name()),
				zap.Error(loadErr),
			)
			return &Result{Outcome: OutcomeReconciled, Dashboard: current}, multierr.Append(execErr, loadErr)
		}
		s.log.Debug("dashboard command reconciled",
			zap.String("account_id", session.AccountID),
			zap.String("command", cmd.Name()),
			zap.Error(execErr),
		)
		return &Result{Outcome: OutcomeReconciled, Dashboard: fresh}, execErr
	}

	metrics.DashboardCommands.WithLabelValues(cmd.Name(), string(OutcomeConfirmed)).Inc()
	s.Invalidate(ctx, session.AccountID)
	return &Result{Outcome: OutcomeConfirmed, Dashboard: optimistic}, nil
}

// Invalidate drops the cached read model of ownerID.
func (s *DashboardService) Invalidate(ctx context.Context, ownerID string) {
	if s.cache == nil || ownerID == "" {
		return
	}
	if err := s.cache.Delete(ensureContext(ctx), dashboardKey(ownerID)); err != nil {
		s.log.Warn("dashboard cache invalidation failed", zap.String("account_id", ownerID), zap.Error(err))
	}
}

func (s *DashboardService) cached(ctx context.Context, ownerID string) (*Dashboard, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, dashboardKey(ownerID))
	if err != nil {
		s.log.Warn("dashboard cache read failed", zap.String("account_id", ownerID), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var dashboard Dashboard
	if err := json.Unmarshal(raw, &dashboard); err != nil {
		s.log.Warn("discarding corrupt dashboard cache entry", zap.String("account_id", ownerID), zap.Error(err))
		return nil, false
	}
	return &dashboard, true
}

func (s *DashboardService) store(ctx context.Context, ownerID string, dashboard *Dashboard) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(dashboard)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardKey(ownerID), raw, s.ttl); err != nil {
		s.log.Warn("dashboard cache write failed", zap.String("account_id", ownerID), zap.Error(err))
	}
}

func dashboardKey(ownerID string) string {
	return "dashboard:" + ownerID
}

// SimulateUsage consumes amount of the kind quota.
type SimulateUsage struct {
	Kind   models.UsageKind
	Amount int64
}

func (SimulateUsage) Name() string { return "simulate_usage" }

func (c SimulateUsage) patch(d *Dashboard) {
	if d.UserData == nil || c.Amount <= 0 {
		return
	}
	if used, _, ok := d.UserData.Usage(c.Kind); ok {
		d.UserData.SetUsed(c.Kind, used+c.Amount)
	}
}

func (c SimulateUsage) execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error {
	data, err := s.accounts.SimulateUsage(ctx, session, c.Kind, c.Amount)
	if err != nil {
		return err
	}
	d.UserData = data
	return nil
}

// ResetUsage zeroes the kind quota.
type ResetUsage struct {
	Kind models.UsageKind
}

func (ResetUsage) Name() string { return "reset_usage" }

func (c ResetUsage) patch(d *Dashboard) {
	if d.UserData != nil {
		d.UserData.SetUsed(c.Kind, 0)
	}
}

func (c ResetUsage) execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error {
	data, err := s.accounts.ResetUsage(ctx, session, c.Kind)
	if err != nil {
		return err
	}
	d.UserData = data
	return nil
}

// SelectPlan switches the account's plan.
type SelectPlan struct {
	Plan string
}

func (SelectPlan) Name() string { return "select_plan" }

func (c SelectPlan) patch(d *Dashboard) {
	plan, err := models.ParsePlan(c.Plan)
	if err != nil || d.UserData == nil {
		return
	}
	d.UserData.ApplyPlan(plan)
}

func (c SelectPlan) execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error {
	data, err := s.accounts.SelectPlan(ctx, session, c.Plan)
	if err != nil {
		return err
	}
	d.UserData = data
	d.recount()
	return nil
}

// RemoveMember frees a seat.
type RemoveMember struct {
	ID string
}

func (RemoveMember) Name() string { return "remove_member" }

func (c RemoveMember) patch(d *Dashboard) {
	kept := d.TeamMembers[:0]
	for _, member := range d.TeamMembers {
		if member.ID != c.ID {
			kept = append(kept, member)
		}
	}
	d.TeamMembers = kept
}

func (c RemoveMember) execute(ctx context.Context, s *DashboardService, session auth.Session, _ *Dashboard) error {
	return s.team.RemoveMember(ctx, session, c.ID)
}

// ChangeMemberRole updates a seat's role.
type ChangeMemberRole struct {
	ID   string
	Role string
}

func (ChangeMemberRole) Name() string { return "change_member_role" }

func (c ChangeMemberRole) patch(d *Dashboard) {
	role, err := models.ParseRole(c.Role)
	if err != nil {
		return
	}
	for i := range d.TeamMembers {
		if d.TeamMembers[i].ID == c.ID {
			d.TeamMembers[i].Role = role
		}
	}
}

func (c ChangeMemberRole) execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error {
	role := c.Role
	updated, err := s.team.UpdateMember(ctx, session, c.ID, UpdateMemberInput{Role: &role})
	if err != nil {
		return err
	}
	d.replaceMember(*updated)
	return nil
}

// RenameMember updates a seat's display name.
type RenameMember struct {
	ID         string
	MemberName string
}

func (RenameMember) Name() string { return "rename_member" }

func (c RenameMember) patch(d *Dashboard) {
	for i := range d.TeamMembers {
		if d.TeamMembers[i].ID == c.ID {
			d.TeamMembers[i].MemberName = c.MemberName
		}
	}
}

func (c RenameMember) execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error {
	name := c.MemberName
	updated, err := s.team.UpdateMember(ctx, session, c.ID, UpdateMemberInput{Name: &name})
	if err != nil {
		return err
	}
	d.replaceMember(*updated)
	return nil
}

// ResendInvite rotates a pending invitation's token and re-sends it.
type ResendInvite struct {
	ID string
}

func (ResendInvite) Name() string { return "resend_invite" }

func (ResendInvite) patch(*Dashboard) {}

func (c ResendInvite) execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error {
	updated, err := s.invitations.Resend(ctx, session, c.ID)
	if err != nil {
		return err
	}
	d.replaceInvite(*updated)
	return nil
}

// CancelInvite withdraws an invitation.
type CancelInvite struct {
	ID string
}

func (CancelInvite) Name() string { return "cancel_invite" }

func (c CancelInvite) patch(d *Dashboard) {
	kept := d.PendingInvites[:0]
	for _, invite := range d.PendingInvites {
		if invite.ID != c.ID {
			kept = append(kept, invite)
		}
	}
	d.PendingInvites = kept
}

func (c CancelInvite) execute(ctx context.Context, s *DashboardService, session auth.Session, _ *Dashboard) error {
	return s.invitations.Cancel(ctx, session, c.ID)
}

// RenameInvite edits the invitee's display name before acceptance.
type RenameInvite struct {
	ID         string
	MemberName string
}

func (RenameInvite) Name() string { return "rename_invite" }

func (c RenameInvite) patch(d *Dashboard) {
	for i := range d.PendingInvites {
		if d.PendingInvites[i].ID == c.ID {
			d.PendingInvites[i].MemberName = c.MemberName
		}
	}
}

func (c RenameInvite) execute(ctx context.Context, s *DashboardService, session auth.Session, d *Dashboard) error {
	updated, err := s.invitations.Rename(ctx, session, c.ID, c.MemberName)
	if err != nil {
		return err
	}
	d.replaceInvite(*updated)
	return nil
}

func (d *Dashboard) replaceMember(member models.TeamMember) {
	for i := range d.TeamMembers {
		if d.TeamMembers[i].ID == member.ID {
			d.TeamMembers[i] = member
			return
		}
	}
}

func (d *Dashboard) replaceInvite(invite models.TeamInvitation) {
	for i := range d.PendingInvites {
		if d.PendingInvites[i].ID == invite.ID {
			d.PendingInvites[i] = invite
			return
		}
	}
}
