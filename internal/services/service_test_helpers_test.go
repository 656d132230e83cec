package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/cache"
	"github.com/charlesng35/teamseats/internal/database/testutil"
	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/internal/notify"
	"github.com/charlesng35/teamseats/internal/store"
)

var ownerSession = auth.Session{AccountID: "acct-owner", Email: "owner@example.com"}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, n notify.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return fmt.Errorf("%w: %w", notify.ErrDispatchFailed, d.err)
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *recordingDispatcher) last(t *testing.T) notify.Notification {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent, "expected a dispatched notification")
	return d.sent[len(d.sent)-1]
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type sequenceIssuer struct {
	tokens []string
	next   int
}

func (i *sequenceIssuer) Issue() (string, error) {
	if i.next >= len(i.tokens) {
		return "", errors.New("sequence issuer exhausted")
	}
	token := i.tokens[i.next]
	i.next++
	return token, nil
}

type failingMemberStore struct {
	store.MemberStore
	insertErr error
}

func (s *failingMemberStore) Insert(ctx context.Context, member *models.TeamMember) error {
	if s.insertErr != nil && member.MemberEmail != ownerSession.Email {
		return s.insertErr
	}
	return s.MemberStore.Insert(ctx, member)
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type serviceHarness struct {
	db          *gorm.DB
	clock       *testClock
	dispatcher  *recordingDispatcher
	invitStore  store.InvitationStore
	memberStore *failingMemberStore
	accountsDB  store.AccountStore
	accounts    *AccountService
	invitations *InvitationService
	team        *TeamService
	dashboard   *DashboardService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	invitationOpts []InvitationOption
}

func withInvitationOptions(opts ...InvitationOption) harnessOption {
	return func(c *harnessConfig) {
		c.invitationOpts = append(c.invitationOpts, opts...)
	}
}

func newServiceHarness(t *testing.T, opts ...harnessOption) *serviceHarness {
	t.Helper()

	cfg := &harnessConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	invitations, err := store.NewInvitationStore(db)
	require.NoError(t, err)
	members, err := store.NewMemberStore(db)
	require.NoError(t, err)
	accounts, err := store.NewAccountStore(db)
	require.NoError(t, err)

	h := &serviceHarness{
		db:          db,
		clock:       &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		dispatcher:  &recordingDispatcher{},
		invitStore:  invitations,
		memberStore: &failingMemberStore{MemberStore: members},
		accountsDB:  accounts,
	}

	h.accounts, err = NewAccountService(accounts, h.memberStore)
	require.NoError(t, err)

	invitationOpts := append([]InvitationOption{
		WithInvitationClock(h.clock.Now),
		WithInvitationAppURL("https://app.example.com/"),
	}, cfg.invitationOpts...)
	h.invitations, err = NewInvitationService(invitations, h.memberStore, h.accounts, h.dispatcher, invitationOpts...)
	require.NoError(t, err)

	h.team, err = NewTeamService(h.memberStore)
	require.NoError(t, err)

	h.dashboard, err = NewDashboardService(h.accounts, h.invitations, h.team,
		WithDashboardCache(cache.NewDatabaseStore(db), time.Minute),
	)
	require.NoError(t, err)
	return h
}

func (h *serviceHarness) invite(t *testing.T, email, name, role string) *models.TeamInvitation {
	t.Helper()
	invitation, err := h.invitations.Create(context.Background(), ownerSession, CreateInvitationInput{
		Email: email,
		Name:  name,
		Role:  role,
	})
	require.NoError(t, err)
	return invitation
}

func (h *serviceHarness) addMember(t *testing.T, email string) *models.TeamMember {
	t.Helper()
	member := &models.TeamMember{
		TeamOwnerID: ownerSession.AccountID,
		MemberName:  "Seat " + email,
		MemberEmail: email,
		Role:        models.RoleViewer,
		Status:      models.MemberActive,
	}
	require.NoError(t, h.memberStore.MemberStore.Insert(context.Background(), member))
	return member
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	parsed, err := url.Parse(link)
	require.NoError(t, err)
	token := parsed.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}
