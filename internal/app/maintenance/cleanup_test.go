package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/cache"
	testutil "github.com/charlesng35/teamseats/internal/database/testutil"
	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/internal/store"
)

func seedInvitation(t *testing.T, db *gorm.DB, invitations *store.GormInvitationStore, email string, status models.InvitationStatus, touched time.Time) *models.TeamInvitation {
	t.Helper()

	invitation := &models.TeamInvitation{
		TeamOwnerID: "acct-cleanup",
		MemberEmail: email,
		MemberName:  "Member",
		Role:        models.RoleViewer,
		Token:       "token-" + email,
		Status:      status,
		ExpiresAt:   touched.Add(7 * 24 * time.Hour),
	}
	require.NoError(t, invitations.Insert(context.Background(), invitation))
	require.NoError(t, db.Model(&models.TeamInvitation{}).
		Where("id = ?", invitation.ID).
		UpdateColumn("updated_at", touched).Error)
	return invitation
}

func TestPurgeResolvedInvitations(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	invitations, err := store.NewInvitationStore(db)
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -45)

	seedInvitation(t, db, invitations, "old-accepted@x.com", models.InvitationAccepted, old)
	seedInvitation(t, db, invitations, "old-declined@x.com", models.InvitationDeclined, old)
	keptPending := seedInvitation(t, db, invitations, "old-pending@x.com", models.InvitationPending, old)
	keptRecent := seedInvitation(t, db, invitations, "recent@x.com", models.InvitationAccepted, now.AddDate(0, 0, -2))

	removed, err := PurgeResolvedInvitations(context.Background(), invitations, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)

	remaining, err := invitations.List(context.Background(), store.InvitationFilter{TeamOwnerID: "acct-cleanup"})
	require.NoError(t, err)
	ids := make([]string, 0, len(remaining))
	for _, invitation := range remaining {
		ids = append(ids, invitation.ID)
	}
	require.ElementsMatch(t, []string{keptPending.ID, keptRecent.ID}, ids)

	_, err = PurgeResolvedInvitations(context.Background(), nil, now)
	require.Error(t, err)
	_, err = PurgeResolvedInvitations(context.Background(), invitations, time.Time{})
	require.Error(t, err)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	invitations, err := store.NewInvitationStore(db)
	require.NoError(t, err)
	cacheStore := cache.NewDatabaseStore(db)

	ctx := context.Background()
	now := time.Now().UTC().Add(time.Hour)

	seedInvitation(t, db, invitations, "stale@x.com", models.InvitationDeclined, now.AddDate(0, 0, -20))
	require.NoError(t, cacheStore.Set(ctx, "stale", []byte("1"), time.Second))
	require.NoError(t, cacheStore.Set(ctx, "fresh", []byte("1"), 24*time.Hour))

	c := NewCleaner(invitations,
		WithCachePurger(cacheStore),
		WithNow(func() time.Time { return now }),
		WithRetention(14*24*time.Hour),
		WithCron(cron.New(cron.WithLogger(cron.DiscardLogger))),
	)

	stats, err := c.run(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.Invitations)
	require.Equal(t, int64(1), stats.CacheEntries)

	_, found, err := cacheStore.Get(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, found)
}

type failingPurger struct{ err error }

func (f failingPurger) Purge(context.Context, store.InvitationFilter) (int64, error) {
	return 0, f.err
}

func (f failingPurger) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, f.err
}

func TestCleanerAggregatesFailures(t *testing.T) {
	invitationsErr := errors.New("invitations unavailable")
	cacheErr := errors.New("cache unavailable")

	c := NewCleaner(failingPurger{err: invitationsErr}, WithCachePurger(failingPurger{err: cacheErr}))

	err := c.RunOnce(context.Background())
	require.ErrorIs(t, err, invitationsErr)
	require.ErrorIs(t, err, cacheErr)
}

func TestCleanerStartRejectsInvalidSchedule(t *testing.T) {
	c := NewCleaner(failingPurger{}, WithSchedule("not a schedule"))
	require.Error(t, c.Start())

	idle := NewCleaner(nil)
	require.NoError(t, idle.Start())
	<-idle.Stop().Done()
}

func TestCleanerStartAndStop(t *testing.T) {
	c := NewCleaner(failingPurger{}, WithSchedule("@every 1h"))
	require.NoError(t, c.Start())
	<-c.Stop().Done()
}
