package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/internal/store"
	"github.com/charlesng35/teamseats/pkg/logger"
)

const (
	defaultRetention = 30 * 24 * time.Hour
	defaultSchedule  = "@daily"
)

// InvitationPurger removes invitations matching a filter.
type InvitationPurger interface {
	Purge(ctx context.Context, filter store.InvitationFilter) (int64, error)
}

// CachePurger removes expired cache rows.
type CachePurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner periodically purges resolved invitations past the retention window
// and expired cache entries. Pending invitations are never removed.
type Cleaner struct {
	invitations InvitationPurger
	cache       CachePurger
	cron        *cron.Cron
	now         func() time.Time
	log         *zap.Logger
	retention   time.Duration
	schedule    string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithRetention adjusts how long resolved invitations are kept.
func WithRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithSchedule overrides the cron expression of the cleanup job.
func WithSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.schedule = expr
		}
	}
}

// WithCachePurger enables purging of expired cache entries.
func WithCachePurger(purger CachePurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = purger
	}
}

// NewCleaner constructs a Cleaner. A nil invitation purger disables that job.
func NewCleaner(invitations InvitationPurger, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invitations: invitations,
		now:         time.Now,
		retention:   defaultRetention,
		schedule:    defaultSchedule,
		log:         logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.invitations != nil || c.cache != nil
}

// Start registers the cleanup job and launches the scheduler.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("maintenance cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return c.cron.Stop()
}

// Stats reports how many rows a cleanup pass removed.
type Stats struct {
	Invitations  int64
	CacheEntries int64
}

// RunOnce executes every configured cleanup sequentially and aggregates failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	_, err := c.run(ctx)
	return err
}

func (c *Cleaner) run(ctx context.Context) (Stats, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		stats Stats
		errs  error
	)
	now := c.now()

	if c.invitations != nil {
		removed, err := PurgeResolvedInvitations(ctx, c.invitations, now.Add(-c.retention))
		stats.Invitations = removed
		errs = multierr.Append(errs, err)
	}

	if c.cache != nil {
		removed, err := c.cache.PurgeExpired(ctx, now)
		if err != nil {
			err = fmt.Errorf("maintenance: purge cache: %w", err)
		}
		stats.CacheEntries = removed
		errs = multierr.Append(errs, err)
	}

	if errs == nil {
		c.log.Debug("maintenance cleanup finished",
			zap.Int64("invitations", stats.Invitations),
			zap.Int64("cache_entries", stats.CacheEntries),
		)
	}
	return stats, errs
}

// PurgeResolvedInvitations deletes accepted and declined invitations last
// touched before cutoff.
func PurgeResolvedInvitations(ctx context.Context, purger InvitationPurger, cutoff time.Time) (int64, error) {
	if purger == nil {
		return 0, errors.New("maintenance: invitation purger is required")
	}
	if cutoff.IsZero() {
		return 0, errors.New("maintenance: cutoff is required")
	}
	removed, err := purger.Purge(ctx, store.InvitationFilter{
		Statuses:      []models.InvitationStatus{models.InvitationAccepted, models.InvitationDeclined},
		UpdatedBefore: cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("maintenance: purge invitations: %w", err)
	}
	return removed, nil
}
