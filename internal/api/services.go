package api

import (
	"gorm.io/gorm"

	"github.com/charlesng35/teamseats/internal/app"
	"github.com/charlesng35/teamseats/internal/cache"
	"github.com/charlesng35/teamseats/internal/notify"
	"github.com/charlesng35/teamseats/internal/services"
	"github.com/charlesng35/teamseats/internal/store"
)

type serviceSet struct {
	invitations *services.InvitationService
	dashboard   *services.DashboardService
}

func newServiceSet(db *gorm.DB, cfg *app.Config, cacheStore cache.Store, dispatcher notify.Dispatcher) (*serviceSet, error) {
	invitationStore, err := store.NewInvitationStore(db)
	if err != nil {
		return nil, err
	}
	memberStore, err := store.NewMemberStore(db)
	if err != nil {
		return nil, err
	}
	accountStore, err := store.NewAccountStore(db)
	if err != nil {
		return nil, err
	}

	accounts, err := services.NewAccountService(accountStore, memberStore)
	if err != nil {
		return nil, err
	}

	opts := []services.InvitationOption{
		services.WithInvitationExpiry(cfg.Invitations.Expiry),
	}
	if cfg.Server.AppURL != "" {
		opts = append(opts, services.WithInvitationAppURL(cfg.Server.AppURL))
	}
	if cfg.Invitations.TokenBytes > 0 {
		opts = append(opts, services.WithInvitationTokenIssuer(services.NewRandomTokenIssuer(cfg.Invitations.TokenBytes)))
	}
	invitations, err := services.NewInvitationService(invitationStore, memberStore, accounts, dispatcher, opts...)
	if err != nil {
		return nil, err
	}

	team, err := services.NewTeamService(memberStore)
	if err != nil {
		return nil, err
	}

	var dashboardOpts []services.DashboardOption
	if cacheStore != nil {
		dashboardOpts = append(dashboardOpts, services.WithDashboardCache(cacheStore, cfg.Dashboard.CacheTTL))
	}
	dashboard, err := services.NewDashboardService(accounts, invitations, team, dashboardOpts...)
	if err != nil {
		return nil, err
	}

	return &serviceSet{invitations: invitations, dashboard: dashboard}, nil
}
