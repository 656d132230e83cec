package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/internal/auth"
	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/internal/store"
	apperrors "github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/logger"
	"github.com/charlesng35/teamseats/pkg/metrics"
)

// AccountService manages the per-account plan and quota record.
type AccountService struct {
	accounts store.AccountStore
	members  store.MemberStore
	log      *zap.Logger
}

var _ AccountProvisioner = (*AccountService)(nil)

// NewAccountService constructs an AccountService.
func NewAccountService(accounts store.AccountStore, members store.MemberStore) (*AccountService, error) {
	if accounts == nil {
		return nil, errors.New("account service: account store is required")
	}
	if members == nil {
		return nil, errors.New("account service: member store is required")
	}
	return &AccountService{
		accounts: accounts,
		members:  members,
		log:      logger.WithModule("accounts"),
	}, nil
}

// Ensure returns the session account's record, creating it on the Basic plan
// together with the owner's own seat when it does not exist yet.
func (s *AccountService) Ensure(ctx context.Context, session auth.Session) (*models.UserData, error) {
	ctx = ensureContext(ctx)
	if err := session.Validate(); err != nil {
		return nil, apperrors.ErrUnauthorized.WithInternal(err)
	}

	data, err := s.accounts.Get(ctx, session.AccountID)
	if err == nil {
		// Repairs a seat lost to a failure during an earlier provisioning.
		if err := s.ensureOwnerSeat(ctx, session); err != nil {
			return nil, storeError(err, nil)
		}
		return data, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeError(err, nil)
	}

	data = models.NewUserData(session.AccountID, session.Email, models.PlanBasic)
	if err := s.accounts.Insert(ctx, data); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Another request provisioned the account first.
			existing, getErr := s.accounts.Get(ctx, session.AccountID)
			if getErr != nil {
				return nil, storeError(getErr, ErrAccountNotFound)
			}
			if err := s.ensureOwnerSeat(ctx, session); err != nil {
				return nil, storeError(err, nil)
			}
			return existing, nil
		}
		return nil, storeError(err, nil)
	}

	if err := s.ensureOwnerSeat(ctx, session); err != nil {
		s.log.Warn("owner seat not created", zap.String("account_id", session.AccountID), zap.Error(err))
		return nil, storeError(err, nil)
	}
	s.log.Info("account provisioned", zap.String("account_id", session.AccountID), zap.String("plan", string(data.Plan)))
	return data, nil
}

func (s *AccountService) ensureOwnerSeat(ctx context.Context, session auth.Session) error {
	if session.Email == "" {
		return nil
	}
	count, err := s.members.Count(ctx, store.MemberFilter{
		TeamOwnerID: session.AccountID,
		MemberEmail: session.Email,
	})
	if err != nil || count > 0 {
		return err
	}
	err = s.members.Insert(ctx, &models.TeamMember{
		TeamOwnerID: session.AccountID,
		MemberName:  models.OwnerSeatName(session.Email),
		MemberEmail: session.Email,
		Role:        models.RoleAdmin,
		Status:      models.MemberActive,
	})
	if errors.Is(err, store.ErrConflict) {
		// A concurrent request created the seat.
		return nil
	}
	return err
}

// SelectPlan switches the account to plan and resets quota totals to the
// plan's allowance. Usage counters are kept.
func (s *AccountService) SelectPlan(ctx context.Context, session auth.Session, name string) (*models.UserData, error) {
	ctx = ensureContext(ctx)

	plan, err := models.ParsePlan(name)
	if err != nil {
		return nil, ErrInvalidPlan.WithInternal(err)
	}

	current, err := s.Ensure(ctx, session)
	if err != nil {
		return nil, err
	}
	if current.Plan == plan {
		return nil, ErrPlanUnchanged
	}

	limits, _ := plan.Limits()
	updated, err := s.accounts.Update(ctx, session.AccountID, store.AccountPatch{Plan: &plan, Totals: &limits})
	if err != nil {
		return nil, storeError(err, ErrAccountNotFound)
	}
	s.log.Info("plan changed",
		zap.String("account_id", session.AccountID),
		zap.String("from", string(current.Plan)),
		zap.String("to", string(plan)),
	)
	return updated, nil
}

// SimulateUsage adds amount to the used counter of kind. The increment is
// rejected without mutation when it would take usage past the quota total.
func (s *AccountService) SimulateUsage(ctx context.Context, session auth.Session, kind models.UsageKind, amount int64) (*models.UserData, error) {
	ctx = ensureContext(ctx)

	kind, err := models.ParseUsageKind(string(kind))
	if err != nil {
		return nil, apperrors.NewValidation("kind must be one of: storage, tokens, prompts").WithInternal(err)
	}
	if amount <= 0 {
		return nil, apperrors.NewValidation("amount must be greater than 0")
	}
	if _, err := s.Ensure(ctx, session); err != nil {
		return nil, err
	}

	applied, err := s.accounts.AddUsage(ctx, session.AccountID, kind, amount)
	if err != nil {
		return nil, storeError(err, ErrAccountNotFound)
	}
	if !applied {
		metrics.QuotaRejections.WithLabelValues(string(kind)).Inc()
		return nil, ErrQuotaExceeded.WithMessage(fmt.Sprintf("Maximum %s limit reached!", kind.Label()))
	}

	data, err := s.accounts.Get(ctx, session.AccountID)
	if err != nil {
		return nil, storeError(err, ErrAccountNotFound)
	}
	return data, nil
}

// ResetUsage zeroes the used counter of kind.
func (s *AccountService) ResetUsage(ctx context.Context, session auth.Session, kind models.UsageKind) (*models.UserData, error) {
	ctx = ensureContext(ctx)

	kind, err := models.ParseUsageKind(string(kind))
	if err != nil {
		return nil, apperrors.NewValidation("kind must be one of: storage, tokens, prompts").WithInternal(err)
	}
	if _, err := s.Ensure(ctx, session); err != nil {
		return nil, err
	}

	data, err := s.accounts.SetUsage(ctx, session.AccountID, kind, 0)
	if err != nil {
		return nil, storeError(err, ErrAccountNotFound)
	}
	return data, nil
}
