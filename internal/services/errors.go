package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/charlesng35/teamseats/internal/store"
	apperrors "github.com/charlesng35/teamseats/pkg/errors"
)

var (
	// ErrDuplicateMember indicates the invitee already holds an active seat.
	ErrDuplicateMember = apperrors.NewKind(apperrors.KindConflict, "INVITATION_DUPLICATE_MEMBER", "This email is already a team member", http.StatusConflict)
	// ErrDuplicatePendingInvite indicates a pending invitation already exists for the email.
	ErrDuplicatePendingInvite = apperrors.NewKind(apperrors.KindConflict, "INVITATION_DUPLICATE_PENDING", "A pending invitation already exists for this email", http.StatusConflict)
	// ErrSeatLimitReached indicates the owner's plan has no free seat.
	ErrSeatLimitReached = apperrors.NewKind(apperrors.KindConflict, "SEAT_LIMIT_REACHED", "You've reached the maximum team members limit for your plan", http.StatusConflict)

	// ErrInvalidToken indicates no invitation matches the supplied token.
	ErrInvalidToken = apperrors.NewKind(apperrors.KindNotFound, "INVITATION_INVALID_TOKEN", "Invalid or expired invitation", http.StatusNotFound)
	// ErrInvitationNotFound indicates no invitation matches the supplied id.
	ErrInvitationNotFound = apperrors.NewKind(apperrors.KindNotFound, "INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationExpired indicates the invitation deadline has passed.
	ErrInvitationExpired = apperrors.NewKind(apperrors.KindExpired, "INVITATION_EXPIRED", "Invitation has expired", http.StatusGone)
	// ErrInvalidState indicates the invitation is no longer pending.
	ErrInvalidState = apperrors.NewKind(apperrors.KindState, "INVITATION_INVALID_STATE", "Invitation has already been processed", http.StatusConflict)

	// ErrDispatchFailed indicates the invitation was stored but the email could not be sent.
	ErrDispatchFailed = apperrors.NewKind(apperrors.KindDependency, "INVITATION_DISPATCH_FAILED", "Failed to send invitation email", http.StatusBadGateway)
	// ErrMembershipNotCreated indicates the invitation was accepted but the seat could not be created.
	ErrMembershipNotCreated = apperrors.NewKind(apperrors.KindDependency, "MEMBERSHIP_NOT_CREATED", "Failed to add user to team", http.StatusInternalServerError)
	// ErrResolveFailed indicates the invitation status could not be written.
	ErrResolveFailed = apperrors.NewKind(apperrors.KindDependency, "INVITATION_RESOLVE_FAILED", "Failed to process invitation", http.StatusInternalServerError)
	// ErrStoreFailure wraps unexpected persistence errors.
	ErrStoreFailure = apperrors.NewKind(apperrors.KindDependency, "STORE_FAILURE", "Internal server error", http.StatusInternalServerError)

	// ErrMemberNotFound indicates no seat matches the supplied id.
	ErrMemberNotFound = apperrors.NewKind(apperrors.KindNotFound, "MEMBER_NOT_FOUND", "Team member not found", http.StatusNotFound)
	// ErrOwnerSeat indicates an operation would remove or demote the owner's own seat.
	ErrOwnerSeat = apperrors.NewKind(apperrors.KindState, "OWNER_SEAT_PROTECTED", "The team owner's seat cannot be changed this way", http.StatusConflict)

	// ErrQuotaExceeded indicates a usage increment would pass the quota total.
	ErrQuotaExceeded = apperrors.NewKind(apperrors.KindValidation, "QUOTA_EXCEEDED", "Maximum usage limit reached!", http.StatusUnprocessableEntity)
	// ErrPlanUnchanged indicates the account is already on the requested plan.
	ErrPlanUnchanged = apperrors.NewKind(apperrors.KindConflict, "PLAN_UNCHANGED", "You are already on this plan", http.StatusConflict)
	// ErrInvalidPlan indicates the requested plan is not in the catalog.
	ErrInvalidPlan = apperrors.NewKind(apperrors.KindValidation, "PLAN_INVALID", "Invalid plan selected", http.StatusBadRequest)
	// ErrAccountNotFound indicates the session account has no usage record.
	ErrAccountNotFound = apperrors.NewKind(apperrors.KindNotFound, "ACCOUNT_NOT_FOUND", "Account not found", http.StatusNotFound)
)

// storeError maps adapter errors onto service errors. ErrNotFound maps to
// notFound when supplied.
func storeError(err error, notFound *apperrors.AppError) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, store.ErrNotFound) {
		return notFound.WithInternal(err)
	}
	if errors.Is(err, store.ErrInvalidRecord) {
		return apperrors.ErrValidation.WithInternal(err)
	}
	return ErrStoreFailure.WithInternal(err)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
