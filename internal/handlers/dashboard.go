package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/teamseats/internal/models"
	"github.com/charlesng35/teamseats/internal/services"
	apperrors "github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/response"
)

// DashboardHandler serves the owner dashboard and its optimistic commands.
type DashboardHandler struct {
	svc *services.DashboardService
}

type usageRequest struct {
	Kind   string `json:"kind" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
}

type resetUsageRequest struct {
	Kind string `json:"kind" validate:"required"`
}

type selectPlanRequest struct {
	Plan string `json:"plan" validate:"required"`
}

type updateMemberRequest struct {
	Role       *string `json:"role" validate:"omitempty"`
	MemberName *string `json:"member_name" validate:"omitempty,max=120"`
}

func NewDashboardHandler(svc *services.DashboardService) (*DashboardHandler, error) {
	if svc == nil {
		return nil, errors.New("dashboard handler: service is required")
	}
	return &DashboardHandler{svc: svc}, nil
}

// GET /api/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	dashboard, err := h.svc.Load(requestContext(c), session)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dashboard)
}

// POST /api/dashboard/usage
func (h *DashboardHandler) SimulateUsage(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var body usageRequest
	if !bindAndValidate(c, &body) {
		return
	}
	kind, err := models.ParseUsageKind(body.Kind)
	if err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	result, err := h.svc.Apply(requestContext(c), session, services.SimulateUsage{Kind: kind, Amount: body.Amount})
	writeResult(c, result, err)
}

// POST /api/dashboard/usage/reset
func (h *DashboardHandler) ResetUsage(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var body resetUsageRequest
	if !bindAndValidate(c, &body) {
		return
	}
	kind, err := models.ParseUsageKind(body.Kind)
	if err != nil {
		response.Error(c, apperrors.NewValidation(err.Error()))
		return
	}

	result, err := h.svc.Apply(requestContext(c), session, services.ResetUsage{Kind: kind})
	writeResult(c, result, err)
}

// PUT /api/account/plan
func (h *DashboardHandler) SelectPlan(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var body selectPlanRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.svc.Apply(requestContext(c), session, services.SelectPlan{Plan: body.Plan})
	writeResult(c, result, err)
}

// PATCH /api/team/members/:id
func (h *DashboardHandler) UpdateMember(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var body updateMemberRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if body.Role == nil && body.MemberName == nil {
		response.Error(c, apperrors.NewValidation("role or member_name is required"))
		return
	}

	ctx := requestContext(c)
	id := c.Param("id")

	var (
		result *services.Result
		err    error
	)
	if body.Role != nil {
		result, err = h.svc.Apply(ctx, session, services.ChangeMemberRole{ID: id, Role: *body.Role})
		if err != nil {
			writeResult(c, result, err)
			return
		}
	}
	if body.MemberName != nil {
		result, err = h.svc.Apply(ctx, session, services.RenameMember{ID: id, MemberName: *body.MemberName})
	}
	writeResult(c, result, err)
}

// DELETE /api/team/members/:id
func (h *DashboardHandler) RemoveMember(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	result, err := h.svc.Apply(requestContext(c), session, services.RemoveMember{ID: c.Param("id")})
	writeResult(c, result, err)
}

// writeResult renders a dashboard command result. A reconciled result still
// carries the reloaded dashboard next to the error.
func writeResult(c *gin.Context, result *services.Result, err error) {
	if err != nil {
		if result == nil {
			response.Error(c, err)
			return
		}
		response.ErrorWithData(c, err, result.Dashboard, &response.Meta{Outcome: string(result.Outcome)})
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, result.Dashboard, &response.Meta{Outcome: string(result.Outcome)})
}
