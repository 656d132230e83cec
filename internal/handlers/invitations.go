package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/teamseats/internal/services"
	apperrors "github.com/charlesng35/teamseats/pkg/errors"
	"github.com/charlesng35/teamseats/pkg/logger"
	"github.com/charlesng35/teamseats/pkg/response"
)

// InvitationHandler exposes the invitation lifecycle over HTTP.
type InvitationHandler struct {
	svc       *services.InvitationService
	dashboard *services.DashboardService
	appURL    string
}

type createInvitationRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,max=120"`
	Role  string `json:"role" validate:"required"`
}

type renameInvitationRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type sendInvitationRequest struct {
	To          string `json:"to"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	Token       string `json:"token"`
	TeamOwnerID string `json:"teamOwnerId"`
}

// NewInvitationHandler constructs an InvitationHandler. appURL is the public
// base URL the resolution endpoint redirects to.
func NewInvitationHandler(svc *services.InvitationService, dashboard *services.DashboardService, appURL string) (*InvitationHandler, error) {
	if svc == nil {
		return nil, errors.New("invitation handler: service is required")
	}
	if dashboard == nil {
		return nil, errors.New("invitation handler: dashboard service is required")
	}
	return &InvitationHandler{
		svc:       svc,
		dashboard: dashboard,
		appURL:    strings.TrimRight(strings.TrimSpace(appURL), "/"),
	}, nil
}

// GET /api/invitation/:action?token=
func (h *InvitationHandler) Resolve(c *gin.Context) {
	decision, err := services.ParseDecision(c.Param("action"))
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, h.appURL+"/")
		return
	}

	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		h.redirectOutcome(c, decision, "Token is required")
		return
	}

	_, err = h.svc.Resolve(requestContext(c), token, decision)
	if err != nil {
		logger.WithModule("invitations").Info("invitation resolution rejected",
			zap.String("action", string(decision)),
			zap.Error(err),
		)
		h.redirectOutcome(c, decision, resolutionMessage(decision, err))
		return
	}
	h.redirectOutcome(c, decision, "")
}

func (h *InvitationHandler) redirectOutcome(c *gin.Context, decision services.Decision, failure string) {
	query := url.Values{}
	query.Set("action", string(decision))
	if failure != "" {
		query.Set("error", failure)
	} else {
		query.Set("success", "true")
	}
	c.Redirect(http.StatusTemporaryRedirect, h.appURL+"/invitation/thank-you?"+query.Encode())
}

func resolutionMessage(decision services.Decision, err error) string {
	switch {
	case errors.Is(err, services.ErrResolveFailed):
		return "Failed to " + string(decision) + " invitation"
	case errors.Is(err, services.ErrStoreFailure):
		return "Internal server error"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Kind != apperrors.KindInternal {
		return appErr.Message
	}
	return "Internal server error"
}

var thankYouPage = template.Must(template.New("thank-you").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; background: #f9fafb; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
.card { background: #fff; border-radius: 8px; padding: 32px; max-width: 420px; text-align: center; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.error { color: #dc2626; } .success { color: #16a34a; } .neutral { color: #4b5563; }
</style>
</head>
<body>
<div class="card">
<h1 class="{{.Tone}}">{{.Title}}</h1>
<p>{{.Body}}</p>
{{if .Hint}}<p><small>{{.Hint}}</small></p>{{end}}
</div>
</body>
</html>
`))

type thankYouView struct {
	Title string
	Body  string
	Hint  string
	Tone  string
}

// GET /invitation/thank-you?action=&success=|error=
func (h *InvitationHandler) ThankYou(c *gin.Context) {
	decision, err := services.ParseDecision(c.Query("action"))
	if err != nil {
		c.Redirect(http.StatusTemporaryRedirect, h.appURL+"/")
		return
	}

	view := thankYouView{
		Title: "Processing Invitation",
		Body:  "Please wait while we process your request...",
		Tone:  "neutral",
	}
	switch failure := strings.TrimSpace(c.Query("error")); {
	case failure != "":
		view = thankYouView{
			Title: "Error Processing Invitation",
			Body:  failure,
			Hint:  "Please contact the team owner for assistance.",
			Tone:  "error",
		}
	case c.Query("success") == "true" && decision == services.DecisionAccept:
		view = thankYouView{
			Title: "Thank You for Accepting!",
			Body:  "You have successfully accepted the team invitation.",
			Tone:  "success",
		}
	case c.Query("success") == "true":
		view = thankYouView{
			Title: "Invitation Declined",
			Body:  "You have declined the team invitation. If you change your mind, you can request a new invitation from the team owner.",
			Tone:  "neutral",
		}
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := thankYouPage.Execute(c.Writer, view); err != nil {
		logger.WithModule("invitations").Error("render thank-you page", zap.Error(err))
	}
}

// POST /api/send-invitation
func (h *InvitationHandler) SendEmail(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var body sendInvitationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Failure(c, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	err := h.svc.SendInvitationEmail(requestContext(c), session, services.SendInvitationEmailInput{
		To:          body.To,
		Name:        body.Name,
		Role:        body.Role,
		Token:       body.Token,
		TeamOwnerID: body.TeamOwnerID,
	})
	if err != nil {
		if errors.Is(err, services.ErrDispatchFailed) || apperrors.KindOf(err) == apperrors.KindDependency || apperrors.KindOf(err) == apperrors.KindInternal {
			logger.WithModule("invitations").Error("send invitation email failed", zap.Error(err))
			response.Failure(c, http.StatusInternalServerError, "Failed to send email")
			return
		}
		appErr := apperrors.FromError(err)
		response.Failure(c, appErr.StatusCode, appErr.Message)
		return
	}
	response.Acknowledge(c)
}

// POST /api/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var body createInvitationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	invitation, err := h.svc.Create(requestContext(c), session, services.CreateInvitationInput{
		Email: body.Email,
		Name:  body.Name,
		Role:  body.Role,
	})
	if err != nil {
		if invitation != nil {
			// Stored but not delivered; the owner can resend.
			response.ErrorWithData(c, err, invitation, nil)
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, invitation)
}

// GET /api/invitations?status=
func (h *InvitationHandler) List(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	invitations, err := h.svc.List(requestContext(c), session, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, invitations, &response.Meta{Total: len(invitations)})
}

// GET /api/invitations/:id
func (h *InvitationHandler) Get(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	invitation, err := h.svc.Get(requestContext(c), session, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invitation)
}

// PATCH /api/invitations/:id
func (h *InvitationHandler) Rename(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	var body renameInvitationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.dashboard.Apply(requestContext(c), session, services.RenameInvite{ID: c.Param("id"), MemberName: body.Name})
	writeResult(c, result, err)
}

// POST /api/invitations/:id/resend
func (h *InvitationHandler) Resend(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	result, err := h.dashboard.Apply(requestContext(c), session, services.ResendInvite{ID: c.Param("id")})
	writeResult(c, result, err)
}

// DELETE /api/invitations/:id
func (h *InvitationHandler) Cancel(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}

	result, err := h.dashboard.Apply(requestContext(c), session, services.CancelInvite{ID: c.Param("id")})
	writeResult(c, result, err)
}
