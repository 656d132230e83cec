package response

import (
	"net/http"

	appErrors "github.com/charlesng35/teamseats/pkg/errors"
	"github.com/gin-gonic/gin"
)

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Meta carries list metadata.
type Meta struct {
	Total   int    `json:"total,omitempty"`
	Outcome string `json:"outcome,omitempty"`
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta writes a JSON success response including metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	ErrorWithData(c, err, nil, nil)
}

// ErrorWithData writes an error response that still carries a payload, used
// when a failed mutation returns the reconciled read model.
func ErrorWithData(c *gin.Context, err error, data interface{}, meta *Meta) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, Response{
		Success: false,
		Data:    data,
		Meta:    meta,
		Error: &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
			Kind:    string(appErr.Kind),
		},
	})
}

// Acknowledge writes the bare {"success":true} body used by the mail relay endpoint.
func Acknowledge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Failure writes the bare {"error": message} body with the given status.
func Failure(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}
