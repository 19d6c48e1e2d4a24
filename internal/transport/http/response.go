package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "medscan-server-go/internal/platform/errors"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func RespondSuccess(c *gin.Context, httpStatus int, data any, message string) {
	if message == "" {
		message = "ok"
	}

	c.JSON(httpStatus, APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

func RespondError(c *gin.Context, httpStatus int, message string, data any) {
	c.JSON(httpStatus, APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch platformerrors.KindOf(err) {
	case platformerrors.KindDecode:
		return http.StatusUnprocessableEntity
	case platformerrors.KindNotFound:
		return http.StatusNotFound
	case platformerrors.KindTransport:
		return http.StatusBadRequest
	case platformerrors.KindStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the user-facing part of err.
func MessageOf(err error) string {
	var pe *platformerrors.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

// RespondErr writes err with the status of its kind. Server-side failures are
// recorded on the context for the logging middleware.
func RespondErr(c *gin.Context, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, status, MessageOf(err), nil)
}
