package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutor-voice-server/internal/platform/errors"
)

// UnavailableMessage is shown for every dependency failure.
const UnavailableMessage = "voice service is temporarily unavailable, please try again"

// APIResponse 定义统一的接口返回结构体
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
}

// RespondSuccess 返回成功响应
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError 返回失败响应
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch errors.KindOf(err) {
	case errors.KindValidation:
		return http.StatusBadRequest
	case errors.KindDependency:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondErr writes err with the status from StatusFor. Validation errors
// keep their message; everything else gets a generic one so no upstream
// detail leaks to the client.
func RespondErr(c *gin.Context, status int, err error) {
	_ = c.Error(err)

	message := "internal server error"
	switch errors.KindOf(err) {
	case errors.KindValidation:
		message = errors.MessageOf(err)
	case errors.KindDependency:
		message = UnavailableMessage
	}

	data := gin.H{"kind": string(errors.KindOf(err))}
	if errors.Retryable(err) {
		data["retryable"] = true
	}
	RespondError(c, status, message, data)
}
