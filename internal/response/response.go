// Package response writes the JSON envelope every API route returns.
package response

import (
	"errors"
	"net/http"

	"fyp-portal/internal/apperr"
	"fyp-portal/internal/logutils"

	"github.com/gin-gonic/gin"
)

type Response[T any] struct {
	Code   ErrorCode         `json:"code"`
	Data   T                 `json:"data"`
	Msg    string            `json:"msg"`
	Fields map[string]string `json:"fields,omitempty"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response[any]{Code: OK, Data: data})
}

func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Response[any]{Code: OK, Data: data})
}

// HTTPError sends an error envelope with the given HTTP status.
func HTTPError(c *gin.Context, httpCode int, msg string, code ErrorCode) {
	c.AbortWithStatusJSON(httpCode, Response[any]{Code: code, Msg: msg})
}

// BadRequestError is for requests gin could not bind.
func BadRequestError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusBadRequest, msg, InvalidRequest)
}

// Error maps a service error onto its HTTP status. Internal failures are
// logged and reported without their cause.
func Error(c *gin.Context, err error) {
	httpCode, code := statusOf(apperr.CodeOf(err))
	body := Response[any]{Code: code, Msg: err.Error()}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Msg = appErr.Message
		body.Fields = appErr.Fields
	}
	if code == Internal {
		logutils.Log.WithFields(logutils.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Errorf("request failed: %v", err)
		if body.Msg == "" {
			body.Msg = "internal error"
		}
	}
	c.AbortWithStatusJSON(httpCode, body)
}

func statusOf(code apperr.Code) (int, ErrorCode) {
	switch code {
	case apperr.CodeValidation:
		return http.StatusBadRequest, InvalidRequest
	case apperr.CodeForbidden:
		return http.StatusForbidden, Forbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound, NotFound
	case apperr.CodeConflict:
		return http.StatusConflict, Conflict
	case apperr.CodeCapacity:
		return http.StatusConflict, CapacityFull
	case apperr.CodeAlreadyMember:
		return http.StatusConflict, AlreadyMember
	default:
		return http.StatusInternalServerError, Internal
	}
}
