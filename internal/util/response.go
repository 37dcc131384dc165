package util

import (
	"coursehub_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// HandleServiceError 将业务错误映射为 HTTP 响应
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case IsNotAuthenticated(err):
		Unauthorized(c)
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrPremiumRequired):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrProfileNotFound),
		errors.Is(err, ErrCourseNotFound), errors.Is(err, ErrModuleNotFound),
		errors.Is(err, ErrStepNotFound), errors.Is(err, ErrSubmissionNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrEmailRegistered), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrPinAlreadySet):
		Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrIncorrectPin):
		Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidRole), errors.Is(err, ErrInvalidTier), errors.Is(err, ErrInvalidStep),
		errors.Is(err, ErrEmptySubmission), errors.Is(err, ErrInvalidGrade),
		errors.Is(err, ErrInvalidFile),
		errors.Is(err, ErrPinNotSet), errors.Is(err, ErrPinMismatch),
		errors.Is(err, ErrPinTooShort), errors.Is(err, ErrPinNotDigits):
		BadRequest(c, err.Error())
	default:
		LogInternalError(c, err)
	}
}
