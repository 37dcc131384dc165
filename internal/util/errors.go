package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrEmailRegistered    = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidTier        = errors.New("invalid subscription tier")

	ErrCourseNotFound  = errors.New("course not found")
	ErrModuleNotFound  = errors.New("module not found")
	ErrStepNotFound    = errors.New("step not found")
	ErrStepNotInCourse = errors.New("step does not belong to course")
	ErrInvalidStep     = errors.New("invalid step type")
	ErrPremiumRequired = errors.New("premium subscription required")

	ErrSubmissionNotFound = errors.New("submission not found")
	ErrEmptySubmission    = errors.New("submission requires content or a file")
	ErrInvalidTransition  = errors.New("submission already reviewed")
	ErrInvalidGrade       = errors.New("grade must be between 0 and 100")
	ErrInvalidFile        = errors.New("invalid file")

	ErrPinAlreadySet = errors.New("admin pin already set")
	ErrPinNotSet     = errors.New("admin pin not set")
	ErrPinMismatch   = errors.New("pins do not match")
	ErrPinTooShort   = errors.New("pin too short")
	ErrPinNotDigits  = errors.New("pin must contain digits only")
	ErrIncorrectPin  = errors.New("incorrect pin")

	ErrQueueFull   = errors.New("completion queue full")
	ErrQueueClosed = errors.New("completion queue closed")
)

// NotAuthenticatedError 没有可解析的用户或 profile
type NotAuthenticatedError struct {
	Reason string
	Err    error
}

func (e *NotAuthenticatedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("not authenticated: %s: %v", e.Reason, e.Err)
	}
	return "not authenticated: " + e.Reason
}

func (e *NotAuthenticatedError) Unwrap() error { return e.Err }

// StoreError 存储不可用或写入被拒绝，同一请求内不重试
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// CompletionUpdateError 课程完成率重算失败，只记录不向上传播
type CompletionUpdateError struct {
	CourseID string
	Err      error
}

func (e *CompletionUpdateError) Error() string {
	return fmt.Sprintf("course %s completion update: %v", e.CourseID, e.Err)
}

func (e *CompletionUpdateError) Unwrap() error { return e.Err }

// MappingError 联表查询结果缺少必需字段
type MappingError struct {
	Entity string
	Field  string
	Key    string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s %s: missing joined field %s", e.Entity, e.Key, e.Field)
}

func IsNotAuthenticated(err error) bool {
	var target *NotAuthenticatedError
	return errors.As(err, &target)
}

func IsStoreError(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}
