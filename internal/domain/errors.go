package domain

import (
	"errors"
	"fmt"
)

// RefreshErrorCode classifies a failed refresh.
type RefreshErrorCode int

const (
	RefreshErrorNone RefreshErrorCode = iota
	RefreshErrorOfflineClient
	RefreshErrorInvalidCredentials
	RefreshErrorUnexpectedHTTPResponse
	RefreshErrorHTTPTimeout
	RefreshErrorHTTPTransportFailure
	RefreshErrorInvalidResponseContent
	RefreshErrorNotModifiedWithEmptyCache
	RefreshErrorUnexpected
)

var refreshErrorNames = [...]string{
	"none",
	"offline_client",
	"invalid_credentials",
	"unexpected_http_response",
	"http_timeout",
	"http_transport_failure",
	"invalid_response_content",
	"not_modified_with_empty_cache",
	"unexpected_error",
}

func (c RefreshErrorCode) String() string {
	if int(c) >= 0 && int(c) < len(refreshErrorNames) {
		return refreshErrorNames[c]
	}
	return fmt.Sprintf("refresh_error(%d)", int(c))
}

// EvaluationErrorCode classifies a failed evaluation.
type EvaluationErrorCode int

const (
	EvaluationErrorNone EvaluationErrorCode = iota
	EvaluationErrorConfigNotAvailable
	EvaluationErrorSettingKeyMissing
	EvaluationErrorInvalidConfigModel
	EvaluationErrorTypeMismatch
	EvaluationErrorUnexpected
)

var evaluationErrorNames = [...]string{
	"none",
	"config_not_available",
	"setting_key_missing",
	"invalid_config_model",
	"setting_value_type_mismatch",
	"unexpected_error",
}

func (c EvaluationErrorCode) String() string {
	if int(c) >= 0 && int(c) < len(evaluationErrorNames) {
		return evaluationErrorNames[c]
	}
	return fmt.Sprintf("evaluation_error(%d)", int(c))
}

// -----------------------------
// EvaluationError
// -----------------------------

type EvaluationError struct {
	Code    EvaluationErrorCode
	FlagKey string
	Message string
	Err     error
}

func NewEvaluationError(code EvaluationErrorCode, flagKey, message string, err error) *EvaluationError {
	return &EvaluationError{
		Code:    code,
		FlagKey: flagKey,
		Message: message,
		Err:     err,
	}
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluation of '%s' failed (%s): %s: %v", e.FlagKey, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("evaluation of '%s' failed (%s): %s", e.FlagKey, e.Code, e.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

func IsEvaluationError(err error) bool {
	var target *EvaluationError
	return errors.As(err, &target)
}

// EvaluationErrorCodeOf extracts the code carried by err, or
// EvaluationErrorUnexpected for foreign errors.
func EvaluationErrorCodeOf(err error) EvaluationErrorCode {
	if err == nil {
		return EvaluationErrorNone
	}
	var target *EvaluationError
	if errors.As(err, &target) {
		return target.Code
	}
	return EvaluationErrorUnexpected
}

// -----------------------------
// RefreshError
// -----------------------------

type RefreshError struct {
	Code    RefreshErrorCode
	Message string
	Err     error
}

func NewRefreshError(code RefreshErrorCode, message string, err error) *RefreshError {
	return &RefreshError{Code: code, Message: message, Err: err}
}

func (e *RefreshError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("refresh failed (%s): %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("refresh failed (%s): %s", e.Code, e.Message)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

func IsRefreshError(err error) bool {
	var target *RefreshError
	return errors.As(err, &target)
}

// -----------------------------
// ValidationError
// -----------------------------

type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func NewValidationErrorWithCause(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
