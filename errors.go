package pennant

import (
	"errors"
	"fmt"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/poller"
)

// Error types that may be returned by pennant operations.

// EvaluationError is carried in EvaluationDetails.Err when an evaluation
// falls back to the default value.
type EvaluationError = domain.EvaluationError

// RefreshError is returned by Refresh.
type RefreshError = domain.RefreshError

type (
	EvaluationErrorCode = domain.EvaluationErrorCode
	RefreshErrorCode    = domain.RefreshErrorCode
)

const (
	EvaluationErrorNone               = domain.EvaluationErrorNone
	EvaluationErrorConfigNotAvailable = domain.EvaluationErrorConfigNotAvailable
	EvaluationErrorSettingKeyMissing  = domain.EvaluationErrorSettingKeyMissing
	EvaluationErrorInvalidConfigModel = domain.EvaluationErrorInvalidConfigModel
	EvaluationErrorTypeMismatch       = domain.EvaluationErrorTypeMismatch
	EvaluationErrorUnexpected         = domain.EvaluationErrorUnexpected
)

const (
	RefreshErrorNone                      = domain.RefreshErrorNone
	RefreshErrorOfflineClient             = domain.RefreshErrorOfflineClient
	RefreshErrorInvalidCredentials        = domain.RefreshErrorInvalidCredentials
	RefreshErrorUnexpectedHTTPResponse    = domain.RefreshErrorUnexpectedHTTPResponse
	RefreshErrorHTTPTimeout               = domain.RefreshErrorHTTPTimeout
	RefreshErrorHTTPTransportFailure      = domain.RefreshErrorHTTPTransportFailure
	RefreshErrorInvalidResponseContent    = domain.RefreshErrorInvalidResponseContent
	RefreshErrorNotModifiedWithEmptyCache = domain.RefreshErrorNotModifiedWithEmptyCache
	RefreshErrorUnexpected                = domain.RefreshErrorUnexpected
)

// ConfigError indicates an invalid client option.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error [%s]: %s", e.Field, e.Message)
}

// RefreshErrorCodeOf returns the code of a Refresh error, or
// RefreshErrorNone when err is not a refresh error.
func RefreshErrorCodeOf(err error) RefreshErrorCode {
	var re *RefreshError
	if errors.As(err, &re) {
		return re.Code
	}
	return RefreshErrorNone
}

// IsCancelled reports whether a Refresh error comes from a cancelled
// context or a closed client rather than from the CDN.
func IsCancelled(err error) bool {
	return poller.IsCancelled(err)
}
