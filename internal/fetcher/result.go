package fetcher

import (
	"context"
	"errors"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

// Status is the outcome of a fetch.
type Status int

const (
	Fetched Status = iota
	NotModified
	Failed
)

func (s Status) String() string {
	switch s {
	case Fetched:
		return "fetched"
	case NotModified:
		return "not_modified"
	default:
		return "failed"
	}
}

// Result carries the snapshot to cache and, for failures, the reason.
// Config is never nil. For failures it is the previous snapshot, possibly
// with a bumped fetch time.
type Result struct {
	Status    Status
	Config    *domain.ProjectConfig
	ErrorCode domain.RefreshErrorCode
	Message   string
	Err       error
}

func failed(last *domain.ProjectConfig, code domain.RefreshErrorCode, message string, cause error) Result {
	return Result{
		Status:    Failed,
		Config:    last,
		ErrorCode: code,
		Message:   message,
		Err:       domain.NewRefreshError(code, message, cause),
	}
}

// Canceled reports whether the fetch was aborted by context cancellation.
func (r Result) Canceled() bool {
	return r.Status == Failed && errors.Is(r.Err, context.Canceled)
}

// Label is the metrics label of the outcome.
func (r Result) Label() string {
	if r.Status == Failed {
		if r.Canceled() {
			return "canceled"
		}
		return r.ErrorCode.String()
	}
	return r.Status.String()
}
