package domain

import "time"

// EvaluationDetails describes the outcome of a single evaluation.
type EvaluationDetails struct {
	Key            string
	Value          any
	VariationID    string
	FetchTime      time.Time
	User           *User
	IsDefaultValue bool

	ErrorCode    EvaluationErrorCode
	ErrorMessage string
	Err          error

	MatchedTargetingRule    *TargetingRule
	MatchedPercentageOption *PercentageOption
}

// CacheState describes how fresh the data is when a client becomes ready.
type CacheState int

const (
	NoFlagData CacheState = iota
	HasCachedFlagDataOnly
	HasUpToDateFlagData
)

func (s CacheState) String() string {
	switch s {
	case HasCachedFlagDataOnly:
		return "has_cached_flag_data_only"
	case HasUpToDateFlagData:
		return "has_up_to_date_flag_data"
	default:
		return "no_flag_data"
	}
}
