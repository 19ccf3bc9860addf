package evaluator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// Details evaluates key and never fails: on any error defaultValue is
// returned together with the error code and message. A non-nil
// defaultValue must have the Go type of the setting.
func (e *Evaluator) Details(cfg *domain.Config, key string, defaultValue any, user *domain.User, fetchTime time.Time) (details domain.EvaluationDetails) {
	details = domain.EvaluationDetails{
		Key:            key,
		Value:          defaultValue,
		User:           user,
		FetchTime:      fetchTime,
		IsDefaultValue: true,
	}

	defer func() {
		if r := recover(); r != nil {
			err := domain.NewEvaluationError(domain.EvaluationErrorUnexpected, key, "unexpected error", fmt.Errorf("%v", r))
			e.fail(&details, err, defaultValue)
		}
	}()

	if cfg == nil {
		e.fail(&details, domain.NewEvaluationError(domain.EvaluationErrorConfigNotAvailable, key,
			"config JSON is not present", nil), defaultValue)
		return details
	}

	setting, ok := cfg.Settings[key]
	if !ok || setting == nil {
		e.fail(&details, domain.NewEvaluationError(domain.EvaluationErrorSettingKeyMissing, key,
			fmt.Sprintf("the key was not found in config JSON; available keys: [%s]", quoteKeys(cfg.Keys())), nil), defaultValue)
		return details
	}

	if defaultValue != nil {
		if t, ok := domain.SettingTypeOf(defaultValue); !ok || t != setting.Type {
			e.fail(&details, domain.NewEvaluationError(domain.EvaluationErrorTypeMismatch, key,
				fmt.Sprintf("the type of a setting must match the type of the default value; setting's type was %s but the default value's type was %T",
					setting.Type, defaultValue), nil), defaultValue)
			return details
		}
	}

	res, err := e.Evaluate(cfg, key, user)
	if err != nil {
		e.fail(&details, err, defaultValue)
		return details
	}

	details.Value = res.Value
	details.VariationID = res.VariationID
	details.MatchedTargetingRule = res.MatchedTargetingRule
	details.MatchedPercentageOption = res.MatchedPercentageOption
	details.IsDefaultValue = false
	return details
}

// All evaluates every setting in key order. One failing key does not stop
// the others; their errors are joined.
func (e *Evaluator) All(cfg *domain.Config, user *domain.User, fetchTime time.Time) ([]domain.EvaluationDetails, error) {
	if cfg == nil {
		err := domain.NewEvaluationError(domain.EvaluationErrorConfigNotAvailable, "", "config JSON is not present", nil)
		e.logger.Error("config JSON is not present, returning empty result", logging.Event(logging.EventConfigJSONNotAvailable))
		return nil, err
	}

	keys := cfg.Keys()
	out := make([]domain.EvaluationDetails, 0, len(keys))
	var errs []error
	for _, key := range keys {
		d := e.Details(cfg, key, nil, user, fetchTime)
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
		out = append(out, d)
	}
	return out, errors.Join(errs...)
}

func (e *Evaluator) fail(details *domain.EvaluationDetails, err error, defaultValue any) {
	code := domain.EvaluationErrorCodeOf(err)
	details.Value = defaultValue
	details.IsDefaultValue = true
	details.VariationID = ""
	details.MatchedTargetingRule = nil
	details.MatchedPercentageOption = nil
	details.ErrorCode = code
	details.ErrorMessage = err.Error()
	details.Err = err

	event := logging.EventSettingEvaluationFailed
	switch code {
	case domain.EvaluationErrorConfigNotAvailable:
		event = logging.EventConfigJSONNotAvailable
	case domain.EvaluationErrorSettingKeyMissing:
		event = logging.EventSettingKeyMissing
	}
	e.logger.Error(fmt.Sprintf("failed to evaluate setting '%s', returning default value %s", details.Key, domain.FormatValue(defaultValue)),
		logging.Event(event), "key", details.Key, "error_code", code.String(), "error", err)
}

func quoteKeys(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = "'" + k + "'"
	}
	return strings.Join(quoted, ", ")
}
