// Package evaluator resolves setting values from a parsed configuration and
// a user: targeting rules, segments, prerequisite flags and percentage
// rollouts.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// Result is the outcome of a successful evaluation.
type Result struct {
	Value                   any
	VariationID             string
	MatchedTargetingRule    *domain.TargetingRule
	MatchedPercentageOption *domain.PercentageOption
}

// Evaluator is stateless apart from its logger and safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
}

// New creates an Evaluator. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Evaluator {
	return &Evaluator{logger: logging.OrDefault(logger)}
}

// evalContext is the per-evaluation state. Nested prerequisite evaluations
// get their own key and setting but share the visited stack, the warning
// set and the trace builder of the top-level call.
type evalContext struct {
	key     string
	setting *domain.Setting
	user    *domain.User
	config  *domain.Config

	visited *[]string
	warned  map[string]struct{}
	log     *logBuilder
}

func (c *evalContext) child(key string, setting *domain.Setting) *evalContext {
	return &evalContext{
		key:     key,
		setting: setting,
		user:    c.user,
		config:  c.config,
		visited: c.visited,
		warned:  c.warned,
		log:     c.log,
	}
}

// cannotEvaluateError marks a condition that could not be evaluated. The
// enclosing targeting rule is skipped and evaluation goes on.
type cannotEvaluateError struct {
	reason string
}

func (e *cannotEvaluateError) Error() string { return e.reason }

func isCannotEvaluate(err error) bool {
	var target *cannotEvaluateError
	return errors.As(err, &target)
}

// Evaluate resolves key for user. Failures are returned as
// *domain.EvaluationError.
func (e *Evaluator) Evaluate(cfg *domain.Config, key string, user *domain.User) (Result, error) {
	if cfg == nil {
		return Result{}, domain.NewEvaluationError(domain.EvaluationErrorConfigNotAvailable, key,
			"config JSON is not present", nil)
	}
	setting, ok := cfg.Settings[key]
	if !ok || setting == nil {
		return Result{}, domain.NewEvaluationError(domain.EvaluationErrorSettingKeyMissing, key,
			"the key was not found in config JSON", nil)
	}

	visited := make([]string, 0, 4)
	ctx := &evalContext{
		key:     key,
		setting: setting,
		user:    user,
		config:  cfg,
		visited: &visited,
		warned:  map[string]struct{}{},
	}
	if e.logger.Enabled(context.Background(), slog.LevelInfo) {
		ctx.log = &logBuilder{}
	}

	ctx.log.append("Evaluating '%s'", key)
	if user != nil {
		ctx.log.append(" for User '%s'", user)
	}
	ctx.log.in()

	res, err := e.evaluateSetting(ctx)

	if ctx.log != nil {
		if err == nil {
			ctx.log.newLine("Returning %s.", domain.FormatValue(res.Value))
		} else {
			ctx.log.newLine("Evaluation failed: %v", err)
		}
		e.logger.Info(ctx.log.String(), logging.Event(logging.EventEvaluationTrace))
	}
	return res, err
}

func (e *Evaluator) evaluateSetting(ctx *evalContext) (Result, error) {
	setting := ctx.setting

	if len(setting.TargetingRules) > 0 {
		res, matched, err := e.evaluateTargetingRules(ctx)
		if err != nil || matched {
			return res, err
		}
	}

	if len(setting.PercentageOptions) > 0 {
		res, matched, err := e.evaluatePercentageOptions(ctx, setting.PercentageOptions, nil)
		if err != nil || matched {
			return res, err
		}
	}

	value, err := setting.Value.ValueOf(setting.Type)
	if err != nil {
		return Result{}, invalidModel(ctx.key, "setting value is missing or invalid", err)
	}
	return Result{Value: value, VariationID: setting.VariationID}, nil
}

func (e *Evaluator) evaluateTargetingRules(ctx *evalContext) (Result, bool, error) {
	ctx.log.newLine("Evaluating targeting rules and applying the first match if any:")

	for _, rule := range ctx.setting.TargetingRules {
		matched, err := e.evaluateConditions(ctx, rule.Conditions)
		if err != nil {
			if !isCannotEvaluate(err) {
				return Result{}, false, err
			}
			ctx.log.in()
			ctx.log.newLine("The current targeting rule is ignored and the evaluation continues with the next rule.")
			ctx.log.out()
			continue
		}
		if !matched {
			continue
		}

		switch {
		case rule.Served != nil && len(rule.PercentageOptions) == 0:
			value, err := rule.Served.Value.ValueOf(ctx.setting.Type)
			if err != nil {
				return Result{}, false, invalidModel(ctx.key, "targeting rule value is missing or invalid", err)
			}
			ctx.log.append(" THEN %s => MATCH, applying rule", domain.FormatValue(value))
			return Result{
				Value:                value,
				VariationID:          rule.Served.VariationID,
				MatchedTargetingRule: rule,
			}, true, nil

		case rule.Served == nil && len(rule.PercentageOptions) > 0:
			ctx.log.append(" THEN %% options => MATCH, applying rule")
			ctx.log.in()
			res, ok, err := e.evaluatePercentageOptions(ctx, rule.PercentageOptions, rule)
			if err != nil {
				ctx.log.out()
				return Result{}, false, err
			}
			if ok {
				ctx.log.out()
				return res, true, nil
			}
			ctx.log.newLine("The current targeting rule is ignored and the evaluation continues with the next rule.")
			ctx.log.out()

		default:
			return Result{}, false, invalidModel(ctx.key, "targeting rule THEN part is missing or invalid", nil)
		}
	}
	return Result{}, false, nil
}

// evaluateConditions AND-s conditions, stopping at the first non-match.
func (e *Evaluator) evaluateConditions(ctx *evalContext, conditions []*domain.Condition) (bool, error) {
	ctx.log.newLine("- ")
	for i, cond := range conditions {
		if i == 0 {
			ctx.log.append("IF ")
		} else {
			ctx.log.in()
			ctx.log.newLine("AND ")
			ctx.log.out()
		}

		var (
			matched bool
			err     error
		)
		switch {
		case cond.User != nil && cond.Segment == nil && cond.Prerequisite == nil:
			ctx.log.appendUserCondition(cond.User)
			matched, err = e.evaluateUserCondition(ctx, cond.User, ctx.key)
		case cond.Segment != nil && cond.User == nil && cond.Prerequisite == nil:
			matched, err = e.evaluateSegmentCondition(ctx, cond.Segment)
		case cond.Prerequisite != nil && cond.User == nil && cond.Segment == nil:
			matched, err = e.evaluatePrerequisiteCondition(ctx, cond.Prerequisite)
		default:
			return false, invalidModel(ctx.key, "condition is missing or invalid", nil)
		}

		if err != nil {
			ctx.log.append(" => cannot evaluate, %v", err)
			return false, err
		}
		if !matched {
			ctx.log.append(" => no match")
			return false, nil
		}
	}
	if len(conditions) == 0 {
		ctx.log.append("<no conditions>")
	}
	return true, nil
}

// warnOnce logs msg at warn level unless the same id was already logged
// during this top-level evaluation.
func (e *Evaluator) warnOnce(ctx *evalContext, id string, event int, msg string, args ...any) {
	if _, seen := ctx.warned[id]; seen {
		return
	}
	ctx.warned[id] = struct{}{}
	e.logger.Warn(msg, append([]any{logging.Event(event), "key", ctx.key}, args...)...)
}

func (e *Evaluator) userMissing(ctx *evalContext) error {
	e.warnOnce(ctx, "user", logging.EventUserMissing,
		fmt.Sprintf("cannot evaluate targeting rules and %% options for setting '%s' (User Object is missing)", ctx.key))
	return &cannotEvaluateError{reason: "User Object is missing"}
}

func invalidModel(key, msg string, err error) error {
	return domain.NewEvaluationError(domain.EvaluationErrorInvalidConfigModel, key, msg, err)
}
