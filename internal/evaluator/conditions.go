package evaluator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// evaluateUserCondition checks one user condition. contextSalt is the
// setting key, or the segment name for conditions inside a segment.
func (e *Evaluator) evaluateUserCondition(ctx *evalContext, c *domain.UserCondition, contextSalt string) (bool, error) {
	if ctx.user == nil {
		return false, e.userMissing(ctx)
	}

	value, ok := ctx.user.Attribute(c.Attribute)
	if s, isString := value.(string); !ok || (isString && s == "") {
		e.warnOnce(ctx, "missing:"+c.Attribute, logging.EventUserAttributeMissing,
			fmt.Sprintf("cannot evaluate condition (User.%s %s ...) for setting '%s' (the User.%s attribute is missing)",
				c.Attribute, c.Comparator, ctx.key, c.Attribute))
		return false, &cannotEvaluateError{reason: fmt.Sprintf("the User.%s attribute is missing", c.Attribute)}
	}

	matched, err := e.compare(ctx, c, value, contextSalt)
	if err != nil {
		var invalid *invalidAttributeError
		if asInvalidAttribute(err, &invalid) {
			e.warnOnce(ctx, "invalid:"+c.Attribute, logging.EventUserAttributeInvalid,
				fmt.Sprintf("cannot evaluate condition (User.%s %s ...) for setting '%s' (%s)",
					c.Attribute, c.Comparator, ctx.key, invalid.reason))
			return false, &cannotEvaluateError{reason: invalid.reason}
		}
		return false, err
	}
	return matched, nil
}

func (e *Evaluator) evaluateSegmentCondition(ctx *evalContext, c *domain.SegmentCondition) (bool, error) {
	op := "IS IN SEGMENT"
	if c.Comparator == domain.SegmentIsNotIn {
		op = "IS NOT IN SEGMENT"
	}

	segment := ctx.config.Segment(c.Index)
	if segment == nil {
		placeholder := fmt.Sprintf("<invalid segment reference %d>", c.Index)
		ctx.log.append("User %s %s", op, placeholder)
		e.warnOnce(ctx, fmt.Sprintf("segment:%d", c.Index), logging.EventSegmentReferenceInvalid,
			fmt.Sprintf("cannot evaluate segment condition for setting '%s' (%s)", ctx.key, placeholder))
		return false, &cannotEvaluateError{reason: "segment reference " + placeholder + " does not exist"}
	}
	if c.Comparator != domain.SegmentIsIn && c.Comparator != domain.SegmentIsNotIn {
		return false, invalidModel(ctx.key, "segment comparison operator is invalid", nil)
	}
	ctx.log.append("User %s '%s'", op, segment.Name)

	if ctx.user == nil {
		return false, e.userMissing(ctx)
	}

	in := true
	for _, cond := range segment.Conditions {
		matched, err := e.evaluateUserCondition(ctx, cond, segment.Name)
		if err != nil {
			return false, err
		}
		if !matched {
			in = false
			break
		}
	}

	if c.Comparator == domain.SegmentIsNotIn {
		return !in, nil
	}
	return in, nil
}

// evaluatePrerequisiteCondition evaluates the referenced flag and compares
// its value. The visited stack detects dependency cycles: the current key is
// pushed before recursing and popped afterwards.
func (e *Evaluator) evaluatePrerequisiteCondition(ctx *evalContext, c *domain.PrerequisiteFlagCondition) (bool, error) {
	ctx.log.append("Flag '%s' %s", c.FlagKey, prerequisiteOp(c.Comparator))

	prereq, ok := ctx.config.Settings[c.FlagKey]
	if !ok || prereq == nil {
		return false, invalidModel(ctx.key, fmt.Sprintf("prerequisite flag '%s' is missing", c.FlagKey), nil)
	}
	if c.Comparator != domain.PrerequisiteEquals && c.Comparator != domain.PrerequisiteNotEquals {
		return false, invalidModel(ctx.key, "prerequisite comparison operator is invalid", nil)
	}
	expected, err := c.Value.ValueOf(prereq.Type)
	if err != nil {
		return false, invalidModel(ctx.key,
			fmt.Sprintf("type mismatch between comparison value and prerequisite flag '%s'", c.FlagKey), err)
	}
	ctx.log.append(" %s", domain.FormatValue(expected))

	*ctx.visited = append(*ctx.visited, ctx.key)
	defer func() { *ctx.visited = (*ctx.visited)[:len(*ctx.visited)-1] }()

	if slices.Contains(*ctx.visited, c.FlagKey) {
		path := append(slices.Clone(*ctx.visited), c.FlagKey)
		quoted := make([]string, len(path))
		for i, k := range path {
			quoted[i] = "'" + k + "'"
		}
		chain := strings.Join(quoted, " -> ")
		e.logger.Warn("circular dependency detected between the following depending flags: "+chain,
			logging.Event(logging.EventCircularDependency), "key", ctx.key, "path", chain)
		return false, &cannotEvaluateError{reason: "circular dependency detected: " + chain}
	}

	ctx.log.in()
	ctx.log.newLine("(")
	ctx.log.in()
	ctx.log.newLine("Evaluating prerequisite flag '%s':", c.FlagKey)
	res, err := e.evaluateSetting(ctx.child(c.FlagKey, prereq))
	if err == nil {
		ctx.log.newLine("Prerequisite flag evaluation result: %s.", domain.FormatValue(res.Value))
	}
	ctx.log.out()
	ctx.log.newLine(")")
	ctx.log.out()
	if err != nil {
		return false, err
	}

	equal := res.Value == expected
	if c.Comparator == domain.PrerequisiteNotEquals {
		return !equal, nil
	}
	return equal, nil
}

func prerequisiteOp(c domain.PrerequisiteComparator) string {
	if c == domain.PrerequisiteNotEquals {
		return "NOT EQUALS"
	}
	return "EQUALS"
}
