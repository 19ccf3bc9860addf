package evaluator

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// Bucket maps key and attribute value to a stable bucket in [0, 100).
func Bucket(key, attributeValue string) int {
	sum := sha1.Sum([]byte(key + attributeValue))
	prefix := hex.EncodeToString(sum[:])[:7]
	n, _ := strconv.ParseInt(prefix, 16, 64)
	return int(n % 100)
}

// evaluatePercentageOptions picks an option by walking cumulative
// percentages. The bool result is false when the options had to be skipped.
func (e *Evaluator) evaluatePercentageOptions(ctx *evalContext, options []*domain.PercentageOption, rule *domain.TargetingRule) (Result, bool, error) {
	if ctx.user == nil {
		_ = e.userMissing(ctx)
		ctx.log.newLine("Skipping %% options because the User Object is missing.")
		return Result{}, false, nil
	}

	attr := ctx.setting.PercentageAttribute
	var attrValue any
	if attr == "" {
		attr = domain.AttributeIdentifier
		attrValue = ctx.user.Identifier
	} else {
		v, ok := ctx.user.Attribute(attr)
		if !ok {
			e.warnOnce(ctx, "missing:"+attr, logging.EventUserAttributeMissing,
				fmt.Sprintf("cannot evaluate %% options for setting '%s' (the User.%s attribute is missing)", ctx.key, attr))
			ctx.log.newLine("Skipping %% options because the User.%s attribute is missing.", attr)
			return Result{}, false, nil
		}
		attrValue = v
	}

	bucket := Bucket(ctx.key, attributeString(attrValue))
	ctx.log.newLine("Evaluating %% options based on the User.%s attribute:", attr)
	ctx.log.newLine("- Computing hash in the [0..99] range from User.%s => %d", attr, bucket)

	cumulative := 0
	for i, opt := range options {
		cumulative += opt.Percentage
		if bucket >= cumulative {
			continue
		}
		value, err := opt.Value.ValueOf(ctx.setting.Type)
		if err != nil {
			return Result{}, false, invalidModel(ctx.key, "percentage option value is missing or invalid", err)
		}
		ctx.log.newLine("- Hash value %d selects %% option %d (%d%%), %s.", bucket, i+1, opt.Percentage, domain.FormatValue(value))
		return Result{
			Value:                   value,
			VariationID:             opt.VariationID,
			MatchedTargetingRule:    rule,
			MatchedPercentageOption: opt,
		}, true, nil
	}

	return Result{}, false, invalidModel(ctx.key, "sum of percentage option percentages is less than 100", nil)
}
