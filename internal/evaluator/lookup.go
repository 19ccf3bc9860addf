package evaluator

import (
	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// KeyAndValue finds the setting that can serve variationID and returns its
// key and value. Settings are searched in key order; within a setting the
// order is targeting rule values, targeting rule percentage options, setting
// percentage options and finally the base value.
func (e *Evaluator) KeyAndValue(cfg *domain.Config, variationID string) (string, any, bool) {
	if cfg == nil {
		e.logger.Error("config JSON is not present, cannot look up variation", logging.Event(logging.EventConfigJSONNotAvailable))
		return "", nil, false
	}

	for _, key := range cfg.Keys() {
		setting := cfg.Settings[key]
		if setting == nil {
			continue
		}
		if value, ok := lookupVariation(setting, variationID); ok {
			return key, value, true
		}
	}

	e.logger.Error("could not find the setting for the specified variation ID: '"+variationID+"'",
		logging.Event(logging.EventVariationNotFound), "variation_id", variationID)
	return "", nil, false
}

func lookupVariation(s *domain.Setting, id string) (any, bool) {
	match := func(v domain.SettingValue, vid string) (any, bool) {
		if vid != id {
			return nil, false
		}
		value, err := v.ValueOf(s.Type)
		return value, err == nil
	}

	for _, rule := range s.TargetingRules {
		if rule.Served != nil {
			if value, ok := match(rule.Served.Value, rule.Served.VariationID); ok {
				return value, true
			}
		}
	}
	for _, rule := range s.TargetingRules {
		for _, opt := range rule.PercentageOptions {
			if value, ok := match(opt.Value, opt.VariationID); ok {
				return value, true
			}
		}
	}
	for _, opt := range s.PercentageOptions {
		if value, ok := match(opt.Value, opt.VariationID); ok {
			return value, true
		}
	}
	return match(s.Value, s.VariationID)
}
