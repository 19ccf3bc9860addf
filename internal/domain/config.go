package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tailscale/hujson"
)

// SettingType is the declared value type of a setting.
type SettingType int

const (
	SettingTypeBool   SettingType = 0
	SettingTypeString SettingType = 1
	SettingTypeInt    SettingType = 2
	SettingTypeDouble SettingType = 3
)

func (t SettingType) String() string {
	switch t {
	case SettingTypeBool:
		return "Boolean"
	case SettingTypeString:
		return "String"
	case SettingTypeInt:
		return "Int"
	case SettingTypeDouble:
		return "Double"
	default:
		return fmt.Sprintf("SettingType(%d)", int(t))
	}
}

// RedirectMode tells the fetcher how to react to a preferred base URL
// announced by the origin.
type RedirectMode int

const (
	RedirectNo     RedirectMode = 0
	RedirectShould RedirectMode = 1
	RedirectForce  RedirectMode = 2
)

// Config is the parsed configuration document.
type Config struct {
	Preferences *Preferences        `json:"p,omitempty"`
	Segments    []*Segment          `json:"s,omitempty"`
	Settings    map[string]*Setting `json:"f,omitempty"`
}

// Preferences carries origin-level settings.
type Preferences struct {
	BaseURL      string       `json:"u,omitempty"`
	RedirectMode RedirectMode `json:"r"`
	Salt         string       `json:"s,omitempty"`
}

// Setting is a single flag or configuration value.
type Setting struct {
	Type                SettingType         `json:"t"`
	PercentageAttribute string              `json:"a,omitempty"`
	TargetingRules      []*TargetingRule    `json:"r,omitempty"`
	PercentageOptions   []*PercentageOption `json:"p,omitempty"`
	Value               SettingValue        `json:"v"`
	VariationID         string              `json:"i,omitempty"`
}

// TargetingRule holds AND-ed conditions and either a served value or
// percentage options.
type TargetingRule struct {
	Conditions        []*Condition        `json:"c,omitempty"`
	Served            *ServedValue        `json:"s,omitempty"`
	PercentageOptions []*PercentageOption `json:"p,omitempty"`
}

// ServedValue is the THEN part of a targeting rule.
type ServedValue struct {
	Value       SettingValue `json:"v"`
	VariationID string       `json:"i,omitempty"`
}

// Condition is a tagged union: exactly one field is set.
type Condition struct {
	User         *UserCondition             `json:"u,omitempty"`
	Segment      *SegmentCondition          `json:"s,omitempty"`
	Prerequisite *PrerequisiteFlagCondition `json:"p,omitempty"`
}

// UserCondition compares a user attribute against a comparison value.
type UserCondition struct {
	Attribute   string     `json:"a"`
	Comparator  Comparator `json:"c"`
	StringValue *string    `json:"s,omitempty"`
	DoubleValue *float64   `json:"d,omitempty"`
	ListValue   []string   `json:"l,omitempty"`
}

// SegmentComparator is IsIn or IsNotIn.
type SegmentComparator int

const (
	SegmentIsIn    SegmentComparator = 0
	SegmentIsNotIn SegmentComparator = 1
)

// SegmentCondition references a segment by index into Config.Segments.
type SegmentCondition struct {
	Index      int               `json:"s"`
	Comparator SegmentComparator `json:"c"`
}

// PrerequisiteComparator is Equals or NotEquals.
type PrerequisiteComparator int

const (
	PrerequisiteEquals    PrerequisiteComparator = 0
	PrerequisiteNotEquals PrerequisiteComparator = 1
)

// PrerequisiteFlagCondition depends on the evaluated value of another flag.
type PrerequisiteFlagCondition struct {
	FlagKey    string                 `json:"f"`
	Comparator PrerequisiteComparator `json:"c"`
	Value      SettingValue           `json:"v"`
}

// PercentageOption is one slice of a percentage rollout.
type PercentageOption struct {
	Percentage  int          `json:"p"`
	Value       SettingValue `json:"v"`
	VariationID string       `json:"i,omitempty"`
}

// Segment is a named, reusable group of user conditions.
type Segment struct {
	Name       string           `json:"n"`
	Conditions []*UserCondition `json:"r,omitempty"`
}

// ParseConfig decodes a configuration document. Comments and trailing
// commas are tolerated.
func ParseConfig(data []byte) (*Config, error) {
	std, err := hujson.Standardize(append([]byte(nil), data...))
	if err != nil {
		return nil, fmt.Errorf("invalid config json: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config json: %w", err)
	}

	if cfg.Settings == nil {
		cfg.Settings = map[string]*Setting{}
	}
	return &cfg, nil
}

// Salt returns the config-level salt used by hashed comparators.
func (c *Config) Salt() string {
	if c == nil || c.Preferences == nil {
		return ""
	}
	return c.Preferences.Salt
}

// Keys returns the setting keys in sorted order.
func (c *Config) Keys() []string {
	if c == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Settings))
	for k := range c.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Segment returns the segment at index, or nil when out of range.
func (c *Config) Segment(index int) *Segment {
	if c == nil || index < 0 || index >= len(c.Segments) {
		return nil
	}
	return c.Segments[index]
}
