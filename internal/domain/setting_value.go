package domain

import (
	"fmt"
	"strconv"
)

// SettingValue is the tagged value representation used by the configuration
// document. Exactly one field is expected to be set, matching the owning
// setting's type.
type SettingValue struct {
	Bool   *bool    `json:"b,omitempty"`
	String *string  `json:"s,omitempty"`
	Int    *int     `json:"i,omitempty"`
	Double *float64 `json:"d,omitempty"`
}

// ValueOf returns the value as the Go type that corresponds to t.
func (v SettingValue) ValueOf(t SettingType) (any, error) {
	var (
		out any
		ok  bool
	)
	switch t {
	case SettingTypeBool:
		if ok = v.Bool != nil; ok {
			out = *v.Bool
		}
	case SettingTypeString:
		if ok = v.String != nil; ok {
			out = *v.String
		}
	case SettingTypeInt:
		if ok = v.Int != nil; ok {
			out = *v.Int
		}
	case SettingTypeDouble:
		if ok = v.Double != nil; ok {
			out = *v.Double
		}
	default:
		return nil, fmt.Errorf("unsupported setting type %s", t)
	}

	if !ok || v.fieldCount() != 1 {
		return nil, fmt.Errorf("setting value is not of the expected type %s", t)
	}
	return out, nil
}

func (v SettingValue) fieldCount() int {
	n := 0
	if v.Bool != nil {
		n++
	}
	if v.String != nil {
		n++
	}
	if v.Int != nil {
		n++
	}
	if v.Double != nil {
		n++
	}
	return n
}

// SettingTypeOf maps a Go value to the setting type it can be compared with.
// The second result is false for unsupported types.
func SettingTypeOf(v any) (SettingType, bool) {
	switch v.(type) {
	case bool:
		return SettingTypeBool, true
	case string:
		return SettingTypeString, true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return SettingTypeInt, true
	case float32, float64:
		return SettingTypeDouble, true
	default:
		return 0, false
	}
}

// FormatValue renders a setting value for log output.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return "'" + x + "'"
	case bool:
		return "'" + strconv.FormatBool(x) + "'"
	case float64:
		return "'" + strconv.FormatFloat(x, 'g', -1, 64) + "'"
	default:
		return fmt.Sprintf("'%v'", x)
	}
}

// BoolValue, StringValue, IntValue and DoubleValue build tagged values.
func BoolValue(b bool) SettingValue { return SettingValue{Bool: &b} }

func StringValue(s string) SettingValue { return SettingValue{String: &s} }

func IntValue(i int) SettingValue { return SettingValue{Int: &i} }

func DoubleValue(d float64) SettingValue { return SettingValue{Double: &d} }
