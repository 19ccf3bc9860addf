package main

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

// filterEnv is what a -filter expression sees, e.g.
// `IsDefaultValue == false && Key startsWith "checkout"`.
type filterEnv struct {
	Key            string
	Value          any
	VariationID    string
	IsDefaultValue bool
	ErrorCode      string
	ErrorMessage   string
	FetchTime      time.Time
}

// Filter selects evaluation results to print.
type Filter struct {
	program *vm.Program
}

// CompileFilter compiles a boolean expression. An empty source matches
// everything.
func CompileFilter(source string) (*Filter, error) {
	if source == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(source, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", source, err)
	}
	return &Filter{program: program}, nil
}

// Match reports whether d passes the filter.
func (f *Filter) Match(d domain.EvaluationDetails) (bool, error) {
	if f.program == nil {
		return true, nil
	}
	out, err := expr.Run(f.program, filterEnv{
		Key:            d.Key,
		Value:          d.Value,
		VariationID:    d.VariationID,
		IsDefaultValue: d.IsDefaultValue,
		ErrorCode:      d.ErrorCode.String(),
		ErrorMessage:   d.ErrorMessage,
		FetchTime:      d.FetchTime,
	})
	if err != nil {
		return false, fmt.Errorf("filter failed for %s: %w", d.Key, err)
	}
	return out.(bool), nil
}
