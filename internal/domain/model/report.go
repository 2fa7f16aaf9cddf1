package model

import (
	"fmt"

	"code-translator/internal/domain"
)

// TestCase holds one argument tuple and both observed outcomes.
// Expected is nil until supplied by the caller or computed from the source.
type TestCase struct {
	Args     []Value
	Expected *ExecutionResult
	Got      *ExecutionResult
	OK       bool
}

type Report struct {
	Passed   int
	Total    int
	PassRate float64
	Cases    []TestCase
}

func (r *Report) Validate() error {
	passed := 0
	for _, c := range r.Cases {
		if c.OK {
			passed++
		}
	}
	switch {
	case r.Total != len(r.Cases):
		return fmt.Errorf("%w: report total %d != %d cases", domain.ErrInvalidArgument, r.Total, len(r.Cases))
	case r.Passed != passed:
		return fmt.Errorf("%w: report passed %d != %d ok cases", domain.ErrInvalidArgument, r.Passed, passed)
	case r.PassRate < 0 || r.PassRate > 1:
		return fmt.Errorf("%w: pass rate %v out of range", domain.ErrInvalidArgument, r.PassRate)
	}
	return nil
}

// Completed counts cases where both sides produced a value.
func (r *Report) Completed() int {
	n := 0
	for _, c := range r.Cases {
		if c.Expected.OK() && c.Got.OK() {
			n++
		}
	}
	return n
}
