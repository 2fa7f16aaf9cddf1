package model

import (
	"fmt"
	"strings"
	"time"

	"code-translator/internal/domain"
)

// Job is one translation (and possibly verification) request, fully resolved.
// Once handed to the job store it is never mutated.
type Job struct {
	ID             string
	SourceLang     Language
	TargetLang     Language
	FunctionName   string
	SourceCode     string
	TranslatedCode string
	ParamCount     int
	TestCases      []TestCase
	Report         *Report
	Verified       bool
	CreatedAt      time.Time
}

// NewJob validates the request fields shared by every pipeline entry point.
func NewJob(id string, src, dst Language, fn, code string, now time.Time) (*Job, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: job id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(fn) == "" {
		return nil, fmt.Errorf("%w: function name is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: source code is required", domain.ErrInvalidArgument)
	}
	return &Job{
		ID:           id,
		SourceLang:   src,
		TargetLang:   dst,
		FunctionName: fn,
		SourceCode:   code,
		CreatedAt:    now.UTC(),
	}, nil
}

// Clone copies the job together with its cases and report so stores can
// hand out jobs without sharing slices with callers. Values and results are
// immutable and stay shared.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.TestCases = cloneCases(j.TestCases)
	if j.Report != nil {
		r := *j.Report
		r.Cases = cloneCases(j.Report.Cases)
		cp.Report = &r
	}
	return &cp
}

func cloneCases(in []TestCase) []TestCase {
	if in == nil {
		return nil
	}
	out := make([]TestCase, len(in))
	for i, c := range in {
		c.Args = append([]Value(nil), c.Args...)
		out[i] = c
	}
	return out
}

// Validate checks the cross-field invariants a recorded job must hold.
func (j *Job) Validate() error {
	if j == nil {
		return fmt.Errorf("%w: nil job", domain.ErrInvalidArgument)
	}
	if j.ID == "" {
		return fmt.Errorf("%w: job id is required", domain.ErrInvalidArgument)
	}
	if j.Report != nil {
		if j.TranslatedCode == "" {
			return fmt.Errorf("%w: report without translated code", domain.ErrInvalidArgument)
		}
		if err := j.Report.Validate(); err != nil {
			return err
		}
	}
	if j.Verified && j.Report == nil {
		return fmt.Errorf("%w: verified job without report", domain.ErrInvalidArgument)
	}
	return nil
}

// PassRate is the report's pass rate, or 0 for unverified jobs.
func (j *Job) PassRate() float64 {
	if j.Report == nil {
		return 0
	}
	return j.Report.PassRate
}
