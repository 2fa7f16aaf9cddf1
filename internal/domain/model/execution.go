package model

import (
	"encoding/json"
	"strings"

	"code-translator/internal/domain"
)

// Failure describes why an execution did not produce a value.
type Failure struct {
	Kind    domain.Kind
	Message string
}

// Marker is the printable form stored in reports: "<Kind>: <message>".
func (f Failure) Marker() string {
	msg := strings.TrimSpace(f.Message)
	if msg == "" {
		return string(f.Kind)
	}
	return string(f.Kind) + ": " + msg
}

// ExecutionResult is either a Value or a Failure, never both.
type ExecutionResult struct {
	value   Value
	failure *Failure
}

func Succeeded(v Value) *ExecutionResult { return &ExecutionResult{value: v} }

func Failed(kind domain.Kind, msg string) *ExecutionResult {
	return &ExecutionResult{failure: &Failure{Kind: kind, Message: msg}}
}

func (r *ExecutionResult) OK() bool { return r != nil && r.failure == nil }

// Value returns the produced value; ok is false for failures.
func (r *ExecutionResult) Value() (Value, bool) {
	if !r.OK() {
		return Value{}, false
	}
	return r.value, true
}

func (r *ExecutionResult) Failure() *Failure {
	if r == nil {
		return nil
	}
	return r.failure
}

func (r *ExecutionResult) String() string {
	if r == nil {
		return "<pending>"
	}
	if r.failure != nil {
		return r.failure.Marker()
	}
	return r.value.String()
}

// MarshalJSON renders the value as plain JSON and a failure as its marker string.
func (r *ExecutionResult) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	if r.failure != nil {
		return json.Marshal(r.failure.Marker())
	}
	return r.value.MarshalJSON()
}
