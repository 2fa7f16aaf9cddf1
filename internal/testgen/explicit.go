package testgen

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
)

// IsEmpty reports whether a payload selects auto mode.
func IsEmpty(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return true
	}
	r := gjson.ParseBytes(t)
	if r.IsArray() && len(r.Array()) == 0 {
		return true
	}
	if r.IsObject() {
		if in := unwrap(r); in.Exists() && in.IsArray() && len(in.Array()) == 0 {
			return true
		}
	}
	return false
}

func unwrap(r gjson.Result) gjson.Result {
	for _, k := range []string{"inputs", "cases"} {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidTestInput}, args...)...)
}

// Explicit parses a user supplied payload against sig. Accepted shapes per
// case: a positional array, {"args": [...], "expected": v}, or an object
// keyed by parameter name. A top-level {"inputs"|"cases": [...]} is unwrapped.
func Explicit(raw []byte, sig model.Signature) ([]model.TestCase, error) {
	if !gjson.ValidBytes(raw) {
		return nil, invalid("payload is not valid json")
	}
	root := gjson.ParseBytes(raw)
	if root.IsObject() {
		in := unwrap(root)
		if !in.Exists() {
			return nil, invalid("object payload needs an \"inputs\" or \"cases\" array")
		}
		root = in
	}
	if !root.IsArray() {
		return nil, invalid("payload must be a sequence of cases")
	}

	var (
		cases []model.TestCase
		err   error
	)
	root.ForEach(func(idx, c gjson.Result) bool {
		var tc model.TestCase
		tc, err = parseCase(c, sig)
		if err != nil {
			err = fmt.Errorf("case %d: %w", idx.Int(), err)
			return false
		}
		cases = append(cases, tc)
		return true
	})
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func parseCase(c gjson.Result, sig model.Signature) (model.TestCase, error) {
	switch {
	case c.IsArray():
		args, err := positional(c, sig)
		return model.TestCase{Args: args}, err
	case c.IsObject():
		if a := c.Get("args"); a.Exists() {
			if !a.IsArray() {
				return model.TestCase{}, invalid("\"args\" must be a sequence")
			}
			args, err := positional(a, sig)
			if err != nil {
				return model.TestCase{}, err
			}
			tc := model.TestCase{Args: args}
			if e := c.Get("expected"); e.Exists() {
				v, err := model.FromResult(e)
				if err != nil {
					return model.TestCase{}, invalid("expected: %v", err)
				}
				tc.Expected = model.Succeeded(v)
			}
			return tc, nil
		}
		args, err := named(c, sig)
		return model.TestCase{Args: args}, err
	}
	return model.TestCase{}, invalid("case must be a sequence or an object, got %s", c.Type)
}

func positional(a gjson.Result, sig model.Signature) ([]model.Value, error) {
	items := a.Array()
	if len(items) != sig.Arity() {
		return nil, invalid("got %d arguments, %s takes %d", len(items), sig.Name, sig.Arity())
	}
	args := make([]model.Value, len(items))
	for i, it := range items {
		v, err := model.FromResult(it)
		if err != nil {
			return nil, invalid("argument %d: %v", i, err)
		}
		args[i] = coerce(v, sig.Params[i].Type)
	}
	return args, nil
}

func named(obj gjson.Result, sig model.Signature) ([]model.Value, error) {
	args := make([]model.Value, sig.Arity())
	seen := make([]bool, sig.Arity())
	var err error
	obj.ForEach(func(k, v gjson.Result) bool {
		i := sig.ParamIndex(k.String())
		if i < 0 {
			err = invalid("unknown parameter %q", k.String())
			return false
		}
		var val model.Value
		if val, err = model.FromResult(v); err != nil {
			err = invalid("parameter %q: %v", k.String(), err)
			return false
		}
		args[i], seen[i] = coerce(val, sig.Params[i].Type), true
		return true
	})
	if err != nil {
		return nil, err
	}
	for i, ok := range seen {
		if !ok {
			return nil, invalid("missing parameter %q", sig.Params[i].Name)
		}
	}
	return args, nil
}

// coerce adapts json's lack of integer/float and set distinctions to the
// declared parameter type.
func coerce(v model.Value, t model.TypeTag) model.Value {
	switch t {
	case model.TypeFloat:
		if i, ok := v.Int(); ok {
			return model.Float(float64(i))
		}
	case model.TypeSet:
		if v.Kind() == model.KindSeq {
			return model.Set(v.Items()...)
		}
	}
	return v
}
