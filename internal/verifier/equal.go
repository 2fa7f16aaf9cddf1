package verifier

import (
	"math"

	"code-translator/internal/config"
	"code-translator/internal/domain/model"
)

// Policy decides whether two observed values agree.
//
// Integers, strings and booleans compare exactly. Once a float is involved
// the values match within AbsEpsilon or RelEpsilon*max(|a|,|b|); NaN equals
// NaN. Sequences are ordered, sets and mappings are not. A sequence meets a
// set order-insensitively when the declared return type is a set, which is
// how a runtime without a set literal reports one.
type Policy struct {
	AbsEpsilon float64
	RelEpsilon float64
}

func PolicyFrom(cfg config.VerifyConfig) Policy {
	return Policy{AbsEpsilon: cfg.AbsEpsilon, RelEpsilon: cfg.RelEpsilon}
}

// Equal compares a (expected) and b (got) for a function declared to return ret.
func (p Policy) Equal(a, b model.Value, ret model.TypeTag) bool {
	ak, bk := a.Kind(), b.Kind()
	switch {
	case ak == model.KindFloat || bk == model.KindFloat:
		x, ok1 := a.Number()
		y, ok2 := b.Number()
		return ok1 && ok2 && p.floatEqual(x, y)
	case ak == model.KindBool && bk == model.KindInt, ak == model.KindInt && bk == model.KindBool:
		// C has no bool in its return type unless <stdbool.h> is used
		return ret == model.TypeBoolean && truth(a) == truth(b)
	case isCollection(ak) && isCollection(bk):
		if ak == model.KindSet || bk == model.KindSet || ret == model.TypeSet {
			return p.unordered(a.Items(), b.Items())
		}
		if ak != bk {
			return false
		}
		return p.ordered(a.Items(), b.Items())
	case ak != bk:
		return false
	case ak == model.KindMap:
		return p.mapEqual(a, b)
	}
	return a.Identical(b)
}

func (p Policy) floatEqual(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}
	if x == y {
		return true
	}
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return false
	}
	d := math.Abs(x - y)
	return d <= p.AbsEpsilon || d <= p.RelEpsilon*math.Max(math.Abs(x), math.Abs(y))
}

func (p Policy) ordered(a, b []model.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !p.Equal(a[i], b[i], model.TypeUnknown) {
			return false
		}
	}
	return true
}

// unordered matches elements pairwise; tolerance makes hashing unusable.
func (p Policy) unordered(a, b []model.Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, x := range a {
		for j, y := range b {
			if !used[j] && p.Equal(x, y, model.TypeUnknown) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func (p Policy) mapEqual(a, b model.Value) bool {
	if a.Len() != b.Len() {
		return false
	}
	for _, e := range a.Entries() {
		v, ok := b.Lookup(e.Key)
		if !ok || !p.Equal(e.Value, v, model.TypeUnknown) {
			return false
		}
	}
	return true
}

func isCollection(k model.ValueKind) bool { return k == model.KindSeq || k == model.KindSet }

func truth(v model.Value) bool {
	if b, ok := v.Bool(); ok {
		return b
	}
	i, _ := v.Int()
	return i != 0
}
