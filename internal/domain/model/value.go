package model

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind enumerates the closed set of language-neutral values exchanged
// with sandboxes.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindSeq
	KindSet
	KindMap
)

var kindNames = [...]string{"null", "int", "float", "string", "bool", "seq", "set", "map"}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Entry is one key/value pair of a mapping. Keys are strings on the wire.
type Entry struct {
	Key   string
	Value Value
}

// Value is an immutable tagged variant. The zero Value is Null.
type Value struct {
	kind    ValueKind
	i       int64
	f       float64
	s       string
	b       bool
	items   []Value
	entries []Entry
}

func Null() Value              { return Value{} }
func Int(i int64) Value        { return Value{kind: KindInt, i: i} }
func Float(f float64) Value    { return Value{kind: KindFloat, f: f} }
func String(s string) Value    { return Value{kind: KindString, s: s} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func Seq(items ...Value) Value { return Value{kind: KindSeq, items: cloneValues(items)} }
func Set(items ...Value) Value { return Value{kind: KindSet, items: cloneValues(items)} }
func Map(entries ...Entry) Value {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return Value{kind: KindMap, entries: cp}
}

// Ints is a convenience for building integer tuples.
func Ints(xs ...int64) []Value {
	out := make([]Value, len(xs))
	for i, x := range xs {
		out[i] = Int(x)
	}
	return out
}

func cloneValues(in []Value) []Value {
	out := make([]Value, len(in))
	copy(out, in)
	return out
}

func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) Int() (int64, bool)     { return v.i, v.kind == KindInt }
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindFloat }
func (v Value) Str() (string, bool)    { return v.s, v.kind == KindString }
func (v Value) Bool() (bool, bool)     { return v.b, v.kind == KindBool }

// Number widens integers and floats to float64.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Items returns a copy of the elements of a Seq or Set.
func (v Value) Items() []Value {
	if v.kind != KindSeq && v.kind != KindSet {
		return nil
	}
	return cloneValues(v.items)
}

func (v Value) Len() int {
	switch v.kind {
	case KindSeq, KindSet:
		return len(v.items)
	case KindMap:
		return len(v.entries)
	case KindString:
		return len(v.s)
	}
	return 0
}

// Entries returns a copy of the pairs of a Map in insertion order.
func (v Value) Entries() []Entry {
	if v.kind != KindMap {
		return nil
	}
	cp := make([]Entry, len(v.entries))
	copy(cp, v.entries)
	return cp
}

// Lookup finds a mapping value by key.
func (v Value) Lookup(key string) (Value, bool) {
	for _, e := range v.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Tag is the semantic type tag a value naturally carries.
func (v Value) Tag() TypeTag {
	switch v.kind {
	case KindInt:
		return TypeInteger
	case KindFloat:
		return TypeFloat
	case KindString:
		return TypeString
	case KindBool:
		return TypeBoolean
	case KindSeq:
		return TypeSequence
	case KindSet:
		return TypeSet
	case KindMap:
		return TypeMapping
	}
	return TypeUnknown
}

// Identical is strict structural identity (no tolerance, order-sensitive).
// Used for de-duplicating generated tuples; verdicts use the verifier's
// equality policy instead.
func (v Value) Identical(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindSeq, KindSet:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Identical(o.items[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.entries) != len(o.entries) {
			return false
		}
		for i := range v.entries {
			if v.entries[i].Key != o.entries[i].Key || !v.entries[i].Value.Identical(o.entries[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders a compact, human readable form (python-like literals).
func (v Value) String() string {
	var sb strings.Builder
	v.write(&sb)
	return sb.String()
}

func (v Value) write(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(formatFloat(v.f))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindSeq, KindSet:
		open, closing := "[", "]"
		if v.kind == KindSet {
			open, closing = "{", "}"
		}
		sb.WriteString(open)
		for i, it := range v.items {
			if i > 0 {
				sb.WriteString(", ")
			}
			it.write(sb)
		}
		sb.WriteString(closing)
	case KindMap:
		sb.WriteString("{")
		keys := make([]string, 0, len(v.entries))
		byKey := make(map[string]Value, len(v.entries))
		for _, e := range v.entries {
			keys = append(keys, e.Key)
			byKey[e.Key] = e.Value
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			val := byKey[k]
			val.write(sb)
		}
		sb.WriteString("}")
	}
}

// formatFloat always keeps a fractional marker so the text re-parses as a float.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
