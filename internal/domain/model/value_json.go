package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"code-translator/internal/domain"
)

const (
	setTag   = "__set__"
	floatTag = "__float__"
)

// MarshalJSON is the wire form used by the API: sets become arrays and
// non-finite floats become strings.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.appendJSON(&buf, false)
	return buf.Bytes(), nil
}

// Canonical is the lossless encoding used by harnesses and the job store.
func (v Value) Canonical() []byte {
	var buf bytes.Buffer
	v.appendJSON(&buf, true)
	return buf.Bytes()
}

func (v Value) appendJSON(buf *bytes.Buffer, canonical bool) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			name := nonFiniteName(v.f)
			if canonical {
				buf.WriteString(`{"` + floatTag + `":"` + name + `"}`)
			} else {
				buf.WriteString(strconv.Quote(formatFloat(v.f)))
			}
			return
		}
		buf.WriteString(formatFloat(v.f))
	case KindString:
		b, _ := json.Marshal(v.s)
		buf.Write(b)
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindSeq, KindSet:
		wrap := canonical && v.kind == KindSet
		if wrap {
			buf.WriteString(`{"` + setTag + `":`)
		}
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			it.appendJSON(buf, canonical)
		}
		buf.WriteByte(']')
		if wrap {
			buf.WriteByte('}')
		}
	case KindMap:
		buf.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, _ := json.Marshal(e.Key)
			buf.Write(k)
			buf.WriteByte(':')
			e.Value.appendJSON(buf, canonical)
		}
		buf.WriteByte('}')
	}
}

func nonFiniteName(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	}
	return "-inf"
}

// ParseValue decodes JSON text (wire or canonical) into a Value. Numbers
// whose literal carries a fraction or exponent become floats; integers that
// overflow int64 degrade to floats.
func ParseValue(raw string) (Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return Value{}, fmt.Errorf("%w: malformed json value", domain.ErrInvalidArgument)
	}
	return FromResult(gjson.Parse(raw))
}

// FromResult converts an already parsed gjson node.
func FromResult(r gjson.Result) (Value, error) {
	switch r.Type {
	case gjson.Null:
		return Null(), nil
	case gjson.True:
		return Bool(true), nil
	case gjson.False:
		return Bool(false), nil
	case gjson.String:
		return String(r.Str), nil
	case gjson.Number:
		return numberFromRaw(r), nil
	case gjson.JSON:
		if r.IsArray() {
			items, err := fromArray(r)
			if err != nil {
				return Value{}, err
			}
			return Value{kind: KindSeq, items: items}, nil
		}
		return fromObject(r)
	}
	return Value{}, fmt.Errorf("%w: unsupported json node", domain.ErrInvalidArgument)
}

func numberFromRaw(r gjson.Result) Value {
	if !strings.ContainsAny(r.Raw, ".eE") {
		if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
			return Int(i)
		}
	}
	return Float(r.Float())
}

func fromArray(r gjson.Result) ([]Value, error) {
	var (
		items []Value
		err   error
	)
	r.ForEach(func(_, el gjson.Result) bool {
		var v Value
		v, err = FromResult(el)
		if err != nil {
			return false
		}
		items = append(items, v)
		return true
	})
	if items == nil {
		items = []Value{}
	}
	return items, err
}

func fromObject(r gjson.Result) (Value, error) {
	// single-key wrappers of the canonical encoding
	if s := r.Get(setTag); s.Exists() && s.IsArray() && countKeys(r) == 1 {
		items, err := fromArray(s)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindSet, items: items}, nil
	}
	if f := r.Get(floatTag); f.Exists() && f.Type == gjson.String && countKeys(r) == 1 {
		switch f.Str {
		case "nan":
			return Float(math.NaN()), nil
		case "inf":
			return Float(math.Inf(1)), nil
		case "-inf":
			return Float(math.Inf(-1)), nil
		}
		return Value{}, fmt.Errorf("%w: bad float marker %q", domain.ErrInvalidArgument, f.Str)
	}
	var (
		entries = []Entry{}
		err     error
	)
	r.ForEach(func(k, el gjson.Result) bool {
		var v Value
		v, err = FromResult(el)
		if err != nil {
			return false
		}
		entries = append(entries, Entry{Key: k.String(), Value: v})
		return true
	})
	if err != nil {
		return Value{}, err
	}
	return Value{kind: KindMap, entries: entries}, nil
}

func countKeys(r gjson.Result) int {
	n := 0
	r.ForEach(func(_, _ gjson.Result) bool { n++; return true })
	return n
}

// CanonicalArgs renders an argument tuple as a canonical JSON array.
func CanonicalArgs(args []Value) []byte {
	return Seq(args...).Canonical()
}
