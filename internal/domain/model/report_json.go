package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"code-translator/internal/domain"
)

type wireCase struct {
	Args     []Value          `json:"args"`
	Expected *ExecutionResult `json:"expected"`
	Got      *ExecutionResult `json:"got"`
	OK       bool             `json:"ok"`
}

type wireReport struct {
	Passed   int        `json:"passed"`
	Total    int        `json:"total"`
	PassRate float64    `json:"pass_rate"`
	Cases    []wireCase `json:"cases"`
}

// MarshalJSON emits {passed, total, pass_rate, cases:[{args, expected, got, ok}]}.
func (r Report) MarshalJSON() ([]byte, error) {
	w := wireReport{Passed: r.Passed, Total: r.Total, PassRate: r.PassRate, Cases: make([]wireCase, len(r.Cases))}
	for i, c := range r.Cases {
		args := c.Args
		if args == nil {
			args = []Value{}
		}
		w.Cases[i] = wireCase{Args: args, Expected: c.Expected, Got: c.Got, OK: c.OK}
	}
	return json.Marshal(w)
}

// EncodeReport produces the lossless storage form of a report. Outcomes are
// {"value": <canonical>} or {"failure": {"kind", "message"}}.
func EncodeReport(r *Report) []byte {
	var buf bytes.Buffer
	buf.WriteString(`{"passed":`)
	buf.WriteString(strconv.Itoa(r.Passed))
	buf.WriteString(`,"total":`)
	buf.WriteString(strconv.Itoa(r.Total))
	buf.WriteString(`,"pass_rate":`)
	buf.WriteString(strconv.FormatFloat(r.PassRate, 'g', -1, 64))
	buf.WriteString(`,"cases":`)
	buf.Write(EncodeCases(r.Cases))
	buf.WriteByte('}')
	return buf.Bytes()
}

// EncodeCases is the storage form of a case list.
func EncodeCases(cases []TestCase) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, c := range cases {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(`{"args":`)
		buf.Write(CanonicalArgs(c.Args))
		buf.WriteString(`,"expected":`)
		appendOutcome(&buf, c.Expected)
		buf.WriteString(`,"got":`)
		appendOutcome(&buf, c.Got)
		buf.WriteString(`,"ok":`)
		buf.WriteString(strconv.FormatBool(c.OK))
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes()
}

func appendOutcome(buf *bytes.Buffer, r *ExecutionResult) {
	switch {
	case r == nil:
		buf.WriteString("null")
	case r.failure != nil:
		b, _ := json.Marshal(struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}{string(r.failure.Kind), r.failure.Message})
		buf.WriteString(`{"failure":`)
		buf.Write(b)
		buf.WriteByte('}')
	default:
		buf.WriteString(`{"value":`)
		buf.Write(r.value.Canonical())
		buf.WriteByte('}')
	}
}

// DecodeReport is the inverse of EncodeReport.
func DecodeReport(data []byte) (*Report, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed report", domain.ErrReadDatabaseRow)
	}
	root := gjson.ParseBytes(data)
	cases, err := DecodeCases([]byte(root.Get("cases").Raw))
	if err != nil {
		return nil, err
	}
	return &Report{
		Passed:   int(root.Get("passed").Int()),
		Total:    int(root.Get("total").Int()),
		PassRate: root.Get("pass_rate").Float(),
		Cases:    cases,
	}, nil
}

func DecodeCases(data []byte) ([]TestCase, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed cases", domain.ErrReadDatabaseRow)
	}
	var (
		out []TestCase
		err error
	)
	gjson.ParseBytes(data).ForEach(func(_, c gjson.Result) bool {
		var tc TestCase
		tc, err = decodeCase(c)
		if err != nil {
			return false
		}
		out = append(out, tc)
		return true
	})
	return out, err
}

func decodeCase(c gjson.Result) (TestCase, error) {
	args, err := fromArray(c.Get("args"))
	if err != nil {
		return TestCase{}, err
	}
	exp, err := decodeOutcome(c.Get("expected"))
	if err != nil {
		return TestCase{}, err
	}
	got, err := decodeOutcome(c.Get("got"))
	if err != nil {
		return TestCase{}, err
	}
	return TestCase{Args: args, Expected: exp, Got: got, OK: c.Get("ok").Bool()}, nil
}

func decodeOutcome(r gjson.Result) (*ExecutionResult, error) {
	if !r.Exists() || r.Type == gjson.Null {
		return nil, nil
	}
	if f := r.Get("failure"); f.Exists() {
		return Failed(domain.Kind(f.Get("kind").String()), f.Get("message").String()), nil
	}
	v, err := FromResult(r.Get("value"))
	if err != nil {
		return nil, err
	}
	return Succeeded(v), nil
}
