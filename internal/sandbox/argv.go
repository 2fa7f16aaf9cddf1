package sandbox

import (
	"fmt"
	"math"
	"strconv"

	"code-translator/internal/domain/model"
)

// argvValue spells a scalar for a command line. Floats use the C library
// names for non-finite values, which strtod and the harnesses accept.
func argvValue(v model.Value) (string, error) {
	switch v.Kind() {
	case model.KindInt:
		i, _ := v.Int()
		return strconv.FormatInt(i, 10), nil
	case model.KindFloat:
		f, _ := v.Float()
		switch {
		case math.IsNaN(f):
			return "nan", nil
		case math.IsInf(f, 1):
			return "inf", nil
		case math.IsInf(f, -1):
			return "-inf", nil
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case model.KindString:
		s, _ := v.Str()
		return s, nil
	case model.KindBool:
		if b, _ := v.Bool(); b {
			return "1", nil
		}
		return "0", nil
	}
	return "", fmt.Errorf("cannot pass %s argument %s on the command line", v.Kind(), v)
}

func argvValues(args []model.Value) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := argvValue(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = s
	}
	return out, nil
}
