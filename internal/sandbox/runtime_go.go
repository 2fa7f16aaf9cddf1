package sandbox

import (
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
)

// allowedGoPackages are the only imports interpreted code may use: pure
// computation, no filesystem, network, process or unsafe access.
var allowedGoPackages = map[string]bool{
	"bytes": true, "container/heap": true, "container/list": true, "errors": true,
	"fmt": true, "math": true, "math/big": true, "math/bits": true, "regexp": true,
	"sort": true, "strconv": true, "strings": true, "unicode": true, "unicode/utf8": true,
}

var (
	goSymbols   = filterSymbols(stdlib.Symbols)
	packageRe   = regexp.MustCompile(`(?m)^\s*package\s+\w+\s*$`)
	goImportRe  = regexp.MustCompile(`"([\w/]+)"`)
	importSpecs = regexp.MustCompile(`(?s)import\s*\((.*?)\)|import\s+(?:\w+\s+)?"[\w/]+"`)
)

// filterSymbols keeps the allow-listed packages; keys look like "math/bits/bits".
func filterSymbols(all interp.Exports) interp.Exports {
	out := interp.Exports{}
	for key, syms := range all {
		if i := strings.LastIndexByte(key, '/'); i > 0 && allowedGoPackages[key[:i]] {
			out[key] = syms
		}
	}
	return out
}

func forbiddenImports(code string) []string {
	var bad []string
	for _, spec := range importSpecs.FindAllString(code, -1) {
		for _, m := range goImportRe.FindAllStringSubmatch(spec, -1) {
			if !allowedGoPackages[m[1]] {
				bad = append(bad, m[1])
			}
		}
	}
	return bad
}

const (
	// goRunnerName is the name the host binary is linked under inside a
	// program workdir; started under that name it interprets instead.
	goRunnerName = "ct-gorun"
	goSourceFile = "solution.go"
)

// goRuntime interprets Go with yaegi in a child process so the isolator's
// timeout and kill apply. The heap ceiling is enforced by the child itself:
// the Go runtime reserves more address space than ulimit -v would allow.
type goRuntime struct {
	runner   *runnerBinary
	memoryMB int
}

func (r goRuntime) tools() []string    { return nil }
func (r goRuntime) memoryByFlag() bool { return true }

func (r goRuntime) sources(code string, _ model.Signature) (map[string]string, error) {
	if packageRe.MatchString(code) {
		code = packageRe.ReplaceAllString(code, "package main")
	} else {
		code = "package main\n\n" + code
	}
	return map[string]string{goSourceFile: code}, nil
}

func (r goRuntime) stage(dir string) error { return r.runner.linkInto(dir) }

// compile loads the source once so syntax, type and import errors and
// runaway initializers surface as compile failures.
func (r goRuntime) compile(sig model.Signature, _ []string) [][]string {
	return [][]string{{"./" + goRunnerName, "check", sig.Name}}
}

func (r goRuntime) invocation(sig model.Signature, args []model.Value) ([]string, []byte, error) {
	argv := []string{"./" + goRunnerName, "run", sig.Name}
	if r.memoryMB > 0 {
		argv = append(argv, "-memory-mb", strconv.Itoa(r.memoryMB))
	}
	return argv, model.CanonicalArgs(args), nil
}

// loadGo interprets src and returns the named top-level function.
func loadGo(src, name string) (*interp.Interpreter, reflect.Value, error) {
	i := interp.New(interp.Options{Stdout: io.Discard, Stderr: io.Discard})
	if err := i.Use(goSymbols); err != nil {
		return nil, reflect.Value{}, err
	}
	if _, err := i.Eval(src); err != nil {
		return nil, reflect.Value{}, err
	}
	fn, err := i.Eval("main." + name)
	if err != nil {
		return nil, reflect.Value{}, err
	}
	if fn.Kind() != reflect.Func {
		return nil, reflect.Value{}, fmt.Errorf("%s is not a function", name)
	}
	return i, fn, nil
}

// invokeGo calls name with args inside a fresh interpreter.
func invokeGo(src, name string, args []model.Value) *model.ExecutionResult {
	i, fn, err := loadGo(src, name)
	if err != nil {
		return model.Failed(domain.KindCompileFailure, clip(err.Error(), 500))
	}
	ft := fn.Type()
	if ft.NumIn() != len(args) {
		return model.Failed(domain.KindRuntimeFailure, fmt.Sprintf("%s takes %d arguments, got %d", name, ft.NumIn(), len(args)))
	}
	harness, err := goHarness(name, ft, args)
	if err != nil {
		return model.Failed(domain.KindRuntimeFailure, err.Error())
	}
	if _, err := i.Eval(harness); err != nil {
		return model.Failed(domain.KindRuntimeFailure, "cannot pass arguments: "+clip(err.Error(), 300))
	}
	out, err := i.Eval("main.ctInvoke()")
	if err != nil {
		return model.Failed(domain.KindRuntimeFailure, clip(err.Error(), 300))
	}
	if failure, err := i.Eval("main.ctFailure"); err == nil && failure.Kind() == reflect.String && failure.String() != "" {
		return model.Failed(domain.KindRuntimeFailure, failure.String())
	}
	if ft.NumOut() == 0 {
		return model.Succeeded(model.Null())
	}
	v, err := fromGo(out)
	if err != nil {
		return model.Failed(domain.KindRuntimeFailure, err.Error())
	}
	return model.Succeeded(v)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// goHarness renders ctInvoke, which calls the function with literal
// arguments, recovers panics and folds a trailing error into ctFailure.
func goHarness(name string, ft reflect.Type, args []model.Value) (string, error) {
	lits := make([]string, len(args))
	for k, a := range args {
		lit, err := goLiteral(a, ft.In(k))
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", k+1, err)
		}
		lits[k] = lit
	}
	call := name + "(" + strings.Join(lits, ", ") + ")"

	var b strings.Builder
	b.WriteString("package main\n\nimport (\n\t\"fmt\"\n\t\"math\"\n)\n\nvar _ = math.Pi\n\nvar ctFailure string\n\n")
	switch {
	case ft.NumOut() == 0:
		fmt.Fprintf(&b, "func ctInvoke() {\n\tdefer ctRecover()\n\t%s\n}\n", call)
	case ft.NumOut() == 2 && ft.Out(1).Implements(errorType):
		fmt.Fprintf(&b, "func ctInvoke() (out %s) {\n\tdefer ctRecover()\n\tv, err := %s\n\tif err != nil {\n\t\tctFailure = err.Error()\n\t}\n\treturn v\n}\n", ft.Out(0).String(), call)
	case ft.NumOut() == 1:
		fmt.Fprintf(&b, "func ctInvoke() (out %s) {\n\tdefer ctRecover()\n\treturn %s\n}\n", ft.Out(0).String(), call)
	default:
		return "", fmt.Errorf("%s returns %d values", name, ft.NumOut())
	}
	b.WriteString("\nfunc ctRecover() {\n\tif r := recover(); r != nil {\n\t\tctFailure = fmt.Sprint(r)\n\t}\n}\n")
	return b.String(), nil
}

func goLiteral(v model.Value, t reflect.Type) (string, error) {
	switch v.Kind() {
	case model.KindNull:
		return "nil", nil
	case model.KindInt:
		i, _ := v.Int()
		return strconv.FormatInt(i, 10), nil
	case model.KindFloat:
		f, _ := v.Float()
		switch {
		case math.IsNaN(f):
			return "math.NaN()", nil
		case math.IsInf(f, 0):
			return fmt.Sprintf("math.Inf(%d)", int(math.Copysign(1, f))), nil
		}
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if isIntegerKind(t.Kind()) && !strings.ContainsAny(s, ".eE") {
			return s, nil
		}
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s, nil
	case model.KindString:
		s, _ := v.Str()
		return strconv.Quote(s), nil
	case model.KindBool:
		b, _ := v.Bool()
		return strconv.FormatBool(b), nil
	case model.KindSeq, model.KindSet:
		return goCollection(v, t)
	case model.KindMap:
		if t.Kind() != reflect.Map {
			return "", fmt.Errorf("cannot pass a mapping as %s", t)
		}
		parts := make([]string, 0, v.Len())
		for _, e := range v.Entries() {
			key, err := goLiteral(model.String(e.Key), t.Key())
			if err != nil {
				return "", err
			}
			val, err := goLiteral(e.Value, t.Elem())
			if err != nil {
				return "", err
			}
			parts = append(parts, key+": "+val)
		}
		return t.String() + "{" + strings.Join(parts, ", ") + "}", nil
	}
	return "", fmt.Errorf("unsupported value %s", v)
}

func goCollection(v model.Value, t reflect.Type) (string, error) {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, 0, v.Len())
		for _, item := range v.Items() {
			lit, err := goLiteral(item, t.Elem())
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return t.String() + "{" + strings.Join(parts, ", ") + "}", nil
	case reflect.Map:
		// sets travel as map[T]bool or map[T]struct{}
		member := "true"
		if t.Elem().Kind() == reflect.Struct {
			member = "{}"
		}
		parts := make([]string, 0, v.Len())
		for _, item := range v.Items() {
			lit, err := goLiteral(item, t.Key())
			if err != nil {
				return "", err
			}
			parts = append(parts, lit+": "+member)
		}
		return t.String() + "{" + strings.Join(parts, ", ") + "}", nil
	}
	return "", fmt.Errorf("cannot pass a %s as %s", v.Kind(), t)
}

func isIntegerKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Uintptr
}

// fromGo converts a result produced by interpreted code.
func fromGo(rv reflect.Value) (model.Value, error) {
	if !rv.IsValid() {
		return model.Null(), nil
	}
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return model.Null(), nil
		}
		return fromGo(rv.Elem())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return model.Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return model.Float(float64(u)), nil
		}
		return model.Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return model.Float(rv.Float()), nil
	case reflect.String:
		return model.String(rv.String()), nil
	case reflect.Bool:
		return model.Bool(rv.Bool()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return model.Seq(), nil
		}
		items := make([]model.Value, rv.Len())
		for k := range items {
			v, err := fromGo(rv.Index(k))
			if err != nil {
				return model.Value{}, err
			}
			items[k] = v
		}
		return model.Seq(items...), nil
	case reflect.Map:
		return fromGoMap(rv)
	}
	return model.Value{}, errors.New("unsupported result type " + rv.Type().String())
}

func fromGoMap(rv reflect.Value) (model.Value, error) {
	keys := rv.MapKeys()
	elem := rv.Type().Elem()
	if elem.Kind() == reflect.Bool || (elem.Kind() == reflect.Struct && elem.NumField() == 0) {
		items := make([]model.Value, 0, len(keys))
		for _, k := range keys {
			if elem.Kind() == reflect.Bool && !rv.MapIndex(k).Bool() {
				continue
			}
			v, err := fromGo(k)
			if err != nil {
				return model.Value{}, err
			}
			items = append(items, v)
		}
		return model.Set(items...), nil
	}
	entries := make([]model.Entry, 0, len(keys))
	for _, k := range keys {
		kv, err := fromGo(k)
		if err != nil {
			return model.Value{}, err
		}
		key := kv.String()
		if s, ok := kv.Str(); ok {
			key = s
		}
		v, err := fromGo(rv.MapIndex(k))
		if err != nil {
			return model.Value{}, err
		}
		entries = append(entries, model.Entry{Key: key, Value: v})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].Key < entries[b].Key })
	return model.Map(entries...), nil
}
