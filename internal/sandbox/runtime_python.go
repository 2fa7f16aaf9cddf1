package sandbox

import (
	"fmt"
	"strconv"

	"code-translator/internal/domain/model"
)

// The runner reads canonical JSON arguments from stdin and prints one
// marker line. Sets and non-finite floats use the canonical wrappers.
const pythonRunner = `import json, math, os, sys
sys.path.insert(0, os.path.dirname(os.path.abspath(__file__)))
sys.setrecursionlimit(10000)

NAME = %s
RECEIVER = %s


def _dec(v):
    if isinstance(v, list):
        return [_dec(x) for x in v]
    if isinstance(v, dict):
        if len(v) == 1 and "__set__" in v:
            return set(_dec(x) for x in v["__set__"])
        if len(v) == 1 and "__float__" in v:
            return float(v["__float__"])
        return {k: _dec(x) for k, x in v.items()}
    return v


def _enc(v):
    if v is None or isinstance(v, (bool, int, str)):
        return v
    if isinstance(v, float):
        if math.isnan(v):
            return {"__float__": "nan"}
        if math.isinf(v):
            return {"__float__": "inf" if v > 0 else "-inf"}
        return v
    if isinstance(v, (set, frozenset)):
        return {"__set__": [_enc(x) for x in v]}
    if isinstance(v, dict):
        return {str(k): _enc(x) for k, x in v.items()}
    if isinstance(v, (list, tuple, range)):
        return [_enc(x) for x in v]
    return str(v)


def _target():
    import solution
    if not RECEIVER:
        return getattr(solution, NAME)
    cls = getattr(solution, RECEIVER)
    if isinstance(cls.__dict__.get(NAME), (staticmethod, classmethod)):
        return getattr(cls, NAME)
    return getattr(cls(), NAME)


def _main():
    args = _dec(json.loads(sys.stdin.read() or "[]"))
    try:
        line = json.dumps(_enc(_target()(*args)))
    except MemoryError as e:
        print("__CT_ERROR__ MemoryError: %%s" %% e, flush=True)
        return
    except BaseException as e:
        print("__CT_ERROR__ %%s: %%s" %% (type(e).__name__, e), flush=True)
        return
    print("__CT_RESULT__ " + line, flush=True)


_main()
`

type pythonRuntime struct{ bin string }

func (r pythonRuntime) tools() []string    { return []string{r.bin} }
func (r pythonRuntime) memoryByFlag() bool { return false }

func (r pythonRuntime) sources(code string, sig model.Signature) (map[string]string, error) {
	return map[string]string{
		"solution.py": code,
		"runner.py":   fmt.Sprintf(pythonRunner, strconv.Quote(sig.Name), strconv.Quote(sig.Receiver)),
	}, nil
}

// compile byte-compiles the solution so syntax errors surface as compile failures.
func (r pythonRuntime) compile(model.Signature, []string) [][]string {
	return [][]string{{r.bin, "-I", "-m", "py_compile", "solution.py"}}
}

func (r pythonRuntime) invocation(_ model.Signature, args []model.Value) ([]string, []byte, error) {
	return []string{r.bin, "-I", "-B", "runner.py"}, model.CanonicalArgs(args), nil
}
