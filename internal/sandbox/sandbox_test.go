package sandbox

import (
	"context"
	"fmt"
	"math"
	"net"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"code-translator/internal/config"
	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
)

func TestMain(m *testing.M) {
	// Go programs run in this test binary re-executed under the runner name
	ServeGoRunner()
	os.Exit(m.Run())
}

func testConfig() config.SandboxConfig {
	return config.SandboxConfig{
		Isolation:      "process",
		Timeout:        3 * time.Second,
		CompileTimeout: 60 * time.Second,
		MemoryMB:       256,
		OutputLimit:    1 << 16,
		Python:         "python3",
		CC:             "gcc",
		CXX:            "g++",
		Javac:          "javac",
		Java:           "java",
	}
}

func requireTool(t *testing.T, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed", tool)
		}
	}
}

func intSig(name string, params ...string) model.Signature {
	s := model.Signature{Name: name, Return: model.TypeInteger}
	for _, p := range params {
		s.Params = append(s.Params, model.Param{Name: p, Type: model.TypeInteger})
	}
	return s
}

func kindOf(r *model.ExecutionResult) domain.Kind {
	if f := r.Failure(); f != nil {
		return f.Kind
	}
	return ""
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
		want string
		kind domain.Kind
	}{
		{"result", Outcome{Stdout: []byte("noise\n__CT_RESULT__ 6\n")}, "6", ""},
		{"float result", Outcome{Stdout: []byte("__CT_RESULT__ {\"__float__\":\"nan\"}\n")}, "NaN", ""},
		{"exception", Outcome{Stdout: []byte("__CT_ERROR__ ZeroDivisionError: division by zero\n")}, "", domain.KindRuntimeFailure},
		{"python memory", Outcome{Stdout: []byte("__CT_ERROR__ MemoryError: \n")}, "", domain.KindResourceExceeded},
		{"timeout", Outcome{TimedOut: true}, "", domain.KindExecutionTimeout},
		{"output flood", Outcome{Truncated: true, Stdout: []byte("__CT_RESULT__ 1\n")}, "", domain.KindResourceExceeded},
		{"killed", Outcome{ExitCode: 137}, "", domain.KindResourceExceeded},
		{"bad alloc on stderr", Outcome{ExitCode: 134, Stderr: []byte("terminate called after throwing an instance of 'std::bad_alloc'")}, "", domain.KindResourceExceeded},
		{"crash", Outcome{ExitCode: 139, Stderr: []byte("Segmentation fault")}, "", domain.KindRuntimeFailure},
		{"silent", Outcome{}, "", domain.KindRuntimeFailure},
		{"garbage result", Outcome{Stdout: []byte("__CT_RESULT__ {oops\n")}, "", domain.KindRuntimeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classify(tt.out, time.Second, 1024)
			require.Equal(t, tt.kind, kindOf(res), res.String())
			if tt.kind == "" {
				require.Equal(t, tt.want, res.String())
			}
		})
	}
}

func TestCappedBuffer(t *testing.T) {
	fired := 0
	b := newCappedBuffer(4, func() { fired++ })
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	require.Equal(t, 3, n)
	_, _ = b.Write([]byte("def"))
	_, _ = b.Write([]byte("ghi"))
	require.Equal(t, "abcd", string(b.Bytes()))
	require.True(t, b.Overflowed())
	require.Equal(t, 1, fired)
}

func TestArgvValue(t *testing.T) {
	for in, want := range map[string]model.Value{
		"12":   model.Int(12),
		"-4":   model.Int(-4),
		"2.5":  model.Float(2.5),
		"nan":  model.Float(math.NaN()),
		"-inf": model.Float(math.Inf(-1)),
		"1":    model.Bool(true),
		"a b":  model.String("a b"),
	} {
		got, err := argvValue(want)
		require.NoError(t, err)
		require.Equal(t, in, got)
	}
	_, err := argvValue(model.Seq(model.Int(1)))
	require.Error(t, err)
}

func TestCanMarshal(t *testing.T) {
	e := NewWithIsolator(testConfig(), NewProcessIsolator(1024), nil)
	require.True(t, e.CanMarshal(model.LangPython, model.TypeMapping, false))
	require.True(t, e.CanMarshal(model.LangC, model.TypeUnknown, false))
	require.False(t, e.CanMarshal(model.LangC, model.TypeSequence, false))
	require.False(t, e.CanMarshal(model.LangC, model.TypeSet, true))
	require.True(t, e.CanMarshal(model.LangCPP, model.TypeSet, true))
	require.False(t, e.CanMarshal(model.LangJava, model.TypeSequence, false))
}

const goGCD = `func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}`

func TestGoRuntime(t *testing.T) {
	e := NewWithIsolator(testConfig(), NewProcessIsolator(1024), nil)
	defer e.Close()
	ctx := context.Background()

	t.Run("gcd", func(t *testing.T) {
		p, err := e.Prepare(ctx, model.LangGo, goGCD, intSig("gcd", "a", "b"))
		require.NoError(t, err)
		defer p.Close()
		for _, c := range []struct{ a, b, want int64 }{{12, 18, 6}, {0, 5, 5}, {-4, 6, 2}} {
			res := p.Invoke(ctx, model.Ints(c.a, c.b))
			v, ok := res.Value()
			require.True(t, ok, res.String())
			require.True(t, v.Identical(model.Int(c.want)), v.String())
		}
	})

	t.Run("panic is a runtime failure", func(t *testing.T) {
		res, err := e.Execute(ctx, model.LangGo, "func div(a, b int) int { return a / b }", intSig("div", "a", "b"), model.Ints(1, 0))
		require.NoError(t, err)
		require.Equal(t, domain.KindRuntimeFailure, kindOf(res))
	})

	t.Run("trailing error", func(t *testing.T) {
		src := "import \"errors\"\n\nfunc f(a int) (int, error) {\n\tif a < 0 {\n\t\treturn 0, errors.New(\"negative\")\n\t}\n\treturn a, nil\n}"
		res, err := e.Execute(ctx, model.LangGo, src, intSig("f", "a"), model.Ints(-1))
		require.NoError(t, err)
		require.Equal(t, "RuntimeFailure: negative", res.String())
	})

	t.Run("set result", func(t *testing.T) {
		src := "func uniq(xs []int64) map[int64]bool {\n\tout := map[int64]bool{}\n\tfor _, x := range xs {\n\t\tout[x] = true\n\t}\n\treturn out\n}"
		sig := model.Signature{Name: "uniq", Params: []model.Param{{Name: "xs", Type: model.TypeSequence}}, Return: model.TypeSet}
		res, err := e.Execute(ctx, model.LangGo, src, sig, []model.Value{model.Seq(model.Ints(3, 1, 3)...)})
		require.NoError(t, err)
		v, ok := res.Value()
		require.True(t, ok, res.String())
		require.Equal(t, model.KindSet, v.Kind())
		require.Equal(t, 2, v.Len())
	})

	t.Run("forbidden import", func(t *testing.T) {
		src := "import \"os\"\n\nfunc f() int { os.Exit(1); return 0 }"
		res, err := e.Execute(ctx, model.LangGo, src, intSig("f"), nil)
		require.NoError(t, err)
		require.Equal(t, domain.KindCompileFailure, kindOf(res))
	})

	t.Run("syntax error", func(t *testing.T) {
		res, err := e.Execute(ctx, model.LangGo, "func f( int {", intSig("f"), nil)
		require.NoError(t, err)
		require.Equal(t, domain.KindCompileFailure, kindOf(res))
	})

	t.Run("timeout", func(t *testing.T) {
		cfg := testConfig()
		cfg.Timeout = 500 * time.Millisecond
		fast := NewWithIsolator(cfg, NewProcessIsolator(1024), nil)
		defer fast.Close()
		res, err := fast.Execute(ctx, model.LangGo, "func spin() int {\n\tfor {\n\t}\n}", intSig("spin"), nil)
		require.NoError(t, err)
		require.Equal(t, domain.KindExecutionTimeout, kindOf(res))
	})

	t.Run("looping initializer is bounded", func(t *testing.T) {
		cfg := testConfig()
		cfg.Timeout = time.Second
		cfg.CompileTimeout = time.Second
		fast := NewWithIsolator(cfg, NewProcessIsolator(1024), nil)
		defer fast.Close()

		src := "var spin = func() int {\n\tfor {\n\t}\n}()\n\nfunc f(a int) int { return a }"
		start := time.Now()
		p, err := fast.Prepare(ctx, model.LangGo, src, intSig("f", "a"))
		require.NoError(t, err)
		defer p.Close()
		res := p.Invoke(ctx, model.Ints(1))
		require.Less(t, time.Since(start), 6*time.Second)
		require.Equal(t, domain.KindCompileFailure, kindOf(res), res.String())
	})

	t.Run("heap ceiling", func(t *testing.T) {
		cfg := testConfig()
		cfg.MemoryMB = 64
		small := NewWithIsolator(cfg, NewProcessIsolator(1024), nil)
		defer small.Close()

		src := "func grow() int {\n\tvar xs [][]int64\n\tfor {\n\t\txs = append(xs, make([]int64, 1<<20))\n\t}\n}"
		res, err := small.Execute(ctx, model.LangGo, src, intSig("grow"), nil)
		require.NoError(t, err)
		require.Equal(t, domain.KindResourceExceeded, kindOf(res), res.String())
	})
}

const pyGCD = `def gcd(a, b):
    while b:
        a, b = b, a % b
    return abs(a)
`

func TestPythonRuntime(t *testing.T) {
	requireTool(t, "python3")
	e := NewWithIsolator(testConfig(), NewProcessIsolator(1<<16), nil)
	ctx := context.Background()

	p, err := e.Prepare(ctx, model.LangPython, pyGCD, intSig("gcd", "a", "b"))
	require.NoError(t, err)
	defer p.Close()
	res := p.Invoke(ctx, model.Ints(12, 18))
	require.Equal(t, "6", res.String())

	t.Run("exception", func(t *testing.T) {
		res, err := e.Execute(ctx, model.LangPython, "def f(a):\n    return 1 // a\n", intSig("f", "a"), model.Ints(0))
		require.NoError(t, err)
		require.Equal(t, domain.KindRuntimeFailure, kindOf(res))
		require.Contains(t, res.String(), "ZeroDivisionError")
	})

	t.Run("collections round trip", func(t *testing.T) {
		src := "def f(xs, m):\n    return {'n': len(xs), 's': set(xs), 'm': m, 'x': float('inf')}\n"
		sig := model.Signature{Name: "f", Params: []model.Param{{Name: "xs", Type: model.TypeSequence}, {Name: "m", Type: model.TypeMapping}}}
		args := []model.Value{model.Seq(model.Ints(1, 1, 2)...), model.Map(model.Entry{Key: "k", Value: model.Float(0.5)})}
		res, err := e.Execute(ctx, model.LangPython, src, sig, args)
		require.NoError(t, err)
		v, ok := res.Value()
		require.True(t, ok, res.String())
		s, _ := v.Lookup("s")
		require.Equal(t, model.KindSet, s.Kind())
		x, _ := v.Lookup("x")
		f, _ := x.Float()
		require.True(t, math.IsInf(f, 1))
	})

	t.Run("syntax error", func(t *testing.T) {
		res, err := e.Execute(ctx, model.LangPython, "def f(:\n", intSig("f"), nil)
		require.NoError(t, err)
		require.Equal(t, domain.KindCompileFailure, kindOf(res))
	})

	t.Run("timeout keeps executor usable", func(t *testing.T) {
		cfg := testConfig()
		cfg.Timeout = 300 * time.Millisecond
		fast := NewWithIsolator(cfg, NewProcessIsolator(1<<16), nil)
		res, err := fast.Execute(ctx, model.LangPython, "def f():\n    while True:\n        pass\n", intSig("f"), nil)
		require.NoError(t, err)
		require.Equal(t, domain.KindExecutionTimeout, kindOf(res))

		res = p.Invoke(ctx, model.Ints(0, 5))
		require.Equal(t, "5", res.String())
	})

	t.Run("output flood", func(t *testing.T) {
		res, err := e.Execute(ctx, model.LangPython, "def f():\n    print('x' * 200000)\n    return 1\n", intSig("f"), nil)
		require.NoError(t, err)
		require.Equal(t, domain.KindResourceExceeded, kindOf(res))
	})
}

func TestCRuntime(t *testing.T) {
	requireTool(t, "gcc")
	e := NewWithIsolator(testConfig(), NewProcessIsolator(1<<16), nil)
	ctx := context.Background()

	src := "long long gcd(long long a, long long b) {\n    while (b) { long long t = a % b; a = b; b = t; }\n    return a < 0 ? -a : a;\n}\n"
	p, err := e.Prepare(ctx, model.LangC, src, intSig("gcd", "a", "b"))
	require.NoError(t, err)
	defer p.Close()
	for args, want := range map[[2]int64]string{{0, 5}: "5", {5, 0}: "5", {-4, 6}: "2", {12, 18}: "6"} {
		require.Equal(t, want, p.Invoke(ctx, model.Ints(args[0], args[1])).String())
	}

	t.Run("double and string results", func(t *testing.T) {
		res, err := e.Execute(ctx, model.LangC, "double half(long long a) { return a / 2.0; }", intSig("half", "a"), model.Ints(4))
		require.NoError(t, err)
		require.Equal(t, "2.0", res.String())

		sig := model.Signature{Name: "greet", Params: []model.Param{{Name: "s", Type: model.TypeString}}, Return: model.TypeString}
		res, err = e.Execute(ctx, model.LangC, "const char* greet(const char* s) { return s; }", sig, []model.Value{model.String(`a"b`)})
		require.NoError(t, err)
		v, ok := res.Value()
		require.True(t, ok, res.String())
		s, _ := v.Str()
		require.Equal(t, `a"b`, s)
	})

	t.Run("compile failure", func(t *testing.T) {
		res, err := e.Execute(ctx, model.LangC, "long long gcd(long long a, long long b) { return a +; }", intSig("gcd", "a", "b"), model.Ints(1, 2))
		require.NoError(t, err)
		require.Equal(t, domain.KindCompileFailure, kindOf(res))
	})

	t.Run("sequence parameters are refused", func(t *testing.T) {
		sig := model.Signature{Name: "sum", Params: []model.Param{{Name: "xs", Type: model.TypeSequence}}}
		_, err := e.Prepare(ctx, model.LangC, "long long sum(long long* xs) { return 0; }", sig)
		require.Error(t, err)
	})
}

func TestCPPRuntimeSetResult(t *testing.T) {
	requireTool(t, "g++")
	e := NewWithIsolator(testConfig(), NewProcessIsolator(1<<16), nil)
	src := "std::set<long long> divisors(long long n) {\n    std::set<long long> out;\n    for (long long i = 1; i <= n; ++i) if (n % i == 0) out.insert(i);\n    return out;\n}\n"
	res, err := e.Execute(context.Background(), model.LangCPP, src, intSig("divisors", "n"), model.Ints(6))
	require.NoError(t, err)
	v, ok := res.Value()
	require.True(t, ok, res.String())
	require.Equal(t, model.KindSet, v.Kind())
	require.Equal(t, 4, v.Len())
}

func TestJavaRuntime(t *testing.T) {
	requireTool(t, "javac", "java")
	e := NewWithIsolator(testConfig(), NewProcessIsolator(1<<16), nil)
	src := "import java.util.*;\npublic static long gcd(long a, long b) {\n    while (b != 0) { long t = a % b; a = b; b = t; }\n    return Math.abs(a);\n}\n"
	res, err := e.Execute(context.Background(), model.LangJava, src, intSig("gcd", "a", "b"), model.Ints(12, 18))
	require.NoError(t, err)
	require.Equal(t, "6", res.String())
}

func TestProcessIsolatorBlocksNetwork(t *testing.T) {
	requireTool(t, "python3")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	port := ln.Addr().(*net.TCPAddr).Port
	src := "import socket\n\ndef dial(port):\n    socket.create_connection((\"127.0.0.1\", port), timeout=1).close()\n    return 1\n"
	ctx := context.Background()

	open := NewWithIsolator(testConfig(), NewProcessIsolator(1<<16), nil)
	res, err := open.Execute(ctx, model.LangPython, src, intSig("dial", "port"), model.Ints(int64(port)))
	require.NoError(t, err)
	require.Equal(t, "1", res.String(), "listener must be reachable without isolation")

	iso := NewProcessIsolator(1 << 16)
	if err := iso.IsolateNetwork(ctx); err != nil {
		t.Skipf("network namespaces unavailable: %v", err)
	}
	closed := NewWithIsolator(testConfig(), iso, nil)
	res, err = closed.Execute(ctx, model.LangPython, src, intSig("dial", "port"), model.Ints(int64(port)))
	require.NoError(t, err)
	require.Equal(t, domain.KindRuntimeFailure, kindOf(res), fmt.Sprintf("port %d: %s", port, res))
}

func TestProcessIsolatorTimeoutLeavesNothingBehind(t *testing.T) {
	requireTool(t, "sleep")
	defer goleak.VerifyNone(t)

	iso := NewProcessIsolator(1024)
	out, err := iso.Run(context.Background(), Cmd{Dir: t.TempDir(), Argv: []string{"sleep", "5"}, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)
	require.True(t, out.TimedOut)
	require.Less(t, out.Duration, 3*time.Second)
}

func TestUnknownLanguage(t *testing.T) {
	e := NewWithIsolator(testConfig(), NewProcessIsolator(1024), nil)
	_, err := e.Prepare(context.Background(), model.Language("cobol"), "", intSig("f"))
	require.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
	require.True(t, strings.Contains(err.Error(), "cobol"))
}

func TestDockerHostConfigLocksDownContainer(t *testing.T) {
	hc := dockerHostConfig(Cmd{Dir: "/srv/jobs/1", MemoryMB: 128})

	require.Equal(t, "none", string(hc.NetworkMode))
	require.True(t, hc.ReadonlyRootfs)
	require.Equal(t, []string{"/srv/jobs/1:/work"}, hc.Binds)
	require.Contains(t, hc.Tmpfs, "/tmp")
	require.Equal(t, []string{"ALL"}, []string(hc.CapDrop))
	require.Contains(t, hc.SecurityOpt, "no-new-privileges")
	require.Equal(t, int64(128<<20), hc.Resources.Memory)
	require.Equal(t, hc.Resources.Memory, hc.Resources.MemorySwap)
	require.NotNil(t, hc.Resources.PidsLimit)
}
