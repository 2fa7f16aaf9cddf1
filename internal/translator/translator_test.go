package translator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
	"code-translator/internal/signature"
)

const gcdPy = `def gcd(a, b):
    while b:
        a, b = b, a % b
    return abs(a)
`

const gcdC = "```c\nlong long gcd(long long a, long long b) {\n    while (b) { long long t = a % b; a = b; b = t; }\n    return a < 0 ? -a : a;\n}\n```"

type fakeAI struct {
	mu     sync.Mutex
	reply  string
	err    error
	tokens int
	calls  int
	last   []adapter.Message
}

func (f *fakeAI) ListModels(context.Context) ([]string, error) { return []string{"fake"}, nil }
func (f *fakeAI) GetModelInfo(string) (adapter.ModelInfo, error) {
	return adapter.ModelInfo{Name: "fake"}, nil
}
func (f *fakeAI) CountTokens(context.Context, string, []adapter.Message) (int, error) {
	return f.tokens, nil
}
func (f *fakeAI) Chat(ctx context.Context, m string, msgs []adapter.Message) (string, error) {
	r, _, err := f.ChatWithUsage(ctx, m, msgs)
	return r, err
}
func (f *fakeAI) ChatWithUsage(_ context.Context, _ string, msgs []adapter.Message) (string, adapter.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = msgs
	return f.reply, adapter.Usage{}, f.err
}

type scalarsOnlyC struct{}

func (scalarsOnlyC) CanMarshal(lang model.Language, t model.TypeTag, _ bool) bool {
	return lang != model.LangC || t.Scalar() || t == model.TypeUnknown
}

func newRegistry(ai *fakeAI) *Registry {
	r := NewRegistry(signature.New(nil), scalarsOnlyC{}, nil)
	r.Register(Any, Any, NewLLM(ai, "fake", "fake", 0, nil))
	for _, l := range model.Languages {
		r.Register(l, l, Identity{})
	}
	return r
}

func request(src, dst model.Language, fn, code string) adapter.TranslationRequest {
	return adapter.TranslationRequest{SourceLang: src, TargetLang: dst, FunctionName: fn, Code: code}
}

func TestRegistryTranslatesWithLLM(t *testing.T) {
	ai := &fakeAI{reply: gcdC}
	r := newRegistry(ai)

	code, err := r.Translate(context.Background(), request(model.LangPython, model.LangC, "gcd", gcdPy))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(code, "long long gcd("), code)
	require.NotContains(t, code, "```")

	require.Len(t, ai.last, 2)
	require.Contains(t, ai.last[1].Content, "long long gcd(long long a, long long b)")
	require.Contains(t, ai.last[1].Content, "Source (python):")
}

func TestRegistryIdentityForSameLanguage(t *testing.T) {
	ai := &fakeAI{}
	r := newRegistry(ai)
	code, err := r.Translate(context.Background(), request(model.LangPython, model.LangPython, "gcd", gcdPy))
	require.NoError(t, err)
	require.Equal(t, gcdPy, code)
	require.Zero(t, ai.calls)
}

func TestRegistryRejections(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		code    string
		dst     model.Language
		want    error
		noCalls bool
	}{
		{"backend refuses", "UNSUPPORTED: generators", gcdPy, model.LangC, domain.ErrUnsupportedConstruct, false},
		{"wrong name", "```c\nlong long lcm(long long a, long long b) { return a; }\n```", gcdPy, model.LangC, domain.ErrTranslationFailed, false},
		{"wrong arity", "long long gcd(long long a) { return a; }", gcdPy, model.LangC, domain.ErrTranslationFailed, false},
		{"empty reply", "  ", gcdPy, model.LangC, domain.ErrTranslationFailed, false},
		{"generator source", "", "def gcd(a, b):\n    yield a\n", model.LangC, domain.ErrUnsupportedConstruct, true},
		{"sequence into c", "", "def gcd(xs: list, b: int) -> int:\n    return b\n", model.LangC, domain.ErrUnsupportedConstruct, true},
		{"variadic source", "", "def gcd(*args):\n    return 0\n", model.LangJava, domain.ErrUnsupportedConstruct, true},
		{"parameter type changed", "long long gcd(double a, long long b) { return b; }", "def gcd(a: int, b: int) -> int:\n    return b\n", model.LangC, domain.ErrTranslationFailed, false},
		{"return type changed", "```java\nclass Solution {\n    static String gcd(long a, long b) { return \"\"; }\n}\n```", "def gcd(a: int, b: int) -> int:\n    return b\n", model.LangJava, domain.ErrTranslationFailed, false},
		{"missing source function", "", "def lcm(a, b):\n    return a\n", model.LangC, domain.ErrSignatureNotFound, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &fakeAI{reply: tt.reply}
			_, err := newRegistry(ai).Translate(context.Background(), request(model.LangPython, tt.dst, "gcd", tt.code))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.noCalls && ai.calls != 0 {
				t.Errorf("backend should not be called, got %d calls", ai.calls)
			}
		})
	}
}

func TestRegistryAcceptsCompatibleTypes(t *testing.T) {
	tests := []struct {
		name, src, reply string
	}{
		{"typed both sides", "def gcd(a: int, b: int) -> int:\n    return b\n", "long long gcd(long long a, long long b) { return b; }"},
		{"untyped source", gcdPy, "long long gcd(double a, long long b) { return b; }"},
		{"c int for bool", "def gcd(a: int, b: bool) -> bool:\n    return b\n", "int gcd(long long a, int b) { return b; }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRegistry(&fakeAI{reply: tt.reply}).Translate(context.Background(), request(model.LangPython, model.LangC, "gcd", tt.src))
			require.NoError(t, err)
		})
	}
}

func TestRegistryNoStrategy(t *testing.T) {
	r := NewRegistry(signature.New(nil), nil, nil)
	_, err := r.Translate(context.Background(), request(model.LangPython, model.LangC, "gcd", gcdPy))
	require.ErrorIs(t, err, domain.ErrUnsupportedLanguage)
}

func TestLLMBudget(t *testing.T) {
	ai := &fakeAI{reply: gcdC, tokens: 5000}
	r := NewRegistry(signature.New(nil), nil, nil)
	r.Register(Any, Any, NewLLM(ai, "fake", "fake", 100, nil))

	_, err := r.Translate(context.Background(), request(model.LangPython, model.LangC, "gcd", gcdPy))
	require.ErrorIs(t, err, domain.ErrSourceTooLarge)
	require.Zero(t, ai.calls)
}

func TestLLMPropagatesBackendErrors(t *testing.T) {
	ai := &fakeAI{err: domain.ErrBackendUnavailable}
	_, err := newRegistry(ai).Translate(context.Background(), request(model.LangPython, model.LangC, "gcd", gcdPy))
	require.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

type memCache struct {
	mu sync.Mutex
	m  map[string]string
}

func (c *memCache) Get(_ context.Context, k string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[k]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, k, v string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[k] = v
	return nil
}

func TestCachedStoresAcceptedTranslations(t *testing.T) {
	ai := &fakeAI{reply: gcdC}
	cache := &memCache{m: map[string]string{}}
	tr := NewCached(newRegistry(ai), cache, "fake", nil)
	req := request(model.LangPython, model.LangC, "gcd", gcdPy)

	first, err := tr.Translate(context.Background(), req)
	require.NoError(t, err)
	second, err := tr.Translate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, ai.calls)

	ai.reply = "UNSUPPORTED: x"
	_, err = tr.Translate(context.Background(), request(model.LangPython, model.LangJava, "gcd", gcdPy))
	require.ErrorIs(t, err, domain.ErrUnsupportedConstruct)
	require.Len(t, cache.m, 1)
}

func TestPostprocess(t *testing.T) {
	tests := []struct {
		name, in, code, construct string
		refused                   bool
	}{
		{"plain", "int f() { return 1; }", "int f() { return 1; }\n", "", false},
		{"fenced", "Here:\n```java\npublic static long f() { return 1; }\n```\nDone.", "public static long f() { return 1; }\n", "", false},
		{"unterminated", "```python\ndef f():\n    return 1", "def f():\n    return 1\n", "", false},
		{"sentinel", "UNSUPPORTED: pointer arithmetic", "", "pointer arithmetic", true},
		{"empty", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, construct, refused := Postprocess(tt.in)
			require.Equal(t, tt.code, code)
			require.Equal(t, tt.construct, construct)
			require.Equal(t, tt.refused, refused)
		})
	}
}

func TestRenderSignature(t *testing.T) {
	sig := model.Signature{
		Name:   "join",
		Params: []model.Param{{Name: "xs", Type: model.TypeSequence}, {Name: "sep", Type: model.TypeString}},
		Return: model.TypeString,
	}
	require.Equal(t, "def join(xs: list, sep: str) -> str", RenderSignature(model.LangPython, sig))
	require.Equal(t, "public static String join(java.util.List<Long> xs, String sep)", RenderSignature(model.LangJava, sig))
	require.Equal(t, "std::string join(std::vector<long long> xs, const std::string& sep)", RenderSignature(model.LangCPP, sig))
	require.Equal(t, "func join(xs []int64, sep string) string", RenderSignature(model.LangGo, sig))
}
