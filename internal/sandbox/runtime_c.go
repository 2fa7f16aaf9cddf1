package sandbox

import (
	"fmt"
	"strings"

	"code-translator/internal/domain/model"
)

const cPrelude = `#include <ctype.h>
#include <limits.h>
#include <math.h>
#include <stdbool.h>
#include <stdint.h>
#include <stdio.h>
#include <stdlib.h>
#include <string.h>
#line 1 "solution.c"
`

const cHarness = `
#line 1 "harness.c"
static void ct_emit_ll(long long v) { printf("__CT_RESULT__ %%lld\n", v); }
static void ct_emit_ull(unsigned long long v) { printf("__CT_RESULT__ %%llu\n", v); }
static void ct_emit_bool(bool v) { printf("__CT_RESULT__ %%s\n", v ? "true" : "false"); }
static void ct_emit_double(double v) {
	char buf[64];
	if (isnan(v)) { puts("__CT_RESULT__ {\"__float__\":\"nan\"}"); return; }
	if (isinf(v)) { printf("__CT_RESULT__ {\"__float__\":\"%%s\"}\n", v > 0 ? "inf" : "-inf"); return; }
	snprintf(buf, sizeof buf, "%%.17g", v);
	if (!strpbrk(buf, ".eE")) strcat(buf, ".0");
	printf("__CT_RESULT__ %%s\n", buf);
}
static void ct_emit_str(const char *s) {
	if (!s) { puts("__CT_RESULT__ null"); return; }
	fputs("__CT_RESULT__ \"", stdout);
	for (; *s; s++) {
		unsigned char c = (unsigned char)*s;
		if (c == '"' || c == '\\') printf("\\%%c", c);
		else if (c < 0x20) printf("\\u%%04x", c);
		else putchar(c);
	}
	puts("\"");
}
#define CT_EMIT(x) _Generic((x), \
	char *: ct_emit_str, const char *: ct_emit_str, \
	float: ct_emit_double, double: ct_emit_double, long double: ct_emit_double, \
	bool: ct_emit_bool, \
	unsigned int: ct_emit_ull, unsigned long: ct_emit_ull, unsigned long long: ct_emit_ull, \
	default: ct_emit_ll)(x)

int main(int argc, char **argv) {
	if (argc != %d) { printf("__CT_ERROR__ expected %d arguments\n"); return 0; }
	CT_EMIT(%s(%s));
	fflush(stdout);
	return 0;
}
`

// cArg converts argv[i] for a parameter of type t.
func cArg(t model.TypeTag, i int, cpp bool) string {
	a := fmt.Sprintf("argv[%d]", i+1)
	switch t {
	case model.TypeFloat:
		return "strtod(" + a + ", NULL)"
	case model.TypeString:
		if cpp {
			return "std::string(" + a + ")"
		}
		return a
	case model.TypeBoolean:
		return "(" + a + "[0] == '1')"
	}
	return "strtoll(" + a + ", NULL, 10)"
}

func callArgs(sig model.Signature, cpp bool) string {
	parts := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		parts[i] = cArg(p.Type, i, cpp)
	}
	return strings.Join(parts, ", ")
}

func checkScalarParams(lang model.Language, sig model.Signature) error {
	for _, p := range sig.Params {
		if !p.Type.Scalar() && p.Type != model.TypeUnknown {
			return fmt.Errorf("%s runtime cannot receive %s parameter %q", lang, p.Type, p.Name)
		}
	}
	return nil
}

type cRuntime struct{ cc string }

func (r cRuntime) tools() []string    { return []string{r.cc} }
func (r cRuntime) memoryByFlag() bool { return false }

func (r cRuntime) sources(code string, sig model.Signature) (map[string]string, error) {
	if err := checkScalarParams(model.LangC, sig); err != nil {
		return nil, err
	}
	n := sig.Arity()
	return map[string]string{
		"prog.c": cPrelude + code + fmt.Sprintf(cHarness, n+1, n, sig.Name, callArgs(sig, false)),
	}, nil
}

func (r cRuntime) compile(model.Signature, []string) [][]string {
	return [][]string{{r.cc, "-std=c11", "-O2", "-w", "-o", "prog", "prog.c", "-lm"}}
}

func (r cRuntime) invocation(_ model.Signature, args []model.Value) ([]string, []byte, error) {
	vals, err := argvValues(args)
	if err != nil {
		return nil, nil, err
	}
	return append([]string{"./prog"}, vals...), nil, nil
}

const cppPrelude = `#include <algorithm>
#include <array>
#include <climits>
#include <cmath>
#include <cstdint>
#include <cstdio>
#include <cstdlib>
#include <cstring>
#include <deque>
#include <functional>
#include <iostream>
#include <limits>
#include <list>
#include <map>
#include <new>
#include <numeric>
#include <set>
#include <sstream>
#include <stdexcept>
#include <string>
#include <unordered_map>
#include <unordered_set>
#include <utility>
#include <vector>
#line 1 "solution.cpp"
`

// Overloads are declared before their definitions so containers of
// containers resolve.
const cppHarness = `
#line 1 "harness.cpp"
namespace ct {
inline void str(std::ostream& o, const std::string& s) {
	o << '"';
	for (unsigned char c : s) {
		if (c == '"' || c == '\\') o << '\\' << c;
		else if (c < 0x20) { char b[8]; std::snprintf(b, sizeof b, "\\u%%04x", c); o << b; }
		else o << c;
	}
	o << '"';
}
inline void emit(std::ostream& o, bool v) { o << (v ? "true" : "false"); }
inline void emit(std::ostream& o, char c) { str(o, std::string(1, c)); }
inline void emit(std::ostream& o, const char* s) { if (s) str(o, s); else o << "null"; }
inline void emit(std::ostream& o, const std::string& s) { str(o, s); }
template <typename T> typename std::enable_if<std::is_arithmetic<T>::value>::type emit(std::ostream& o, T v);
template <typename T, typename A> void emit(std::ostream& o, const std::vector<T, A>& v);
template <typename T, std::size_t N> void emit(std::ostream& o, const std::array<T, N>& v);
template <typename T, typename A> void emit(std::ostream& o, const std::deque<T, A>& v);
template <typename T, typename A> void emit(std::ostream& o, const std::list<T, A>& v);
template <typename T, typename C, typename A> void emit(std::ostream& o, const std::set<T, C, A>& v);
template <typename T, typename H, typename E, typename A> void emit(std::ostream& o, const std::unordered_set<T, H, E, A>& v);
template <typename K, typename V, typename C, typename A> void emit(std::ostream& o, const std::map<K, V, C, A>& v);
template <typename K, typename V, typename H, typename E, typename A> void emit(std::ostream& o, const std::unordered_map<K, V, H, E, A>& v);

template <typename T> typename std::enable_if<std::is_arithmetic<T>::value>::type emit(std::ostream& o, T v) {
	if constexpr (std::is_floating_point<T>::value) {
		double d = static_cast<double>(v);
		if (std::isnan(d)) { o << "{\"__float__\":\"nan\"}"; return; }
		if (std::isinf(d)) { o << (d > 0 ? "{\"__float__\":\"inf\"}" : "{\"__float__\":\"-inf\"}"); return; }
		char b[64];
		std::snprintf(b, sizeof b, "%%.17g", d);
		std::string s(b);
		if (s.find_first_of(".eE") == std::string::npos) s += ".0";
		o << s;
	} else if constexpr (std::is_unsigned<T>::value) {
		o << static_cast<unsigned long long>(v);
	} else {
		o << static_cast<long long>(v);
	}
}
template <typename It> void seq(std::ostream& o, It b, It e) {
	o << '[';
	for (It i = b; i != e; ++i) { if (i != b) o << ','; emit(o, *i); }
	o << ']';
}
template <typename T> std::string key(const T& k) {
	std::ostringstream o;
	if constexpr (std::is_convertible<T, std::string>::value) o << std::string(k);
	else emit(o, k);
	return o.str();
}
template <typename It> void obj(std::ostream& o, It b, It e) {
	o << '{';
	for (It i = b; i != e; ++i) { if (i != b) o << ','; str(o, key(i->first)); o << ':'; emit(o, i->second); }
	o << '}';
}
template <typename T, typename A> void emit(std::ostream& o, const std::vector<T, A>& v) {
	o << '[';
	for (std::size_t i = 0; i < v.size(); ++i) { if (i) o << ','; emit(o, static_cast<T>(v[i])); }
	o << ']';
}
template <typename T, std::size_t N> void emit(std::ostream& o, const std::array<T, N>& v) { seq(o, v.begin(), v.end()); }
template <typename T, typename A> void emit(std::ostream& o, const std::deque<T, A>& v) { seq(o, v.begin(), v.end()); }
template <typename T, typename A> void emit(std::ostream& o, const std::list<T, A>& v) { seq(o, v.begin(), v.end()); }
template <typename T, typename C, typename A> void emit(std::ostream& o, const std::set<T, C, A>& v) {
	o << "{\"__set__\":"; seq(o, v.begin(), v.end()); o << '}';
}
template <typename T, typename H, typename E, typename A> void emit(std::ostream& o, const std::unordered_set<T, H, E, A>& v) {
	o << "{\"__set__\":"; seq(o, v.begin(), v.end()); o << '}';
}
template <typename K, typename V, typename C, typename A> void emit(std::ostream& o, const std::map<K, V, C, A>& v) { obj(o, v.begin(), v.end()); }
template <typename K, typename V, typename H, typename E, typename A> void emit(std::ostream& o, const std::unordered_map<K, V, H, E, A>& v) { obj(o, v.begin(), v.end()); }
} // namespace ct

int main(int argc, char** argv) {
	if (argc != %d) { std::cout << "__CT_ERROR__ expected %d arguments" << std::endl; return 0; }
	try {
		std::ostringstream out;
		ct::emit(out, %s(%s));
		std::cout << "__CT_RESULT__ " << out.str() << std::endl;
	} catch (const std::bad_alloc& e) {
		std::cout << "__CT_ERROR__ std::bad_alloc: " << e.what() << std::endl;
	} catch (const std::exception& e) {
		std::cout << "__CT_ERROR__ " << e.what() << std::endl;
	} catch (...) {
		std::cout << "__CT_ERROR__ unknown exception" << std::endl;
	}
	return 0;
}
`

type cppRuntime struct{ cxx string }

func (r cppRuntime) tools() []string    { return []string{r.cxx} }
func (r cppRuntime) memoryByFlag() bool { return false }

func (r cppRuntime) sources(code string, sig model.Signature) (map[string]string, error) {
	if err := checkScalarParams(model.LangCPP, sig); err != nil {
		return nil, err
	}
	call := sig.Name
	if sig.Receiver != "" {
		call = sig.Receiver + "()." + sig.Name
	}
	n := sig.Arity()
	return map[string]string{
		"prog.cpp": cppPrelude + code + fmt.Sprintf(cppHarness, n+1, n, call, callArgs(sig, true)),
	}, nil
}

func (r cppRuntime) compile(model.Signature, []string) [][]string {
	return [][]string{{r.cxx, "-std=c++17", "-O2", "-w", "-o", "prog", "prog.cpp"}}
}

func (r cppRuntime) invocation(_ model.Signature, args []model.Value) ([]string, []byte, error) {
	vals, err := argvValues(args)
	if err != nil {
		return nil, nil, err
	}
	return append([]string{"./prog"}, vals...), nil, nil
}
