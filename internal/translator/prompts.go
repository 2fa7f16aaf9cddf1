package translator

import (
	"fmt"
	"strings"

	"code-translator/internal/domain/model"
	"code-translator/internal/domain/ports/adapter"
)

const systemPrompt = "You are a precise code translator. " +
	"Output ONLY one function with the exact required signature. " +
	"No comments, no extra text, no I/O, no main, no classes unless the signature requires one. " +
	"If the function relies on a construct the target language cannot express, answer with a single line " +
	"`UNSUPPORTED: <construct>` instead."

var targetRules = map[model.Language]string{
	model.LangPython: "- Python 3.11, pure function, standard library only.",
	model.LangJava:   "- Emit ONLY a static method; the enclosing class is added externally.",
	model.LangC:      "- C11, no stdio, no globals, include only standard headers the body needs.",
	model.LangCPP:    "- C++17, no I/O, no globals, standard library only.",
	model.LangGo:     "- Go, package-level func without a package clause, standard library only.",
}

// BuildMessages renders the chat exchange asking the backend for one function.
func BuildMessages(req adapter.TranslationRequest) []adapter.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate this %s function into %s.\n",
		strings.ToUpper(string(req.SourceLang)), strings.ToUpper(string(req.TargetLang)))
	b.WriteString("Emit exactly one function with this signature:\n")
	b.WriteString(RenderSignature(req.TargetLang, req.Signature))
	fmt.Fprintf(&b, "\n\nSource (%s):\n%s\n\nRules:\n", req.SourceLang, strings.TrimSpace(req.Code))
	if r, ok := targetRules[req.TargetLang]; ok {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	b.WriteString("- Keep the parameter order and the function name unchanged.\n")
	b.WriteString("Output only the function code block, nothing else.\nOutput:\n")
	return []adapter.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}

// RenderSignature spells sig in the target language. Unknown types fall
// back to integers, the most common case for untyped sources.
func RenderSignature(lang model.Language, sig model.Signature) string {
	params := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		params[i] = renderParam(lang, p)
	}
	ret := spell(lang, sig.Return, true)
	switch lang {
	case model.LangPython:
		return fmt.Sprintf("def %s(%s) -> %s", sig.Name, strings.Join(params, ", "), ret)
	case model.LangJava:
		return fmt.Sprintf("public static %s %s(%s)", ret, sig.Name, strings.Join(params, ", "))
	case model.LangGo:
		return fmt.Sprintf("func %s(%s) %s", sig.Name, strings.Join(params, ", "), ret)
	default:
		return fmt.Sprintf("%s %s(%s)", ret, sig.Name, strings.Join(params, ", "))
	}
}

func renderParam(lang model.Language, p model.Param) string {
	t := spell(lang, p.Type, false)
	switch lang {
	case model.LangPython:
		return p.Name + ": " + t
	case model.LangGo:
		return p.Name + " " + t
	default:
		return t + " " + p.Name
	}
}

var spellings = map[model.Language]map[model.TypeTag]string{
	model.LangPython: {
		model.TypeInteger: "int", model.TypeFloat: "float", model.TypeString: "str", model.TypeBoolean: "bool",
		model.TypeSequence: "list", model.TypeSet: "set", model.TypeMapping: "dict",
	},
	model.LangJava: {
		model.TypeInteger: "long", model.TypeFloat: "double", model.TypeString: "String", model.TypeBoolean: "boolean",
		model.TypeSequence: "java.util.List<Long>", model.TypeSet: "java.util.Set<Long>", model.TypeMapping: "java.util.Map<String, Long>",
	},
	model.LangC: {
		model.TypeInteger: "long long", model.TypeFloat: "double", model.TypeString: "const char*", model.TypeBoolean: "bool",
	},
	model.LangCPP: {
		model.TypeInteger: "long long", model.TypeFloat: "double", model.TypeString: "std::string", model.TypeBoolean: "bool",
		model.TypeSequence: "std::vector<long long>", model.TypeSet: "std::set<long long>", model.TypeMapping: "std::map<std::string, long long>",
	},
	model.LangGo: {
		model.TypeInteger: "int64", model.TypeFloat: "float64", model.TypeString: "string", model.TypeBoolean: "bool",
		model.TypeSequence: "[]int64", model.TypeSet: "map[int64]bool", model.TypeMapping: "map[string]int64",
	},
}

func spell(lang model.Language, t model.TypeTag, result bool) string {
	if t == model.TypeUnknown {
		t = model.TypeInteger
	}
	if lang == model.LangCPP && t == model.TypeString && !result {
		return "const std::string&"
	}
	if s, ok := spellings[lang][t]; ok {
		return s
	}
	return spellings[lang][model.TypeInteger]
}
