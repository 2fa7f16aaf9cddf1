package signature

import (
	"strings"

	"code-translator/internal/domain/model"
)

func normalizeType(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	return strings.Join(strings.Fields(s), " ")
}

// baseName strips generic arguments and a package or namespace qualifier:
// "typing.List[int]" -> "List", "std::vector<int>" -> "vector".
func baseName(s string) string {
	if i := strings.IndexAny(s, "[<"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "::"); i >= 0 {
		s = s[i+2:]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// genericArg returns the text inside the outermost brackets.
func genericArg(s string) string {
	open := strings.IndexAny(s, "[<")
	closing := strings.LastIndexAny(s, "]>")
	if open < 0 || closing <= open {
		return ""
	}
	return strings.TrimSpace(s[open+1 : closing])
}

func pythonType(annotation string) model.TypeTag {
	t := normalizeType(annotation)
	if t == "" {
		return model.TypeUnknown
	}
	// T | None and None | T
	if strings.Contains(t, "|") {
		for _, part := range strings.Split(t, "|") {
			if p := strings.TrimSpace(part); p != "None" {
				return pythonType(p)
			}
		}
	}
	switch baseName(t) {
	case "Optional":
		return pythonType(genericArg(t))
	case "int":
		return model.TypeInteger
	case "float":
		return model.TypeFloat
	case "str":
		return model.TypeString
	case "bool":
		return model.TypeBoolean
	case "list", "List", "tuple", "Tuple", "Sequence", "Iterable", "MutableSequence":
		return model.TypeSequence
	case "set", "Set", "frozenset", "FrozenSet", "AbstractSet", "MutableSet":
		return model.TypeSet
	case "dict", "Dict", "Mapping", "MutableMapping":
		return model.TypeMapping
	}
	return model.TypeUnknown
}

// pythonLiteralType infers a parameter type from its default value node type.
func pythonLiteralType(nodeType, literal string) model.TypeTag {
	switch nodeType {
	case "integer":
		return model.TypeInteger
	case "float":
		return model.TypeFloat
	case "string", "concatenated_string":
		return model.TypeString
	case "true", "false":
		return model.TypeBoolean
	case "list", "tuple":
		return model.TypeSequence
	case "set":
		return model.TypeSet
	case "dictionary":
		return model.TypeMapping
	case "unary_operator":
		l := strings.TrimLeft(strings.TrimSpace(literal), "-+ ")
		if strings.ContainsAny(l, ".eE") {
			return model.TypeFloat
		}
		if l != "" && l[0] >= '0' && l[0] <= '9' {
			return model.TypeInteger
		}
	}
	return model.TypeUnknown
}

var cIntegerWords = map[string]bool{
	"int": true, "long": true, "short": true, "unsigned": true, "signed": true, "char": true,
	"size_t": true, "ssize_t": true, "ptrdiff_t": true, "intptr_t": true, "uintptr_t": true,
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
}

// cType maps a c/cpp type spelling plus its pointer/array depth.
func cType(spelling string, indirection int) model.TypeTag {
	t := normalizeType(spelling)
	for _, q := range []string{"const ", "volatile ", "static ", "inline ", "struct ", "constexpr "} {
		t = strings.ReplaceAll(t, q, "")
	}
	t = strings.TrimSpace(strings.TrimSuffix(t, "const"))
	t = strings.TrimRight(t, "&* ")
	if indirection > 0 {
		if t == "char" || t == "signed char" || t == "unsigned char" {
			return model.TypeString
		}
		return model.TypeSequence
	}
	switch baseName(t) {
	case "float", "double":
		return model.TypeFloat
	case "bool", "_Bool":
		return model.TypeBoolean
	case "string", "string_view":
		return model.TypeString
	case "vector", "array", "list", "deque", "span":
		return model.TypeSequence
	case "set", "unordered_set", "multiset":
		return model.TypeSet
	case "map", "unordered_map", "multimap":
		return model.TypeMapping
	case "void":
		return model.TypeUnknown
	}
	words := strings.Fields(t)
	if len(words) == 0 {
		return model.TypeUnknown
	}
	if words[len(words)-1] == "double" {
		return model.TypeFloat // long double
	}
	for _, w := range words {
		if !cIntegerWords[w] {
			return model.TypeUnknown
		}
	}
	return model.TypeInteger
}

func javaType(spelling string) model.TypeTag {
	t := normalizeType(spelling)
	if strings.HasSuffix(t, "[]") {
		if strings.TrimSpace(strings.TrimSuffix(t, "[]")) == "char" {
			return model.TypeString
		}
		return model.TypeSequence
	}
	switch baseName(t) {
	case "int", "long", "short", "byte", "Integer", "Long", "Short", "Byte", "BigInteger":
		return model.TypeInteger
	case "double", "float", "Double", "Float", "BigDecimal":
		return model.TypeFloat
	case "String", "char", "Character", "CharSequence":
		return model.TypeString
	case "boolean", "Boolean":
		return model.TypeBoolean
	case "List", "ArrayList", "LinkedList", "Collection", "Iterable", "Deque", "ArrayDeque":
		return model.TypeSequence
	case "Set", "HashSet", "TreeSet", "LinkedHashSet", "SortedSet":
		return model.TypeSet
	case "Map", "HashMap", "TreeMap", "LinkedHashMap", "SortedMap":
		return model.TypeMapping
	}
	return model.TypeUnknown
}

func goType(spelling string) model.TypeTag {
	t := normalizeType(spelling)
	switch {
	case strings.HasPrefix(t, "[]"), strings.HasPrefix(t, "["):
		return model.TypeSequence
	case strings.HasPrefix(t, "map["):
		closing := strings.Index(t, "]")
		if closing > 0 {
			elem := strings.TrimSpace(t[closing+1:])
			if elem == "struct{}" || elem == "bool" {
				return model.TypeSet
			}
		}
		return model.TypeMapping
	}
	switch t {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte", "rune":
		return model.TypeInteger
	case "float32", "float64":
		return model.TypeFloat
	case "string":
		return model.TypeString
	case "bool":
		return model.TypeBoolean
	}
	return model.TypeUnknown
}
