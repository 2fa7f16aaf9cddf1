package model

import (
	"strings"

	"code-translator/internal/domain"
)

type Language string

const (
	LangPython Language = "python"
	LangJava   Language = "java"
	LangC      Language = "c"
	LangCPP    Language = "cpp"
	LangGo     Language = "go"
)

// Languages lists every language the pipeline can parse, translate and execute.
var Languages = []Language{LangPython, LangJava, LangC, LangCPP, LangGo}

// ParseLanguage accepts the canonical tags plus a few common aliases.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "python", "py", "python3":
		return LangPython, nil
	case "java":
		return LangJava, nil
	case "c":
		return LangC, nil
	case "cpp", "c++", "cxx":
		return LangCPP, nil
	case "go", "golang":
		return LangGo, nil
	}
	return "", domain.ErrUnsupportedLanguage
}

func (l Language) String() string { return string(l) }

// TypeTag is a best-effort semantic type of a parameter or return value.
type TypeTag string

const (
	TypeInteger  TypeTag = "integer"
	TypeFloat    TypeTag = "float"
	TypeString   TypeTag = "string"
	TypeBoolean  TypeTag = "boolean"
	TypeSequence TypeTag = "sequence"
	TypeSet      TypeTag = "set"
	TypeMapping  TypeTag = "mapping"
	TypeUnknown  TypeTag = "unknown"
)

// Scalar reports whether values of this tag fit in a single argv slot.
func (t TypeTag) Scalar() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeString, TypeBoolean:
		return true
	}
	return false
}

type Param struct {
	Name string
	Type TypeTag
}

// Signature is the statically extracted contract of one function.
type Signature struct {
	Name     string
	Params   []Param
	Return   TypeTag
	Variadic bool
	// Receiver is the enclosing class for languages that require one (java).
	Receiver string
}

func (s Signature) Arity() int { return len(s.Params) }

func (s Signature) ParamTypes() []TypeTag {
	out := make([]TypeTag, len(s.Params))
	for i, p := range s.Params {
		out[i] = p.Type
	}
	return out
}

// ParamIndex returns the position of the named parameter or -1.
func (s Signature) ParamIndex(name string) int {
	for i, p := range s.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}
