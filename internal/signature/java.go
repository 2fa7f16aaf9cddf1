package signature

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"code-translator/internal/domain/model"
)

func javaGrammar() *sitter.Language { return java.GetLanguage() }

var javaRefused = map[string]string{
	"synchronized_statement": "synchronized",
}

func findJava(root *sitter.Node, src []byte, fn string) *Function {
	var found *Function
	var visit func(n *sitter.Node, class string)
	visit = func(n *sitter.Node, class string) {
		if found != nil || n == nil {
			return
		}
		switch n.Type() {
		case "class_declaration", "record_declaration", "enum_declaration", "interface_declaration":
			class = nameOf(n, src)
		case "method_declaration":
			if nameOf(n, src) == fn {
				found = javaMethod(n, src, class)
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i), class)
		}
	}
	visit(root, "")
	return found
}

func javaMethod(n *sitter.Node, src []byte, class string) *Function {
	sig := model.Signature{
		Name:     nameOf(n, src),
		Return:   javaType(text(n.ChildByFieldName("type"), src) + text(n.ChildByFieldName("dimensions"), src)),
		Receiver: class,
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			switch p.Type() {
			case "formal_parameter":
				typ := text(p.ChildByFieldName("type"), src) + text(p.ChildByFieldName("dimensions"), src)
				sig.Params = append(sig.Params, model.Param{Name: text(p.ChildByFieldName("name"), src), Type: javaType(typ)})
			case "spread_parameter":
				sig.Variadic = true
			}
		}
	}

	constructs := collectConstructs(n.ChildByFieldName("body"), javaRefused)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if m := n.NamedChild(i); m.Type() == "modifiers" && strings.Contains(text(m, src), "synchronized") && !contains(constructs, "synchronized") {
			constructs = append([]string{"synchronized"}, constructs...)
		}
	}
	return &Function{Signature: sig, Constructs: constructs}
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
