package signature

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"code-translator/internal/domain/model"
)

func pythonGrammar() *sitter.Language { return python.GetLanguage() }

var pythonRefused = map[string]string{
	"yield":              "yield",
	"await":              "await",
	"global_statement":   "global",
	"nonlocal_statement": "nonlocal",
}

func findPython(root *sitter.Node, src []byte, fn string) *Function {
	var found *Function
	var visit func(n *sitter.Node, class string)
	visit = func(n *sitter.Node, class string) {
		if found != nil || n == nil {
			return
		}
		switch n.Type() {
		case "class_definition":
			name := text(n.ChildByFieldName("name"), src)
			if body := n.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.NamedChildCount()); i++ {
					visit(body.NamedChild(i), name)
				}
			}
			return
		case "function_definition":
			if nameOf(n, src) == fn {
				found = pythonFunction(n, src, class)
				return
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			// nested defs lose the class context
			child := n.NamedChild(i)
			if n.Type() == "function_definition" {
				visit(child, "")
			} else {
				visit(child, class)
			}
		}
	}
	visit(root, "")
	return found
}

func pythonFunction(n *sitter.Node, src []byte, class string) *Function {
	sig := model.Signature{
		Name:     nameOf(n, src),
		Return:   pythonType(text(n.ChildByFieldName("return_type"), src)),
		Receiver: class,
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			switch p.Type() {
			case "identifier":
				sig.Params = append(sig.Params, model.Param{Name: text(p, src), Type: model.TypeUnknown})
			case "typed_parameter":
				inner := p.NamedChild(0)
				if inner != nil && (inner.Type() == "list_splat_pattern" || inner.Type() == "dictionary_splat_pattern") {
					sig.Variadic = true
					continue
				}
				sig.Params = append(sig.Params, model.Param{
					Name: text(inner, src),
					Type: pythonType(text(p.ChildByFieldName("type"), src)),
				})
			case "default_parameter":
				val := p.ChildByFieldName("value")
				sig.Params = append(sig.Params, model.Param{
					Name: text(p.ChildByFieldName("name"), src),
					Type: pythonLiteralType(nodeType(val), text(val, src)),
				})
			case "typed_default_parameter":
				sig.Params = append(sig.Params, model.Param{
					Name: text(p.ChildByFieldName("name"), src),
					Type: pythonType(text(p.ChildByFieldName("type"), src)),
				})
			case "list_splat_pattern", "dictionary_splat_pattern":
				sig.Variadic = true
			}
		}
	}
	// bound methods receive the instance implicitly
	if class != "" && len(sig.Params) > 0 && (sig.Params[0].Name == "self" || sig.Params[0].Name == "cls") {
		sig.Params = sig.Params[1:]
	}

	constructs := collectConstructs(n.ChildByFieldName("body"), pythonRefused)
	if first := n.Child(0); first != nil && first.Type() == "async" {
		constructs = append([]string{"async"}, constructs...)
	}
	return &Function{Signature: sig, Constructs: constructs}
}

func nameOf(n *sitter.Node, src []byte) string { return text(n.ChildByFieldName("name"), src) }
