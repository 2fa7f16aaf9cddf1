package signature

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"

	"code-translator/internal/domain/model"
)

func cGrammar() *sitter.Language   { return c.GetLanguage() }
func cppGrammar() *sitter.Language { return cpp.GetLanguage() }

var cRefused = map[string]string{
	"goto_statement": "goto",
}

// findCLike serves both c and cpp; the cpp grammar is a superset of the
// node types used here.
func findCLike(root *sitter.Node, src []byte, fn string) *Function {
	var found *Function
	var visit func(n *sitter.Node, class string)
	visit = func(n *sitter.Node, class string) {
		if found != nil || n == nil {
			return
		}
		switch n.Type() {
		case "class_specifier", "struct_specifier":
			name := text(n.ChildByFieldName("name"), src)
			if body := n.ChildByFieldName("body"); body != nil {
				for i := 0; i < int(body.NamedChildCount()); i++ {
					visit(body.NamedChild(i), name)
				}
			}
			return
		case "function_definition":
			decl, depth := functionDeclarator(n.ChildByFieldName("declarator"))
			if decl != nil {
				if name, _ := declaratorName(decl.ChildByFieldName("declarator"), src); name == fn {
					found = cFunction(n, decl, depth, src, class)
					return
				}
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

// functionDeclarator descends through pointer/reference wrappers of a
// function's declarator, counting pointer levels of the return type.
func functionDeclarator(n *sitter.Node) (*sitter.Node, int) {
	depth := 0
	for n != nil {
		switch n.Type() {
		case "function_declarator":
			return n, depth
		case "pointer_declarator":
			depth++
		}
		n = innerDeclarator(n)
	}
	return nil, depth
}

func innerDeclarator(n *sitter.Node) *sitter.Node {
	if d := n.ChildByFieldName("declarator"); d != nil {
		return d
	}
	if n.NamedChildCount() > 0 {
		return n.NamedChild(int(n.NamedChildCount()) - 1)
	}
	return nil
}

// declaratorName finds the identifier inside a (possibly nested) declarator
// and reports pointer/array indirection along the way.
func declaratorName(n *sitter.Node, src []byte) (string, int) {
	indirection := 0
	for n != nil {
		switch n.Type() {
		case "identifier", "field_identifier", "type_identifier", "operator_name", "destructor_name":
			return text(n, src), indirection
		case "qualified_identifier":
			n = n.ChildByFieldName("name")
			continue
		case "pointer_declarator", "array_declarator", "abstract_pointer_declarator", "abstract_array_declarator":
			indirection++
		}
		n = innerDeclarator(n)
	}
	return "", indirection
}

func cFunction(def, decl *sitter.Node, returnDepth int, src []byte, class string) *Function {
	name, _ := declaratorName(decl.ChildByFieldName("declarator"), src)
	sig := model.Signature{
		Name:     name,
		Return:   cType(text(def.ChildByFieldName("type"), src), returnDepth),
		Receiver: class,
	}
	if params := decl.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			switch p.Type() {
			case "parameter_declaration", "optional_parameter_declaration":
				typ := text(p.ChildByFieldName("type"), src)
				d := p.ChildByFieldName("declarator")
				if d == nil && typ == "void" {
					continue // f(void)
				}
				pname, depth := declaratorName(d, src)
				if pname == "" {
					pname = placeholder(len(sig.Params))
				}
				sig.Params = append(sig.Params, model.Param{Name: pname, Type: cType(typ, depth)})
			case "variadic_parameter", "variadic_parameter_declaration":
				sig.Variadic = true
			}
		}
		// a bare "..." is an anonymous child
		for i := 0; i < int(params.ChildCount()); i++ {
			if params.Child(i).Type() == "..." {
				sig.Variadic = true
			}
		}
	}
	return &Function{Signature: sig, Constructs: collectConstructs(def.ChildByFieldName("body"), cRefused)}
}
