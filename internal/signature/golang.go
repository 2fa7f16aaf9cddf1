package signature

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"code-translator/internal/domain/model"
)

func goGrammar() *sitter.Language { return golang.GetLanguage() }

var goRefused = map[string]string{
	"go_statement":     "goroutine",
	"select_statement": "select",
	"goto_statement":   "goto",
}

func findGo(root *sitter.Node, src []byte, fn string) *Function {
	var found *Function
	walk(root, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.Type() == "function_declaration" && nameOf(n, src) == fn {
			found = goFunction(n, src)
			return false
		}
		return true
	})
	return found
}

func goFunction(n *sitter.Node, src []byte) *Function {
	sig := model.Signature{Name: nameOf(n, src), Return: model.TypeUnknown}

	if params := n.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			switch p.Type() {
			case "parameter_declaration":
				typ := goType(text(p.ChildByFieldName("type"), src))
				names := 0
				for j := 0; j < int(p.NamedChildCount()); j++ {
					if id := p.NamedChild(j); id.Type() == "identifier" {
						sig.Params = append(sig.Params, model.Param{Name: text(id, src), Type: typ})
						names++
					}
				}
				if names == 0 {
					sig.Params = append(sig.Params, model.Param{Name: placeholder(len(sig.Params)), Type: typ})
				}
			case "variadic_parameter_declaration":
				sig.Variadic = true
			}
		}
	}

	if res := n.ChildByFieldName("result"); res != nil {
		if res.Type() != "parameter_list" {
			sig.Return = goType(text(res, src))
		} else if res.NamedChildCount() == 1 {
			sig.Return = goType(text(res.NamedChild(0).ChildByFieldName("type"), src))
		}
	}
	return &Function{Signature: sig, Constructs: collectConstructs(n.ChildByFieldName("body"), goRefused)}
}
