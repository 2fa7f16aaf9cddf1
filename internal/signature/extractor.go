// Package signature extracts function signatures by static inspection of
// source code. Nothing here ever executes the code it reads.
package signature

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	sitter "github.com/smacker/go-tree-sitter"

	"code-translator/internal/domain"
	"code-translator/internal/domain/model"
)

// javaWrapperClass is used when java code arrives as a bare method.
const javaWrapperClass = "Translated"

// Function is a located function definition.
type Function struct {
	Signature model.Signature
	// Constructs lists language features inside the function body that the
	// translation pipeline refuses (yield, goto, ...), in source order.
	Constructs []string
}

type language struct {
	grammar func() *sitter.Language
	// find walks the tree and returns the first definition named fn.
	find func(root *sitter.Node, src []byte, fn string) *Function
}

var languages = map[model.Language]language{
	model.LangPython: {grammar: pythonGrammar, find: findPython},
	model.LangJava:   {grammar: javaGrammar, find: findJava},
	model.LangC:      {grammar: cGrammar, find: findCLike},
	model.LangCPP:    {grammar: cppGrammar, find: findCLike},
	model.LangGo:     {grammar: goGrammar, find: findGo},
}

// Extractor parses source with tree-sitter grammars. A fresh parser is used
// per call since parsers are not safe for concurrent use.
type Extractor struct {
	log *zerolog.Logger
}

func New(logger *zerolog.Logger) *Extractor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Extractor{log: logger}
}

// Extract returns the signature of fn in code.
func (e *Extractor) Extract(ctx context.Context, lang model.Language, code, fn string) (model.Signature, error) {
	f, err := e.Inspect(ctx, lang, code, fn)
	if err != nil {
		return model.Signature{}, err
	}
	return f.Signature, nil
}

// Inspect locates fn and reports its signature plus refused constructs.
func (e *Extractor) Inspect(ctx context.Context, lang model.Language, code, fn string) (*Function, error) {
	l, ok := languages[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, lang)
	}
	fn = strings.TrimSpace(fn)
	if fn == "" {
		return nil, fmt.Errorf("%w: empty function name", domain.ErrSignatureNotFound)
	}
	start := time.Now()

	f, err := e.parse(ctx, l, []byte(code), fn)
	if err != nil {
		return nil, err
	}
	if f == nil && lang == model.LangJava && !strings.Contains(code, "class ") {
		wrapped := "class " + javaWrapperClass + " {\n" + code + "\n}\n"
		if f, err = e.parse(ctx, l, []byte(wrapped), fn); err != nil {
			return nil, err
		}
		if f != nil {
			f.Signature.Receiver = ""
		}
	}
	if f == nil {
		return nil, fmt.Errorf("%w: %s function %q", domain.ErrSignatureNotFound, lang, fn)
	}

	e.log.Debug().
		Str("lang", string(lang)).
		Str("function", fn).
		Int("arity", f.Signature.Arity()).
		Dur("duration", time.Since(start)).
		Msg("signature extracted")
	return f, nil
}

func (e *Extractor) parse(ctx context.Context, l language, src []byte, fn string) (*Function, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(l.grammar())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	defer tree.Close()
	return l.find(tree.RootNode(), src, fn), nil
}

// walk visits n depth-first; returning false prunes the subtree.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

// collectConstructs reports every node type present in refused, once each.
func collectConstructs(body *sitter.Node, refused map[string]string) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	walk(body, func(n *sitter.Node) bool {
		if name, ok := refused[n.Type()]; ok && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		return true
	})
	return out
}

func text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

func nodeType(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Type()
}

func placeholder(i int) string { return fmt.Sprintf("arg%d", i) }
