package preprocessor

import (
	"github.com/fwessels/shaderpp/internal/lexer"
	"github.com/fwessels/shaderpp/internal/token"
)

// ContextKind tells what a lexer context reads from.
type ContextKind uint8

const (
	ContextInclude   ContextKind = iota // a file: the root source or an #include
	ContextMacroBody                    // the replacement text of one macro expansion
)

func (k ContextKind) String() string {
	if k == ContextInclude {
		return "include"
	}
	return "macro"
}

type lexerContext struct {
	kind  ContextKind
	lexer *lexer.Lexer
	uri   string

	// macro body contexts only
	macro string
	param bool // the body is a function macro argument
	scope int  // MacroTable depth to restore when the context is popped
}

func (s *Session) top() *lexerContext {
	return s.contexts[len(s.contexts)-1]
}

func (s *Session) newLexer(text token.Token) *lexer.Lexer {
	lx := lexer.New(s.types)
	lx.Setup(text.Value, text.URI, text.Range.Start)
	return lx
}

func (s *Session) pushInclude(source, uri string) {
	lx := lexer.New(s.types)
	lx.Setup(source, uri, token.Position{})
	s.contexts = append(s.contexts, &lexerContext{kind: ContextInclude, lexer: lx, uri: uri})
	s.log.WithField("uri", uri).Debug("enter file")
}

// pushMacroBody starts reading the body of m. scope is the MacroTable depth
// from before the scope of this expansion was pushed.
func (s *Session) pushMacroBody(m *Macro, scope int) {
	s.contexts = append(s.contexts, &lexerContext{
		kind:  ContextMacroBody,
		lexer: s.newLexer(*m.Body),
		uri:   m.Body.URI,
		macro: m.Name,
		param: m.param,
		scope: scope,
	})
}

func (s *Session) popContext() {
	ctx := s.top()
	s.contexts = s.contexts[:len(s.contexts)-1]
	switch ctx.kind {
	case ContextMacroBody:
		s.macros.PopTo(ctx.scope)
	case ContextInclude:
		s.log.WithField("uri", ctx.uri).Debug("leave file")
	}
}

// expanding reports whether name is the macro of an active macro body context.
func (s *Session) expanding(name string) bool {
	for i := len(s.contexts) - 1; i > 0; i-- {
		if c := s.contexts[i]; c.kind == ContextMacroBody && c.macro == name {
			return true
		}
	}
	return false
}

func (s *Session) expansionDepth() int {
	n := 0
	for _, c := range s.contexts {
		if c.kind == ContextMacroBody {
			n++
		}
	}
	return n
}

// includeURI returns the file the innermost include context reads.
func (s *Session) includeURI() string {
	for i := len(s.contexts) - 1; i >= 0; i-- {
		if s.contexts[i].kind == ContextInclude {
			return s.contexts[i].uri
		}
	}
	return ""
}
