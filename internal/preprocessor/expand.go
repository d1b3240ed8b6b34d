package preprocessor

import (
	"strings"

	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/token"
)

// tryExpandMacro returns tok unchanged unless it names a macro, in which case
// the expansion is started and its first token returned.
func (s *Session) tryExpandMacro(tok token.Token) (token.Token, error) {
	if !tok.IsIdentifier() {
		return tok, nil
	}
	m := s.macros.Lookup(tok.Value)
	if m == nil {
		return tok, nil
	}
	if s.expanding(m.Name) {
		if !m.param {
			s.warnf(diagnostic.RecursiveMacro, tok, "recursive reference to macro %q is not expanded", m.Name)
		}
		return tok, nil
	}
	if s.expansionDepth() >= s.maxDepth {
		s.errorf(diagnostic.ExpansionDepth, tok, "macro %q exceeds the expansion depth of %d", m.Name, s.maxDepth)
		return tok, nil
	}

	if m.FunctionLike {
		return s.expandCall(tok, m)
	}
	if m.Body != nil {
		scope := s.macros.Push()
		s.pushMacroBody(m, scope)
	}
	return s.NextToken()
}

func (s *Session) expandCall(name token.Token, m *Macro) (token.Token, error) {
	next, err := s.NextToken()
	if err != nil {
		return next, err
	}
	if !isPunct(next, "(") {
		// a macro name passed as an argument may still be called by the body
		if s.collecting == 0 {
			s.warnf(diagnostic.MacroWithoutCall, name, "function-like macro %q used without arguments", m.Name)
		}
		if !next.IsEOF() {
			s.pushBack(next)
		}
		return name, nil
	}

	args, end, err := s.readArguments(name)
	if err != nil || end.IsEOF() {
		return end, err
	}
	if len(m.Params) == 0 && len(args) == 1 && len(args[0]) == 0 {
		args = nil
	}
	if len(args) != len(m.Params) {
		s.errorf(diagnostic.MacroArity, token.Synthesize(token.MacroText, m.Name, name, end),
			"macro %q takes %d arguments, %d given", m.Name, len(m.Params), len(args))
		return s.NextToken()
	}
	if m.Body == nil {
		return s.NextToken()
	}

	scope := s.macros.Push()
	for i, p := range m.Params {
		s.macros.Bind(&Macro{Name: p, Body: argumentBody(args[i]), param: true})
	}
	s.pushMacroBody(m, scope)
	return s.NextToken()
}

// readArguments consumes a call's arguments after the opening parenthesis and
// splits them on commas outside nested parentheses. It returns the closing
// parenthesis, or EOF when the call is unterminated.
func (s *Session) readArguments(name token.Token) ([][]token.Token, token.Token, error) {
	s.collecting++
	defer func() { s.collecting-- }()

	args := [][]token.Token{nil}
	depth := 0
	for {
		tok, err := s.NextToken()
		if err != nil {
			return nil, tok, err
		}
		switch {
		case tok.IsEOF():
			s.errorf(diagnostic.UnterminatedCall, name, "unterminated call of macro %q", name.Value)
			return nil, tok, nil
		case isPunct(tok, "("):
			depth++
		case isPunct(tok, ")"):
			if depth == 0 {
				return args, tok, nil
			}
			depth--
		case isPunct(tok, ",") && depth == 0:
			args = append(args, nil)
			continue
		}
		args[len(args)-1] = append(args[len(args)-1], tok)
	}
}

// argumentBody joins the tokens of one argument into the body of the macro
// bound to the matching parameter.
func argumentBody(arg []token.Token) *token.Token {
	if len(arg) == 0 {
		return nil
	}
	vals := make([]string, len(arg))
	for i, t := range arg {
		vals[i] = t.Value
	}
	body := token.Synthesize(token.MacroText, strings.Join(vals, " "), arg[0], arg[len(arg)-1])
	return &body
}

func isPunct(tok token.Token, p string) bool {
	return tok.Kind == token.Punct && tok.Value == p
}

func isBlankText(s string) bool {
	return strings.TrimSpace(strings.ReplaceAll(s, "\\\n", "")) == ""
}
