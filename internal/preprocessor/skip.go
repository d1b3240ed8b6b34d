package preprocessor

import (
	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/token"
)

// skipUnreachableCode discards tokens up to the #elif, #else or #endif that
// continues the chain opened or continued at keyword. Nested chains inside
// the skipped text are balanced. The stopping '#' and keyword are pushed back
// so the directive is dispatched as usual; the skipped span is recorded as
// unreachable.
//
// Skipped text is not examined for macros.
func (s *Session) skipUnreachableCode(keyword token.Token) error {
	var skipped token.Range
	uri := ""
	count := 0
	extend := func(tok token.Token) {
		switch {
		case count == 0:
			skipped, uri = tok.Range, tok.URI
		case tok.URI == uri:
			skipped = token.Hull(skipped, tok.Range)
		}
		count++
	}

	depth := 0
	for {
		tok := s.rawToken()
		if tok.IsEOF() {
			return s.critical(diagnostic.At(diagnostic.Critical, diagnostic.EndifNotFound, keyword, "#endif not found"))
		}
		if tok.Kind != token.Hash {
			extend(tok)
			continue
		}

		kw := s.rawToken()
		stop := false
		switch kw.Value {
		case "if", "ifdef", "ifndef":
			depth++
		case "endif":
			if depth == 0 {
				stop = true
			}
			depth--
		case "elif", "else":
			stop = depth == 0
		}
		if stop {
			s.pushBack(tok, kw)
			if count > 0 {
				s.unreachable = append(s.unreachable, UnreachableRange{URI: uri, Range: skipped})
			}
			return nil
		}
		extend(tok)
		if kw.IsEOF() {
			return s.critical(diagnostic.At(diagnostic.Critical, diagnostic.EndifNotFound, keyword, "#endif not found"))
		}
		extend(kw)
	}
}
