package preprocessor

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/token"
)

// Operator is one entry of an OperatorTable: a BinaryOp, a UnaryOp or a
// DefinedOp. Function-like macros act as call operators of fixed arity.
type Operator interface {
	Precedence() int
	Arity() int
}

// BinaryOp combines two values.
type BinaryOp struct {
	Prec int
	Fn   func(a, b int64) (int64, error)
}

// UnaryOp is a prefix operator on one value.
type UnaryOp struct {
	Prec int
	Fn   func(a int64) int64
}

// DefinedOp is the prefix `defined` predicate. Its operand is a macro name,
// not a value.
type DefinedOp struct {
	Prec int
}

type callOp struct {
	macro *Macro
}

func (o BinaryOp) Precedence() int  { return o.Prec }
func (o BinaryOp) Arity() int       { return 2 }
func (o UnaryOp) Precedence() int   { return o.Prec }
func (o UnaryOp) Arity() int        { return 1 }
func (o DefinedOp) Precedence() int { return o.Prec }
func (o DefinedOp) Arity() int      { return 1 }
func (o callOp) Precedence() int    { return callPrecedence }
func (o callOp) Arity() int         { return len(o.macro.Params) }

const callPrecedence = 10

var errDivisionByZero = errors.New("division by zero")

// OperatorTable lists the operators an expression may use.
type OperatorTable struct {
	Name   string
	Binary map[string]BinaryOp
	Prefix map[string]Operator

	// BareNameDefined makes a plain identifier evaluate to 1 when it names a
	// macro and to 0 otherwise, instead of to the macro's value.
	BareNameDefined bool
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func logical(f func(a, b bool) bool) func(a, b int64) (int64, error) {
	return func(a, b int64) (int64, error) { return b2i(f(a != 0, b != 0)), nil }
}

func compare(f func(a, b int64) bool) func(a, b int64) (int64, error) {
	return func(a, b int64) (int64, error) { return b2i(f(a, b)), nil }
}

func arith(f func(a, b int64) int64) func(a, b int64) (int64, error) {
	return func(a, b int64) (int64, error) { return f(a, b), nil }
}

var (
	logicalOr  = BinaryOp{1, logical(func(a, b bool) bool { return a || b })}
	logicalAnd = BinaryOp{2, logical(func(a, b bool) bool { return a && b })}
	logicalNot = UnaryOp{7, func(a int64) int64 { return b2i(a == 0) }}
)

// DefinedCheck is the table of #ifdef and #ifndef.
var DefinedCheck = &OperatorTable{
	Name:            "defined check",
	Binary:          map[string]BinaryOp{"||": logicalOr, "&&": logicalAnd},
	Prefix:          map[string]Operator{"!": logicalNot},
	BareNameDefined: true,
}

// FullExpression is the table of #if and #elif.
var FullExpression = &OperatorTable{
	Name: "expression",
	Binary: map[string]BinaryOp{
		"||": logicalOr,
		"&&": logicalAnd,
		"==": {3, compare(func(a, b int64) bool { return a == b })},
		"!=": {3, compare(func(a, b int64) bool { return a != b })},
		"<":  {4, compare(func(a, b int64) bool { return a < b })},
		">":  {4, compare(func(a, b int64) bool { return a > b })},
		"<=": {4, compare(func(a, b int64) bool { return a <= b })},
		">=": {4, compare(func(a, b int64) bool { return a >= b })},
		"+":  {5, arith(func(a, b int64) int64 { return a + b })},
		"-":  {5, arith(func(a, b int64) int64 { return a - b })},
		"*":  {6, arith(func(a, b int64) int64 { return a * b })},
		"/": {6, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a / b, nil
		}},
		"%": {6, func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, errDivisionByZero
			}
			return a % b, nil
		}},
	},
	Prefix: map[string]Operator{
		"!":       logicalNot,
		"-":       UnaryOp{7, func(a int64) int64 { return -a }},
		"defined": DefinedOp{7},
	},
}

// ----------------------------------------------------------------------------
// Shunting-yard
// ----------------------------------------------------------------------------

// rpnItem is either an operand token or an operator applied at tok.
type rpnItem struct {
	tok token.Token
	op  Operator
}

type opEntry struct {
	tok   token.Token
	op    Operator // nil for an open parenthesis
	paren bool
}

// toRPN converts the expression in text to reverse polish notation.
func (s *Session) toRPN(text token.Token, table *OperatorTable) ([]rpnItem, bool) {
	lx := s.newLexer(text)
	var out []rpnItem
	var ops []opEntry
	expectOperand := true

	popOperator := func() {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		out = append(out, rpnItem{tok: top.tok, op: top.op})
	}

	for {
		tok := lx.Next()
		if tok.IsEOF() {
			break
		}
		switch {
		case isPunct(tok, "("):
			ops = append(ops, opEntry{tok: tok, paren: true})
			expectOperand = true

		case isPunct(tok, ")"), isPunct(tok, ","):
			for len(ops) > 0 && !ops[len(ops)-1].paren {
				popOperator()
			}
			if tok.Value == "," {
				expectOperand = true
				continue
			}
			if len(ops) == 0 {
				s.errorf(diagnostic.BadExpression, tok, "unbalanced \")\" in expression")
				return nil, false
			}
			ops = ops[:len(ops)-1]
			if len(ops) > 0 && !ops[len(ops)-1].paren {
				if _, ok := ops[len(ops)-1].op.(callOp); ok {
					popOperator()
				}
			}
			expectOperand = false

		case expectOperand && table.Prefix[tok.Value] != nil:
			ops = append(ops, opEntry{tok: tok, op: table.Prefix[tok.Value]})

		case !expectOperand && tok.Kind == token.Punct && hasBinary(table, tok.Value):
			op := table.Binary[tok.Value]
			for len(ops) > 0 && !ops[len(ops)-1].paren && ops[len(ops)-1].op.Precedence() >= op.Prec {
				popOperator()
			}
			ops = append(ops, opEntry{tok: tok, op: op})
			expectOperand = true

		case expectOperand && !table.BareNameDefined && tok.IsIdentifier() && s.isFunctionMacro(tok.Value) && !awaitingName(ops):
			ops = append(ops, opEntry{tok: tok, op: callOp{macro: s.macros.Lookup(tok.Value)}})

		case expectOperand && isOperand(tok):
			out = append(out, rpnItem{tok: tok})
			expectOperand = false

		default:
			s.errorf(diagnostic.BadOperator, tok, "unsupported %s %q in %s", tok.Kind, tok.Value, table.Name)
			return nil, false
		}
	}

	for len(ops) > 0 {
		if ops[len(ops)-1].paren {
			s.errorf(diagnostic.BadExpression, ops[len(ops)-1].tok, "unbalanced \"(\" in expression")
			return nil, false
		}
		popOperator()
	}
	return out, true
}

// awaitingName reports whether the next operand is the operand of `defined`,
// with or without parentheses.
func awaitingName(ops []opEntry) bool {
	n := len(ops)
	if n > 0 && ops[n-1].paren {
		n--
	}
	if n == 0 {
		return false
	}
	_, ok := ops[n-1].op.(DefinedOp)
	return ok
}

func hasBinary(table *OperatorTable, op string) bool {
	_, ok := table.Binary[op]
	return ok
}

func isOperand(tok token.Token) bool {
	switch tok.Kind {
	case token.Ident, token.TypeName, token.Keyword, token.Int, token.Float, token.Bool:
		return true
	}
	return false
}

func (s *Session) isFunctionMacro(name string) bool {
	m := s.macros.Lookup(name)
	return m != nil && m.FunctionLike
}

// ----------------------------------------------------------------------------
// RPN evaluation
// ----------------------------------------------------------------------------

// rpnValue is an evaluation stack entry. Intermediate results carry their
// value; operands are resolved when an operator consumes them.
type rpnValue struct {
	tok   token.Token
	val   int64
	known bool
}

// evaluate computes the value of the expression in text. Malformed
// expressions are reported and evaluate to 0.
func (s *Session) evaluate(text token.Token, table *OperatorTable) int64 {
	rpn, ok := s.toRPN(text, table)
	if !ok {
		return 0
	}

	value := func(v rpnValue) int64 {
		switch {
		case v.known:
			return v.val
		case table.BareNameDefined && (v.tok.IsIdentifier() || v.tok.Kind == token.Keyword):
			return b2i(s.macros.IsDefined(v.tok.Value))
		}
		return s.asNumeric(v.tok)
	}

	var stack []rpnValue
	for _, item := range rpn {
		if item.op == nil {
			stack = append(stack, rpnValue{tok: item.tok})
			continue
		}
		n := item.op.Arity()
		if len(stack) < n {
			s.errorf(diagnostic.BadExpression, item.tok, "missing operand for %q", item.tok.Value)
			return 0
		}
		args := stack[len(stack)-n:]
		stack = stack[:len(stack)-n]
		toks := make([]token.Token, len(args))
		for i, a := range args {
			toks[i] = a.tok
		}

		var result int64
		switch op := item.op.(type) {
		case BinaryOp:
			r, err := op.Fn(value(args[0]), value(args[1]))
			if err != nil {
				s.errorf(diagnostic.DivisionByZero, token.Synthesize(token.Int, "", toks...), "%v", err)
			}
			result = r
		case UnaryOp:
			result = op.Fn(value(args[0]))
		case DefinedOp:
			name := args[0]
			if name.known || !(name.tok.IsIdentifier() || name.tok.Kind == token.Keyword) {
				s.errorf(diagnostic.BadExpression, item.tok, "defined expects a macro name")
				return 0
			}
			result = b2i(s.macros.IsDefined(name.tok.Value))
		case callOp:
			vals := make([]int64, len(args))
			for i, a := range args {
				vals[i] = value(a)
			}
			result = s.applyMacro(op.macro, item.tok, toks, vals)
		}
		from := append([]token.Token{item.tok}, toks...)
		stack = append(stack, rpnValue{
			tok:   token.Synthesize(token.Int, strconv.FormatInt(result, 10), from...),
			val:   result,
			known: true,
		})
	}

	if len(stack) != 1 {
		s.errorf(diagnostic.BadExpression, text, "malformed expression %q", text.Value)
		return 0
	}
	return value(stack[0])
}

// applyMacro evaluates the body of a function-like macro with its parameters
// bound to the argument values.
func (s *Session) applyMacro(m *Macro, call token.Token, args []token.Token, vals []int64) int64 {
	if m.Body == nil {
		return 0
	}
	if s.resolving[m.Name] {
		s.warnf(diagnostic.RecursiveMacro, call, "recursive reference to macro %q evaluates to 0", m.Name)
		return 0
	}
	s.resolving[m.Name] = true
	defer delete(s.resolving, m.Name)

	depth := s.macros.Push()
	defer s.macros.PopTo(depth)
	for i, p := range m.Params {
		v := token.Synthesize(token.Int, strconv.FormatInt(vals[i], 10), args[i])
		s.macros.Bind(&Macro{Name: p, Body: &v, param: true})
	}
	return s.evaluate(*m.Body, FullExpression)
}

// asNumeric coerces an operand to a number: boolean literals, numeric
// literals, or the value of the macro it names.
func (s *Session) asNumeric(t token.Token) int64 {
	switch t.Value {
	case "true":
		return 1
	case "false":
		return 0
	}
	if v, ok := parseNumber(t.Value); ok {
		return v
	}
	if !(t.IsIdentifier() || t.Kind == token.Keyword) {
		s.errorf(diagnostic.BadExpression, t, "%q is not a number", t.Value)
		return 0
	}

	m := s.macros.Lookup(t.Value)
	switch {
	case m == nil:
		s.warnf(diagnostic.UndefinedName, t, "%q is not defined, evaluating to 0", t.Value)
		return 0
	case m.FunctionLike:
		s.warnf(diagnostic.MacroWithoutCall, t, "function-like macro %q used without arguments", t.Value)
		return 0
	case m.Body == nil:
		return 0
	case s.resolving[m.Name]:
		s.warnf(diagnostic.RecursiveMacro, t, "recursive reference to macro %q evaluates to 0", m.Name)
		return 0
	}
	s.resolving[m.Name] = true
	defer delete(s.resolving, m.Name)
	return s.evaluate(*m.Body, FullExpression)
}

// parseNumber parses integer and floating point literals, suffixes included.
// Floating point values are truncated.
func parseNumber(v string) (int64, bool) {
	if v == "" || !(v[0] >= '0' && v[0] <= '9' || v[0] == '.') {
		return 0, false
	}
	isHex := strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X")
	trimmed := strings.TrimRight(v, "uUlL")
	if !isHex {
		trimmed = strings.TrimRight(trimmed, "fFhH")
	}
	if n, err := strconv.ParseInt(trimmed, 0, 64); err == nil {
		return n, true
	}
	if !isHex {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}
