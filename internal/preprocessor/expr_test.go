package preprocessor

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/fwessels/shaderpp/internal/diagnostic"
	"github.com/fwessels/shaderpp/internal/token"
)

func evalIn(s *Session, expr string, table *OperatorTable) int64 {
	text := token.Token{Kind: token.MacroText, Name: "MACRO_TEXT", Value: expr, URI: testURI}
	return s.evaluate(text, table)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr  string
		want  int64
		codes []diagnostic.Code
	}{
		{"1+2*3", 7, nil},
		{"(1+2)*3", 9, nil},
		{"10/3", 3, nil},
		{"10%3", 1, nil},
		{"7-2-1", 4, nil},
		{"-2+5", 3, nil},
		{"-1 < 0", 1, nil},
		{"2-5 < 0", 1, nil},
		{"2-5", -3, nil},
		{"(2-5)*-1 == 3", 1, nil},
		{"1 / -1", -1, nil},
		{"-TEN", -10, nil},
		{"OFF < 0", 1, nil},
		{"MAX(-3, -7)", -3, nil},
		{"!0", 1, nil},
		{"!!7", 1, nil},
		{"1<2 && 2<=2", 1, nil},
		{"3>4 || 0", 0, nil},
		{"2>=3 || 1 != 1", 0, nil},
		{"1 + 2 * 3 == 7 && defined(FOO)", 1, nil},
		{"defined BAR", 0, nil},
		{"0x10", 16, nil},
		{"1.9", 1, nil},
		{"3u", 3, nil},
		{"true", 1, nil},
		{"false || FOO", 0, nil},
		{"TEN / 2", 5, nil},
		{"MAX(TEN, 3) + 1", 11, nil},
		{"MAX(1, MAX(5, 2))", 5, nil},
		{"UNDEF", 0, []diagnostic.Code{diagnostic.UndefinedName}},
		{"1/0", 0, []diagnostic.Code{diagnostic.DivisionByZero}},
		{"1 +", 0, []diagnostic.Code{diagnostic.BadExpression}},
		{"(1", 0, []diagnostic.Code{diagnostic.BadExpression}},
		{"1)", 0, []diagnostic.Code{diagnostic.BadExpression}},
		{"1 2", 0, []diagnostic.Code{diagnostic.BadOperator}},
		{"1 ? 2 : 3", 0, []diagnostic.Code{diagnostic.BadOperator}},
		{"MAX", 0, []diagnostic.Code{diagnostic.BadExpression}},
		{"SELF", 1, []diagnostic.Code{diagnostic.RecursiveMacro}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			diags := &diagnostic.List{}
			s := NewSession("", testURI, Options{Sink: diags})
			s.Define("FOO", "0")
			s.Define("TEN", "10")
			s.Define("OFF", "-4")
			s.Define("SELF", "SELF + 1")
			s.DefineFunc("MAX", []string{"a", "b"}, "(a > b) * a + (a <= b) * b")

			got := evalIn(s, tt.expr, FullExpression)
			if got != tt.want {
				t.Errorf("evaluate(%q) = %d, want %d", tt.expr, got, tt.want)
			}
			if diff := cmp.Diff(tt.codes, diags.Codes(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
			if got := s.Macros().Depth(); got != 1 {
				t.Errorf("macro table depth = %d after evaluation", got)
			}
		})
	}
}

func TestEvaluateDefinedCheck(t *testing.T) {
	tests := []struct {
		expr  string
		want  int64
		codes []diagnostic.Code
	}{
		{"FOO", 1, nil},
		{"BAR", 0, nil},
		{"!BAR", 1, nil},
		{"FOO && BAR", 0, nil},
		{"FOO || BAR", 1, nil},
		{"(FOO || BAR) && !BAR", 1, nil},
		{"FN", 1, nil},
		{"FOO + 1", 0, []diagnostic.Code{diagnostic.BadOperator}},
		{"FOO == 1", 0, []diagnostic.Code{diagnostic.BadOperator}},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			diags := &diagnostic.List{}
			s := NewSession("", testURI, Options{Sink: diags})
			// FOO is defined as 0: the check is about existence, not value
			s.Define("FOO", "0")
			s.DefineFunc("FN", []string{"x"}, "x")

			got := evalIn(s, tt.expr, DefinedCheck)
			if got != tt.want {
				t.Errorf("evaluate(%q) = %d, want %d", tt.expr, got, tt.want)
			}
			if diff := cmp.Diff(tt.codes, diags.Codes(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"0", 0, true},
		{"42", 42, true},
		{"0x1F", 31, true},
		{"0XffU", 255, true},
		{"017", 15, true},
		{"2.5", 2, true},
		{"1e3", 1000, true},
		{".5", 0, true},
		{"4.0f", 4, true},
		{"1.0h", 1, true},
		{"10L", 10, true},
		{"abc", 0, false},
		{"", 0, false},
		{"0xZZ", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseNumber(%q) = %d, %v, want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOperatorPrecedence(t *testing.T) {
	got := map[string]int{}
	for name, op := range FullExpression.Binary {
		got[name] = op.Precedence()
	}
	want := map[string]int{
		"||": 1, "&&": 2,
		"==": 3, "!=": 3,
		"<": 4, ">": 4, "<=": 4, ">=": 4,
		"+": 5, "-": 5,
		"*": 6, "/": 6, "%": 6,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("binary precedence mismatch (-want +got):\n%s", diff)
	}
	if FullExpression.Prefix["defined"].Arity() != 1 || DefinedCheck.Prefix["!"].Arity() != 1 {
		t.Error("prefix operators must be unary")
	}
	if _, ok := DefinedCheck.Binary["+"]; ok {
		t.Error("arithmetic in the defined check table")
	}
}
