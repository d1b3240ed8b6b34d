package preprocessor

import "github.com/fwessels/shaderpp/internal/token"

// CondState records where an open #if chain stands.
type CondState uint8

const (
	// AllowElse: no branch of the chain was taken yet.
	AllowElse CondState = iota
	// ForbidElse: a branch was taken, later #elif and #else branches are skipped.
	ForbidElse
)

func (s CondState) String() string {
	if s == AllowElse {
		return "AllowElse"
	}
	return "ForbidElse"
}

// ---------------- Conditionals ----------------

type condStack struct {
	stack []condFrame
}

type condFrame struct {
	state  CondState
	opened token.Token // keyword of the directive that opened the chain
}

func (c *condStack) Depth() int { return len(c.stack) }

func (c *condStack) Push(state CondState, opened token.Token) {
	c.stack = append(c.stack, condFrame{state: state, opened: opened})
}

// Top returns the innermost open chain.
func (c *condStack) Top() (*condFrame, bool) {
	if len(c.stack) == 0 {
		return nil, false
	}
	return &c.stack[len(c.stack)-1], true
}

func (c *condStack) Pop() bool {
	if len(c.stack) == 0 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	return true
}

// Unclosed returns the keyword of the innermost chain still open.
func (c *condStack) Unclosed() token.Token {
	if top, ok := c.Top(); ok {
		return top.opened
	}
	return token.Token{}
}

// States returns the states from outermost to innermost.
func (c *condStack) States() []CondState {
	states := make([]CondState, len(c.stack))
	for i, f := range c.stack {
		states[i] = f.state
	}
	return states
}
