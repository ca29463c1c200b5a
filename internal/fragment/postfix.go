package fragment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse is wrapped by every postfix parse failure.
var ErrParse = errors.New("invalid postfix expression")

// ParseError describes where a postfix expression went wrong.
type ParseError struct {
	Pos    int    // token index, or -1 for end-of-input checks
	Token  string // offending token, empty for end-of-input checks
	Reason string
}

func (e *ParseError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("%s: %s", ErrParse, e.Reason)
	}
	return fmt.Sprintf("%s: token %d %q: %s", ErrParse, e.Pos, e.Token, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ToPostfix serializes the tree in post-order: children first, then the
// operator token, separated by single spaces. Terminals are "D<index>".
func ToPostfix(n Node) string {
	return string(n.appendPostfix(make([]byte, 0, 32)))
}

func (t *Terminal) appendPostfix(buf []byte) []byte {
	buf = append(buf, 'D')
	return strconv.AppendInt(buf, int64(t.Var), 10)
}

func (u *Unary) appendPostfix(buf []byte) []byte {
	buf = u.Child.appendPostfix(buf)
	buf = append(buf, ' ')
	return append(buf, u.Op.Token()...)
}

func (b *Binary) appendPostfix(buf []byte) []byte {
	buf = b.Left.appendPostfix(buf)
	buf = append(buf, ' ')
	buf = b.Right.appendPostfix(buf)
	buf = append(buf, ' ')
	return append(buf, b.Op.Token()...)
}

// ParsePostfix rebuilds a tree from its postfix form.
func ParsePostfix(text string) (Node, error) {
	tokens := strings.Fields(text)
	stack := make([]Node, 0, len(tokens))

	for i, tok := range tokens {
		if op, ok := OpFromToken(tok); ok {
			k := op.Arity()
			if len(stack) < k {
				return nil, &ParseError{
					Pos:    i,
					Token:  tok,
					Reason: fmt.Sprintf("operator needs %d operands, have %d", k, len(stack)),
				}
			}
			if k == 1 {
				child := stack[len(stack)-1]
				stack[len(stack)-1] = &Unary{Op: op, Child: child}
				continue
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			stack = append(stack, &Binary{Op: op, Left: left, Right: right})
			continue
		}

		v, ok := parseTerminal(tok)
		if !ok {
			return nil, &ParseError{Pos: i, Token: tok, Reason: "unknown token"}
		}
		stack = append(stack, &Terminal{Var: v})
	}

	if len(stack) != 1 {
		return nil, &ParseError{Pos: -1, Reason: fmt.Sprintf("expected one root, stack size = %d", len(stack))}
	}
	return stack[0], nil
}

// parseTerminal accepts D<non-negative decimal integer>.
func parseTerminal(tok string) (int, bool) {
	if len(tok) < 2 || tok[0] != 'D' {
		return 0, false
	}
	digits := tok[1:]
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return v, true
}
