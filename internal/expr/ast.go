package expr

import (
	"strconv"
	"strings"
)

// Node is a node of a parsed expression tree. The set of node types is
// closed: Literal, Variable, Unary, Binary and Call.
type Node interface {
	eval(bindings map[string]float64) (float64, error)
	write(sb *strings.Builder)
	precedence() int
}

// Literal is a numeric constant.
type Literal struct {
	Value float64
}

// Variable is a reference to an input or constant acronym.
type Variable struct {
	Name string
}

// Unary is a prefix sign applied to an operand.
type Unary struct {
	Op      byte // '-' or '+'
	Operand Node
}

// Binary is an arithmetic operator applied to two operands.
type Binary struct {
	Op    byte // '+', '-', '*', '/' or '^'
	Left  Node
	Right Node
}

// Call is an invocation of an allow-listed function.
type Call struct {
	Name string
	Args []Node
}

// Operator precedence levels, used when printing.
const (
	precAdd = iota + 1
	precMul
	precUnary
	precPow
	precAtom
)

func (n *Literal) precedence() int  { return precAtom }
func (n *Variable) precedence() int { return precAtom }
func (n *Call) precedence() int     { return precAtom }
func (n *Unary) precedence() int    { return precUnary }

func (n *Binary) precedence() int {
	switch n.Op {
	case '+', '-':
		return precAdd
	case '*', '/':
		return precMul
	default:
		return precPow
	}
}

func (n *Literal) write(sb *strings.Builder) {
	sb.WriteString(strconv.FormatFloat(n.Value, 'g', -1, 64))
}

func (n *Variable) write(sb *strings.Builder) {
	sb.WriteString(n.Name)
}

func (n *Unary) write(sb *strings.Builder) {
	sb.WriteByte(n.Op)
	writeOperand(sb, n.Operand, n.Operand.precedence() < precUnary)
}

func (n *Binary) write(sb *strings.Builder) {
	p := n.precedence()
	if n.Op == '^' {
		// Right-associative; a signed base needs parentheses.
		writeOperand(sb, n.Left, n.Left.precedence() <= p)
		sb.WriteByte('^')
		writeOperand(sb, n.Right, n.Right.precedence() < p && n.Right.precedence() != precUnary)
		return
	}
	writeOperand(sb, n.Left, n.Left.precedence() < p)
	sb.WriteByte(' ')
	sb.WriteByte(n.Op)
	sb.WriteByte(' ')
	writeOperand(sb, n.Right, n.Right.precedence() <= p)
}

func (n *Call) write(sb *strings.Builder) {
	sb.WriteString(n.Name)
	sb.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
	sb.WriteByte(')')
}

func writeOperand(sb *strings.Builder, n Node, parens bool) {
	if parens {
		sb.WriteByte('(')
	}
	n.write(sb)
	if parens {
		sb.WriteByte(')')
	}
}
