package expr

import (
	"fmt"
	"math"
)

// Eval evaluates the expression against bindings keyed by NFC-normalized
// acronym.
func (e *Expression) Eval(bindings map[string]float64) (float64, error) {
	return e.root.eval(bindings)
}

func (n *Literal) eval(map[string]float64) (float64, error) {
	return n.Value, nil
}

func (n *Variable) eval(bindings map[string]float64) (float64, error) {
	v, ok := bindings[n.Name]
	if !ok {
		return 0, &EvalError{Kind: KindUnboundVariable, Symbol: n.Name, Message: "variable has no binding"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domainError(n.Name, "variable bound to non-finite value %v", v)
	}
	return v, nil
}

func (n *Unary) eval(bindings map[string]float64) (float64, error) {
	v, err := n.Operand.eval(bindings)
	if err != nil {
		return 0, err
	}
	if n.Op == '-' {
		return -v, nil
	}
	return v, nil
}

func (n *Binary) eval(bindings map[string]float64) (float64, error) {
	l, err := n.Left.eval(bindings)
	if err != nil {
		return 0, err
	}
	r, err := n.Right.eval(bindings)
	if err != nil {
		return 0, err
	}

	var v float64
	switch n.Op {
	case '+':
		v = l + r
	case '-':
		v = l - r
	case '*':
		v = l * r
	case '/':
		if r == 0 {
			return 0, &EvalError{Kind: KindDivisionByZero, Symbol: "/", Message: fmt.Sprintf("%v divided by zero", l)}
		}
		v = l / r
	case '^':
		v, err = power("^", l, r)
		if err != nil {
			return 0, err
		}
	default:
		return 0, fmt.Errorf("unknown operator %q", n.Op)
	}
	return checkFinite(string(n.Op), v)
}

func (n *Call) eval(bindings map[string]float64) (float64, error) {
	args := make([]float64, len(n.Args))
	for i, a := range n.Args {
		v, err := a.eval(bindings)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	v, err := functions[n.Name].call(n.Name, args)
	if err != nil {
		return 0, err
	}
	return checkFinite(n.Name, v)
}

func power(symbol string, base, exp float64) (float64, error) {
	if base == 0 && exp < 0 {
		return 0, &EvalError{Kind: KindDivisionByZero, Symbol: symbol, Message: fmt.Sprintf("zero raised to negative power %v", exp)}
	}
	if base < 0 && exp != math.Trunc(exp) {
		return 0, domainError(symbol, "negative base %v raised to non-integer power %v", base, exp)
	}
	return math.Pow(base, exp), nil
}

// checkFinite turns a non-finite intermediate into a typed error.
func checkFinite(symbol string, v float64) (float64, error) {
	switch {
	case math.IsInf(v, 0):
		return 0, &EvalError{Kind: KindOverflow, Symbol: symbol, Message: "result exceeds float64 range"}
	case math.IsNaN(v):
		return 0, domainError(symbol, "result is not a number")
	}
	return v, nil
}
