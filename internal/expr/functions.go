package expr

import (
	"fmt"
	"math"
	"sort"
)

type function struct {
	minArgs int
	maxArgs int // -1 for variadic
	call    func(name string, args []float64) (float64, error)
}

func (f function) arity() string {
	switch {
	case f.maxArgs < 0:
		return fmt.Sprintf("at least %d argument(s)", f.minArgs)
	case f.minArgs == f.maxArgs && f.minArgs == 1:
		return "1 argument"
	case f.minArgs == f.maxArgs:
		return fmt.Sprintf("%d arguments", f.minArgs)
	default:
		return fmt.Sprintf("%d to %d arguments", f.minArgs, f.maxArgs)
	}
}

func unary(fn func(float64) float64) function {
	return function{minArgs: 1, maxArgs: 1, call: func(_ string, args []float64) (float64, error) {
		return fn(args[0]), nil
	}}
}

// guarded wraps a unary function with a domain predicate.
func guarded(fn func(float64) float64, ok func(float64) bool, domain string) function {
	return function{minArgs: 1, maxArgs: 1, call: func(name string, args []float64) (float64, error) {
		if !ok(args[0]) {
			return 0, domainError(name, "argument %v outside domain %s", args[0], domain)
		}
		return fn(args[0]), nil
	}}
}

func positive(x float64) bool    { return x > 0 }
func nonNegative(x float64) bool { return x >= 0 }
func unit(x float64) bool        { return x >= -1 && x <= 1 }

// functions is the allow-list of callable functions. log and ln are both the
// natural logarithm.
var functions = map[string]function{
	"sqrt":  guarded(math.Sqrt, nonNegative, "x >= 0"),
	"cbrt":  unary(math.Cbrt),
	"abs":   unary(math.Abs),
	"log":   guarded(math.Log, positive, "x > 0"),
	"ln":    guarded(math.Log, positive, "x > 0"),
	"log10": guarded(math.Log10, positive, "x > 0"),
	"exp":   unary(math.Exp),
	"sin":   unary(math.Sin),
	"cos":   unary(math.Cos),
	"tan":   unary(math.Tan),
	"asin":  guarded(math.Asin, unit, "-1 <= x <= 1"),
	"acos":  guarded(math.Acos, unit, "-1 <= x <= 1"),
	"atan":  unary(math.Atan),
	"sinh":  unary(math.Sinh),
	"cosh":  unary(math.Cosh),
	"tanh":  unary(math.Tanh),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"pow": {minArgs: 2, maxArgs: 2, call: func(name string, args []float64) (float64, error) {
		return power(name, args[0], args[1])
	}},
	"atan2": {minArgs: 2, maxArgs: 2, call: func(_ string, args []float64) (float64, error) {
		return math.Atan2(args[0], args[1]), nil
	}},
	"min": {minArgs: 1, maxArgs: -1, call: func(_ string, args []float64) (float64, error) {
		m := args[0]
		for _, a := range args[1:] {
			m = math.Min(m, a)
		}
		return m, nil
	}},
	"max": {minArgs: 1, maxArgs: -1, call: func(_ string, args []float64) (float64, error) {
		m := args[0]
		for _, a := range args[1:] {
			m = math.Max(m, a)
		}
		return m, nil
	}},
}

// Functions returns the names of the allow-listed functions, sorted.
func Functions() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
