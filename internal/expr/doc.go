// Package expr parses and evaluates output equations.
//
// The grammar is a small arithmetic language, not a scripting engine:
//
//	expr    := term (('+' | '-') term)*
//	term    := unary (('*' | '/') unary)*
//	unary   := ('-' | '+') unary | power
//	power   := primary (('^' | '**') unary)?
//	primary := number | ident | ident '(' args ')' | '(' expr ')'
//	args    := expr (',' expr)*
//
// Exponentiation is right-associative and binds tighter than unary minus, so
// "-x^2" is "-(x^2)" and "2^3^2" is "2^(3^2)".
//
// Identifiers are NFC-normalized and case-sensitive. They start with a letter
// or underscore and continue with letters, digits, marks or underscores, which
// admits acronyms such as "X1" or "π". Function names come from a fixed
// allow-list (see Functions); any other call is a parse error.
//
// A parsed Expression is immutable and safe for concurrent use. Evaluation
// is pure: identical bindings always produce bit-identical results. Division
// by zero, domain violations and non-finite results are reported as
// EvalError, never returned as NaN or Inf.
package expr
