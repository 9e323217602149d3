// Package calc computes the output values of an instrument from resolved
// bindings.
//
// Equations are compiled through an EquationCache, which is the only shared
// mutable state in the computation pipeline. Everything else in this package
// is pure: identical configuration and bindings always give identical
// results.
//
// Failure policy is partial: one output's failure never prevents its
// siblings from being computed. Each OutputResult carries either a value or
// a typed error (*expr.ParseError or *expr.EvalError).
package calc
