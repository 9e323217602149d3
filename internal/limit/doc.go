// Package limit classifies computed output values against safety limits.
//
// A deterministic limit holds up to three engineer-specified thresholds.
// Their polarity is either declared (ASCENDING: higher is worse, DESCENDING:
// lower is worse) or inferred from the ordering of the thresholds that are
// set. Thresholds that are neither strictly increasing nor strictly
// decreasing in severity order are a configuration error; the classifier
// never guesses an ordering.
//
// A statistical limit holds up to three nested lower/upper bands. A value at
// or beyond either bound of a band crosses it.
//
// Boundaries are inclusive everywhere: a value equal to a threshold is
// classified at that threshold's severity.
package limit
