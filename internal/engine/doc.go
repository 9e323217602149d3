// Package engine turns measurement submissions into persisted readings.
//
// Each submission runs synchronously through five steps:
//
//  1. Validate: the instrument exists and is active, every submitted
//     acronym is a declared input, submitted once, with a finite value, and
//     every input referenced by an active output is present.
//  2. Resolve: constants and submitted inputs are merged into bindings.
//  3. Compute: every active output is evaluated and rounded. A failing
//     output is recorded on the reading and does not stop its siblings.
//  4. Classify: each computed output is compared against its limits.
//  5. Persist: the reading, its raw inputs and its outputs are written in
//     one transaction.
//
// A failure in steps 1-2 rejects the submission with a *RejectionError and
// nothing is written. Steps 3-4 never reject; their failures become
// per-output error markers.
//
// The engine holds no state across submissions other than the compiled
// equation cache, which is safe for concurrent use. Submit and Reprocess may
// be called from any number of goroutines; ordering between readings is left
// to the store.
package engine
