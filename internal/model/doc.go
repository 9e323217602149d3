// Package model holds the value objects shared by every stage of the reading
// pipeline: instrument configuration, submissions, readings and limit
// statuses.
//
// This package imports nothing internal. All other internal packages import
// model; model imports nothing from them, which keeps it the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Entities reference each other by id; there are no back-pointers.
//   - Instrument configuration is loaded in full before a pipeline run and
//     treated as immutable for the duration of that run.
//   - Acronyms are compared case-sensitively after NFC normalization.
//   - All JSON tags use snake_case.
package model
