// Package history compiles read queries over computed output values into
// parameterized SQL for the store.
//
// Every compiled query:
//   - orders by measured_at ASC, reading id ASC, output id ASC so that
//     identical data always yields identical series
//   - passes every value as a parameter; nothing is interpolated
//   - excludes inactive readings unless IncludeInactive is set
//
// The time range is half-open: From is inclusive, To is exclusive.
package history
