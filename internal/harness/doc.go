// Package harness runs reading scenarios end to end against the real engine.
//
// A scenario declares instrument configuration in CUE, a list of steps
// (submissions and reading lifecycle operations) with optional expectations,
// and assertions over the resulting trace and store. Each run uses a fresh
// in-memory store, a deterministic clock and sequential reading ids
// ("reading-0001", ...), so the same scenario always produces the same
// trace.
//
// # Scenario Format
//
//	name: piezometer_alert
//	description: "A low reading raises ALERT"
//	config_files:
//	  - dam.cue            # relative to the scenario file
//	config: |              # inline CUE, compiled after config_files
//	  instrument: PZ02: {...}
//	steps:
//	  - submit:
//	      instrument: 1
//	      at: "2024-04-30T08:00:00Z"
//	      inputs: {L: 2, D: 4}
//	    expect:
//	      outcome: persisted
//	      outputs:
//	        COTA: {value: 510.4, status: ALERT}
//	  - configure: |       # replaces the instruments it declares
//	      instrument: PZ01: {...}
//	  - reprocess: {reading: reading-0001, actor: 9, reason: "fix"}
//	  - invalidate: {reading: reading-0001, reason: "suspect"}
//	  - restore: {reading: reading-0001}
//	  - comment: {reading: reading-0001, text: "checked"}
//	assertions:
//	  - type: outcome_count
//	    outcome: rejected
//	    count: 0
//	  - type: reading_count
//	    instrument: 1
//	    count: 1
//	  - type: history_count
//	    instrument: 1
//	    outputs: [30]
//	    statuses: [ALERT]
//	    count: 1
//	  - type: audit_count
//	    reading: reading-0001
//	    count: 3
//
// # Outcomes
//
//   - persisted: the reading was stored and every output computed
//   - partial: the reading was stored with at least one failure marker
//   - rejected: the submission or reprocess was refused; expect.code holds
//     the rejection code
//   - applied: a configure, invalidate, restore or comment step succeeded
//   - error: any other failure, such as an unknown reading id
//
// # Golden Traces
//
// RunWithGolden serializes the trace as canonical JSON and compares it with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
