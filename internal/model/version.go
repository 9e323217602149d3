package model

// Version constants recorded on every computed reading.
const (
	// SchemaVersion is the version of the persisted reading layout.
	SchemaVersion = "1"

	// EngineVersion is the reading computation engine version.
	EngineVersion = "0.3.0"
)
