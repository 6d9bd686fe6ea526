package models

import "time"

// RunSnapshot is the persisted JSON record of one complete multi-code fetch
// invocation, written by the state manager at the end of each run.
type RunSnapshot struct {
	Timestamp   time.Time      `json:"timestamp"`
	Params      map[string]any `json:"params"`
	Summary     map[string]any `json:"summary"`
	FailedCodes []string       `json:"failed_codes"`
}

// SnapshotInfo annotates a snapshot with its on-disk provenance for
// diagnostics listings.
type SnapshotInfo struct {
	RunSnapshot
	Filename string    `json:"filename"`
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
}
