package model

import "time"

// RepairActionKind identifies what an operator did to resolve an unknown row.
type RepairActionKind string

const (
	// RepairAddPattern appends a pattern to the session rule table.
	RepairAddPattern RepairActionKind = "add_pattern"
	// RepairOverride sets the category of a single row.
	RepairOverride RepairActionKind = "override"
	// RepairAbort ends the session with rows still unknown.
	RepairAbort RepairActionKind = "abort"
)

// RepairAction is one audited operator decision taken during a repair session.
type RepairAction struct {
	CreatedAt       time.Time        `json:"created_at"`
	SessionID       string           `json:"session_id"`
	RawLabel        string           `json:"raw_label"`
	NormalizedLabel string           `json:"normalized_label"`
	Kind            RepairActionKind `json:"kind"`
	Category        CategoryName     `json:"category,omitempty"`
	Pattern         string           `json:"pattern,omitempty"`
	Resolved        int              `json:"resolved"`
	ID              int              `json:"id"`
}
