package motion

import (
	"strings"
	"time"
)

// Result is the outcome of classifying one frame
type Result struct {
	// Seq is the sequence number of the classified frame
	Seq uint64 `json:"seq"`
	// Timestamp is the time used to classify the frame
	Timestamp time.Time `json:"timestamp"`
	// Moving are the names of the regions flagged as moving, in configuration
	// order
	Moving []string `json:"moving"`
	// Label is the human readable form of Moving
	Label string `json:"label"`
	// Detected is true if the frame contained a pose
	Detected bool `json:"detected"`
	// Evaluated is true if the frame was compared against a previous frame
	Evaluated bool `json:"evaluated"`
	// Scores are the per region statistics, only set when Evaluated
	Scores []RegionScore `json:"-"`
}

// Empty returns true if no region is moving
func (r Result) Empty() bool {
	return len(r.Moving) == 0
}

// IsMoving returns true if the named region is in the moving set
func (r Result) IsMoving(name string) bool {
	for _, m := range r.Moving {
		if m == name {
			return true
		}
	}

	return false
}

// label joins moving region names, or returns the empty label
func label(moving []string, cfg Config) string {
	if len(moving) == 0 {
		return cfg.EmptyLabel
	}

	return strings.Join(moving, cfg.Separator)
}
