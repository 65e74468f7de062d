package motion

import (
	"time"

	"github.com/swdee/go-posemotion/pose"
)

// State is the motion history of a single stream.  It holds the baseline
// frame the next frame is compared against and, when a hold is configured,
// the moving flag and last moved time of each region.  A State must only be
// used by one frame processing loop.
type State struct {
	// previous is the last frame with a detection, nil until the first one
	previous []pose.Landmark
	// moving flags each region currently considered moving
	moving map[string]bool
	// lastMoved is the time each region last qualified as moving
	lastMoved map[string]time.Time
}

// NewState returns an empty State with every region idle
func NewState() *State {
	return &State{
		moving:    make(map[string]bool),
		lastMoved: make(map[string]time.Time),
	}
}

// Reset clears the baseline and all region flags
func (s *State) Reset() {
	s.previous = nil
	s.moving = make(map[string]bool)
	s.lastMoved = make(map[string]time.Time)
}

// HasBaseline returns true once a frame with a detection has been recorded
func (s *State) HasBaseline() bool {
	return s.previous != nil
}

// Baseline returns a copy of the landmarks the next frame is compared against
func (s *State) Baseline() []pose.Landmark {
	return pose.CloneLandmarks(s.previous)
}

// Moving returns true if the named region is currently flagged as moving.
// Flags are only retained when a hold is configured.
func (s *State) Moving(name string) bool {
	return s.moving[name]
}

// LastMoved returns the time the named region last qualified as moving
func (s *State) LastMoved(name string) (time.Time, bool) {
	t, ok := s.lastMoved[name]
	return t, ok
}

// init lazily creates the maps for a zero value State
func (s *State) init() {
	if s.moving == nil {
		s.moving = make(map[string]bool)
	}

	if s.lastMoved == nil {
		s.lastMoved = make(map[string]time.Time)
	}
}

// setBaseline records the landmarks to compare the next frame against
func (s *State) setBaseline(lms []pose.Landmark) {
	s.previous = pose.CloneLandmarks(lms)
}

// flag marks a region as moving at the given time
func (s *State) flag(name string, now time.Time) {
	s.moving[name] = true
	s.lastMoved[name] = now
}

// expire clears a flagged region if the hold window has elapsed since it
// last qualified
func (s *State) expire(name string, now time.Time, hold time.Duration) {

	if !s.moving[name] {
		return
	}

	if now.Sub(s.lastMoved[name]) > hold {
		delete(s.moving, name)
		delete(s.lastMoved, name)
	}
}
