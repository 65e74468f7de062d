package motion

import (
	"fmt"
	"time"

	"github.com/swdee/go-posemotion/pose"
	"github.com/swdee/go-posemotion/timeutil"
)

// Classifier decides which regions of a pose are moving
type Classifier struct {
	cfg   Config
	clock timeutil.Clock
}

// NewClassifier returns a Classifier for the given configuration.  The
// configuration is validated and copied so later changes by the caller have
// no effect.  The clock is read for hold bookkeeping, pass nil to use the
// real clock.
func NewClassifier(cfg Config, clock timeutil.Clock) (*Classifier, error) {

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = timeutil.RealClock{}
	}

	return &Classifier{
		cfg:   cfg.clone(),
		clock: clock,
	}, nil
}

// MustClassifier is like NewClassifier but panics on an invalid configuration
func MustClassifier(cfg Config, clock timeutil.Clock) *Classifier {
	c, err := NewClassifier(cfg, clock)

	if err != nil {
		panic(fmt.Sprintf("motion: %v", err))
	}

	return c
}

// Config returns a copy of the classifier configuration
func (c *Classifier) Config() Config {
	return c.cfg.clone()
}

// RegionNames returns the configured region names in order
func (c *Classifier) RegionNames() []string {

	names := make([]string, len(c.cfg.Regions))

	for i, r := range c.cfg.Regions {
		names[i] = r.Name
	}

	return names
}

// Label returns the human readable form of a set of moving regions
func (c *Classifier) Label(moving []string) string {
	return label(moving, c.cfg)
}

// Classify updates the state with the frame and returns the regions moving,
// using the classifier clock as the current time
func (c *Classifier) Classify(frame pose.Frame, state *State) Result {
	return c.ClassifyAt(frame, state, c.clock.Now())
}

// ClassifyAt updates the state with the frame and returns the regions moving
// at the given time.
//
// A frame without a detection leaves the baseline untouched so the next
// detection is compared against the last one seen.  The first detection only
// records the baseline.  Otherwise each region is scored against the baseline
// and the baseline is replaced with the frame.
func (c *Classifier) ClassifyAt(frame pose.Frame, state *State, now time.Time) Result {

	state.init()

	res := Result{
		Seq:       frame.Seq,
		Timestamp: now,
		Detected:  frame.Detected(),
	}

	switch {
	case !frame.Detected():
		if c.cfg.HasHold() {
			c.expireAll(state, now)
			res.Moving = c.flagged(state)
		}

	case !state.HasBaseline():
		state.setBaseline(frame.Landmarks)

	default:
		res.Evaluated = true
		res.Scores = Evaluate(state.previous, frame.Landmarks, c.cfg)

		if c.cfg.HasHold() {
			for _, score := range res.Scores {
				if score.Moving {
					state.flag(score.Name, now)
				} else {
					state.expire(score.Name, now, c.cfg.Hold)
				}
			}

			res.Moving = c.flagged(state)

		} else {
			for _, score := range res.Scores {
				if score.Moving {
					res.Moving = append(res.Moving, score.Name)
				}
			}
		}

		state.setBaseline(frame.Landmarks)
	}

	res.Label = label(res.Moving, c.cfg)

	return res
}

// expireAll clears every region whose hold window has elapsed
func (c *Classifier) expireAll(state *State, now time.Time) {
	for _, r := range c.cfg.Regions {
		state.expire(r.Name, now, c.cfg.Hold)
	}
}

// flagged returns the regions flagged in the state, in configuration order
func (c *Classifier) flagged(state *State) []string {

	var moving []string

	for _, r := range c.cfg.Regions {
		if state.Moving(r.Name) {
			moving = append(moving, r.Name)
		}
	}

	return moving
}
