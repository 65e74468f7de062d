package motion

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/swdee/go-posemotion/pose"
)

// ErrInvalidConfig is returned when a classifier configuration is rejected
var ErrInvalidConfig = errors.New("invalid motion configuration")

// Region is a named group of landmark indices
type Region = pose.Region

// DistancePolicy selects which coordinates are used to measure a landmark's
// displacement between frames
type DistancePolicy int

const (
	// Distance2D measures displacement using x and y only
	Distance2D DistancePolicy = 2
	// Distance3D measures displacement using x, y and z
	Distance3D DistancePolicy = 3
)

// String returns the text form of the policy
func (p DistancePolicy) String() string {
	switch p {
	case Distance2D:
		return "2d"
	case Distance3D:
		return "3d"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParseDistancePolicy parses "2d" or "3d" into a DistancePolicy
func ParseDistancePolicy(s string) (DistancePolicy, error) {

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "2d", "2":
		return Distance2D, nil
	case "3d", "3":
		return Distance3D, nil
	}

	return 0, fmt.Errorf("unknown distance policy %q, use 2d or 3d", s)
}

// Default values matching the majority of observed deployments
const (
	DefaultPointThreshold  = 0.01
	DefaultRegionThreshold = 0.015
	DefaultEmptyLabel      = "No motion detected"
	DefaultSeparator       = ", "
)

// Config defines the parameters used to classify region motion
type Config struct {
	// PointThreshold is the minimum displacement of a landmark between frames
	// for it to count as moved
	PointThreshold float64
	// RegionThreshold is the minimum average displacement, taken over only the
	// qualifying points of a region, for the region to be flagged as moving
	RegionThreshold float64
	// Policy selects 2D or 3D displacement
	Policy DistancePolicy
	// Regions are the body regions to classify, their order defines the order
	// of region names in results
	Regions []Region
	// Hold keeps a region flagged as moving for this long after the last frame
	// it qualified in.  Zero disables the hold so each result reflects only
	// the latest pair of frames.
	Hold time.Duration
	// EmptyLabel is the label used when no region is moving
	EmptyLabel string
	// Separator joins region names in a label
	Separator string
}

// DefaultConfig returns a Config for the given topology using 2D distances,
// a point threshold of 0.01, a region threshold of 0.015 and no hold
func DefaultConfig(topology pose.Topology) Config {
	return Config{
		PointThreshold:  DefaultPointThreshold,
		RegionThreshold: DefaultRegionThreshold,
		Policy:          Distance2D,
		Regions:         pose.CloneRegions(topology.Regions),
		EmptyLabel:      DefaultEmptyLabel,
		Separator:       DefaultSeparator,
	}
}

// HasHold returns true if the hold/decay window is configured
func (c Config) HasHold() bool {
	return c.Hold > 0
}

// Validate checks the configuration and returns an error wrapping
// ErrInvalidConfig describing every problem found
func (c Config) Validate() error {

	var problems []error

	if !(c.PointThreshold > 0) || math.IsInf(c.PointThreshold, 0) {
		problems = append(problems,
			fmt.Errorf("point threshold must be positive, got %v", c.PointThreshold))
	}

	if !(c.RegionThreshold > 0) || math.IsInf(c.RegionThreshold, 0) {
		problems = append(problems,
			fmt.Errorf("region threshold must be positive, got %v", c.RegionThreshold))
	}

	if c.Policy != Distance2D && c.Policy != Distance3D {
		problems = append(problems, fmt.Errorf("unknown distance policy %s", c.Policy))
	}

	if c.Hold < 0 {
		problems = append(problems, fmt.Errorf("hold must not be negative, got %s", c.Hold))
	}

	if len(c.Regions) == 0 {
		problems = append(problems, errors.New("no regions defined"))
	}

	seen := make(map[string]bool, len(c.Regions))

	for i, r := range c.Regions {
		if strings.TrimSpace(r.Name) == "" {
			problems = append(problems, fmt.Errorf("region %d has no name", i))
		} else if seen[r.Name] {
			problems = append(problems, fmt.Errorf("region %q defined more than once", r.Name))
		}

		seen[r.Name] = true

		if len(r.Indices) == 0 {
			problems = append(problems, fmt.Errorf("region %q has no landmark indices", r.Name))
		}

		for _, idx := range r.Indices {
			if idx < 0 {
				problems = append(problems,
					fmt.Errorf("region %q has negative landmark index %d", r.Name, idx))
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
}

// clone returns a deep copy of the configuration with defaults filled in
func (c Config) clone() Config {
	out := c
	out.Regions = pose.CloneRegions(c.Regions)

	if out.EmptyLabel == "" {
		out.EmptyLabel = DefaultEmptyLabel
	}

	if out.Separator == "" {
		out.Separator = DefaultSeparator
	}

	return out
}
