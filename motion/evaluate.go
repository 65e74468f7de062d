package motion

import (
	"gonum.org/v1/gonum/floats"

	"github.com/swdee/go-posemotion/pose"
)

// RegionScore holds the displacement statistics of a single region for one
// pair of frames
type RegionScore struct {
	// Name of the region
	Name string
	// Sum of displacements of the qualifying points
	Sum float64
	// Count is the number of qualifying points
	Count int
	// Mean is Sum / Count, or zero if no point qualified
	Mean float64
	// Moving is true if the region met both thresholds
	Moving bool
}

// distance returns the euclidean displacement between two landmarks using the
// given policy
func distance(a, b pose.Landmark, policy DistancePolicy) float64 {

	p := [3]float64{a.X, a.Y, a.Z}
	q := [3]float64{b.X, b.Y, b.Z}

	n := 2
	if policy == Distance3D {
		n = 3
	}

	return floats.Distance(p[:n], q[:n], 2)
}

// Evaluate compares two landmark frames and scores every configured region.
// Region indices that fall outside of either frame are skipped.  The config
// is not validated, callers normally go through a Classifier.
func Evaluate(prev, cur []pose.Landmark, cfg Config) []RegionScore {

	scores := make([]RegionScore, len(cfg.Regions))

	for i, region := range cfg.Regions {
		scores[i] = scoreRegion(prev, cur, region, cfg)
	}

	return scores
}

// scoreRegion applies the per point and per region thresholds to a region
func scoreRegion(prev, cur []pose.Landmark, region Region, cfg Config) RegionScore {

	score := RegionScore{Name: region.Name}

	for _, idx := range region.Indices {
		if idx < 0 || idx >= len(prev) || idx >= len(cur) {
			// estimator topology does not cover this point
			continue
		}

		d := distance(prev[idx], cur[idx], cfg.Policy)

		if d > cfg.PointThreshold {
			score.Sum += d
			score.Count++
		}
	}

	if score.Count > 0 {
		score.Mean = score.Sum / float64(score.Count)
		score.Moving = score.Mean > cfg.RegionThreshold
	}

	return score
}
