// Package pose defines the landmark data produced by a pose estimator and the
// fixed index topologies of the supported estimators.
package pose

import "time"

// Landmark is a single body point produced by a pose estimator.  X and Y are
// normalized image fractions, conventionally in the range [0,1] though values
// are never clamped as estimators extrapolate points outside of the frame.
// Z is normalized depth on the same scale as X and is zero for estimators that
// only produce 2D points.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	// Visibility is the estimator's confidence the point is visible
	Visibility float64 `json:"visibility"`
}

// Frame is the ordered set of landmarks the estimator produced for one
// image.  An empty Landmarks slice means the estimator found no pose.
type Frame struct {
	// Seq is the frame sequence number within a stream
	Seq uint64
	// Timestamp is when the frame was captured
	Timestamp time.Time
	// Landmarks indexed by the estimator's topology
	Landmarks []Landmark
}

// Detected returns true if the estimator found a pose in the frame
func (f Frame) Detected() bool {
	return len(f.Landmarks) > 0
}

// CloneLandmarks returns a copy of the given landmarks so callers can retain
// them without aliasing estimator owned buffers
func CloneLandmarks(lms []Landmark) []Landmark {
	if lms == nil {
		return nil
	}

	out := make([]Landmark, len(lms))
	copy(out, lms)

	return out
}

// FromRows converts rows of [x, y, z, visibility] values into landmarks.
// Rows may omit trailing values, a row of [x, y] produces a 2D landmark with
// zero depth and visibility.  Rows with fewer than two values are kept as a
// zero landmark so the index topology is preserved.
func FromRows(rows [][]float64) []Landmark {

	lms := make([]Landmark, len(rows))

	for i, row := range rows {
		if len(row) < 2 {
			continue
		}

		lms[i].X = row[0]
		lms[i].Y = row[1]

		if len(row) > 2 {
			lms[i].Z = row[2]
		}

		if len(row) > 3 {
			lms[i].Visibility = row[3]
		}
	}

	return lms
}

// ToRows converts landmarks into rows of [x, y, z, visibility] values
func ToRows(lms []Landmark) [][]float64 {

	rows := make([][]float64, len(lms))

	for i, lm := range lms {
		rows[i] = []float64{lm.X, lm.Y, lm.Z, lm.Visibility}
	}

	return rows
}
