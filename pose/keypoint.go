package pose

// KeyPoint is a pixel coordinate keypoint as returned by YOLOv8-pose style
// post processors
type KeyPoint struct {
	X     int
	Y     int
	Score float32
}

// FromKeyPoints normalizes pixel keypoints into landmarks using the width and
// height of the image they were detected on.  The keypoint score is carried
// over as the landmark visibility.
func FromKeyPoints(kps []KeyPoint, width, height int) []Landmark {

	if len(kps) == 0 || width <= 0 || height <= 0 {
		return nil
	}

	lms := make([]Landmark, len(kps))

	for i, kp := range kps {
		lms[i] = Landmark{
			X:          float64(kp.X) / float64(width),
			Y:          float64(kp.Y) / float64(height),
			Visibility: float64(kp.Score),
		}
	}

	return lms
}
