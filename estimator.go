package posemotion

import (
	"context"

	"github.com/swdee/go-posemotion/pose"
)

// Image is an encoded video frame passed to an Estimator
type Image struct {
	// Seq is the frame sequence number
	Seq uint64
	// Data is the encoded image, normally JPEG
	Data []byte
	// Width and Height of the decoded image in pixels
	Width  int
	Height int
}

// Estimator produces pose landmarks for an image.  Implementations return an
// empty slice when no pose is found, errors are reserved for failures of the
// estimator itself.  An Estimator is used by one caller at a time, use a Pool
// to share estimators between streams.
type Estimator interface {
	// Estimate returns the landmarks of the pose found in the image
	Estimate(ctx context.Context, img Image) ([]pose.Landmark, error)
	// Topology describes the landmarks the estimator produces
	Topology() pose.Topology
	// Close releases the estimator resources
	Close() error
}
