package preprocess

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"github.com/swdee/go-posemotion/pose"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 480, 0, 60, 0.50},
		{1920, 1080, 640, 480, 0, 60, 0.33333334},
		{800, 1000, 640, 480, 128, 0, 0.48},
		{640, 480, 640, 480, 0, 0, 1},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)

		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)

		resizer.LetterBoxResize(img, &resizedImg, black)

		assert.Equal(t, tc.expectedXPad, resizer.XPad(), "src (%d, %d) xpad", tc.srcWidth, tc.srcHeight)
		assert.Equal(t, tc.expectedYPad, resizer.YPad(), "src (%d, %d) ypad", tc.srcWidth, tc.srcHeight)
		assert.InDelta(t, tc.expectedScale, resizer.ScaleFactor(), 1e-6)

		assert.Equal(t, tc.resizeWidth, resizedImg.Cols())
		assert.Equal(t, tc.resizeHeight, resizedImg.Rows())

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestRestoreLandmarks(t *testing.T) {
	// 1280x720 source letterboxed into 640x480 has 60px bars top and bottom
	resizer := NewResizer(1280, 720, 640, 480)
	defer resizer.Close()

	lms := []pose.Landmark{
		// top left of the image content, below the top bar
		{X: 0, Y: 60.0 / 480, Visibility: 0.8},
		// centre of the frame
		{X: 0.5, Y: 0.5, Z: 0.1},
		// bottom right of the content
		{X: 1, Y: 420.0 / 480},
	}

	out := resizer.Restore(lms)

	assert.InDelta(t, 0, out[0].X, 1e-9)
	assert.InDelta(t, 0, out[0].Y, 1e-9)
	assert.Equal(t, 0.8, out[0].Visibility)

	assert.InDelta(t, 0.5, out[1].X, 1e-9)
	assert.InDelta(t, 0.5, out[1].Y, 1e-9)
	assert.InDelta(t, 0.1, out[1].Z, 1e-9)

	assert.InDelta(t, 1, out[2].X, 1e-9)
	assert.InDelta(t, 1, out[2].Y, 1e-9)

	// inputs are not modified
	assert.Equal(t, 0.5, lms[1].X)
}

func TestRestorePassthrough(t *testing.T) {
	resizer := NewResizer(640, 480, 640, 480)
	defer resizer.Close()

	lms := []pose.Landmark{{X: 0.25, Y: 0.75}}
	assert.Equal(t, lms, resizer.Restore(lms))
	assert.Nil(t, resizer.Restore(nil))
}
