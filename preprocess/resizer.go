// Package preprocess prepares captured frames for the pose estimator.
package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemotion/pose"
)

// Resizer letterboxes source frames to the estimator input size and maps the
// landmarks found on the letterboxed image back to the source frame
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat is a Mat used during the resize process
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling an image from the source
// frame size to the estimator input size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	// precalculate scaling dimensions
	r.preCalc()

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	r.yPad = (r.destHeight - r.resizeH) / 2 // padding height / 2
	r.xPad = (r.destWidth - r.resizeW) / 2  // padding width / 2
}

// Passthrough returns true when source and destination sizes match and no
// resizing is needed
func (r *Resizer) Passthrough() bool {
	return r.srcWidth == r.destWidth && r.srcHeight == r.destHeight
}

// LetterBoxResize resizes the input image to the estimator input size whilst
// maintaining image aspect.  Color is that used for letter box padding.
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) {

	if r.Passthrough() {
		src.CopyTo(dest)
		return
	}

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)
}

// Restore maps landmarks normalized to the letterboxed image back into
// landmarks normalized to the source frame.  Depth is scaled with x as pose
// estimators report z on the same scale as the image width.
func (r *Resizer) Restore(lms []pose.Landmark) []pose.Landmark {

	if len(lms) == 0 || r.Passthrough() {
		return lms
	}

	out := make([]pose.Landmark, len(lms))

	dw := float64(r.destWidth)
	dh := float64(r.destHeight)
	sw := float64(r.srcWidth)
	sh := float64(r.srcHeight)
	scale := float64(r.scale)

	for i, lm := range lms {
		out[i] = pose.Landmark{
			X:          (lm.X*dw - float64(r.xPad)) / scale / sw,
			Y:          (lm.Y*dh - float64(r.yPad)) / scale / sh,
			Z:          lm.Z * dw / scale / sw,
			Visibility: lm.Visibility,
		}
	}

	return out
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

// SrcWidth returns the width of the source image
func (r *Resizer) SrcWidth() int {
	return r.srcWidth
}

// SrcHeight returns the height of the source image
func (r *Resizer) SrcHeight() int {
	return r.srcHeight
}

// DestWidth returns the width of the estimator input
func (r *Resizer) DestWidth() int {
	return r.destWidth
}

// DestHeight returns the height of the estimator input
func (r *Resizer) DestHeight() int {
	return r.destHeight
}
