// Package render draws pose and motion results onto video frames.
package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
)

// SkeletonStyle defines the parameters used for rendering the pose skeleton
type SkeletonStyle struct {
	LineThickness int
	JointRadius   int
	// MovingColor is used for joints and limbs of moving regions
	MovingColor color.RGBA
	// MinVisibility hides landmarks the estimator is not confident about,
	// zero draws every landmark
	MinVisibility float64
}

// DefaultSkeletonStyle returns default skeleton style settings
func DefaultSkeletonStyle() SkeletonStyle {
	return SkeletonStyle{
		LineThickness: 2,
		JointRadius:   3,
		MovingColor:   Red,
	}
}

// toPixel converts a normalized landmark into a pixel location on the image
func toPixel(lm pose.Landmark, cols, rows int) image.Point {
	return image.Pt(int(lm.X*float64(cols)), int(lm.Y*float64(rows)))
}

// jointColors works out the color of every landmark index.  A joint takes
// the color of the first region it belongs to, or the moving color if any of
// its regions is moving.
func jointColors(regions []pose.Region, res motion.Result,
	style SkeletonStyle) map[int]color.RGBA {

	colors := make(map[int]color.RGBA)

	for i, r := range regions {
		clr := RegionColor(r.Name, i)

		for _, idx := range r.Indices {
			if _, set := colors[idx]; !set {
				colors[idx] = clr
			}
		}
	}

	// moving takes precedence over an idle color
	for _, r := range regions {
		if !res.IsMoving(r.Name) {
			continue
		}
		for _, idx := range r.Indices {
			colors[idx] = style.MovingColor
		}
	}

	return colors
}

// Skeleton renders the pose landmarks and the lines between them, coloring
// the joints of moving regions with the moving color
func Skeleton(img *gocv.Mat, topology pose.Topology, regions []pose.Region,
	lms []pose.Landmark, res motion.Result, style SkeletonStyle) {

	if len(lms) == 0 {
		return
	}

	cols := img.Cols()
	rows := img.Rows()
	colors := jointColors(regions, res, style)

	visible := func(idx int) bool {
		return idx >= 0 && idx < len(lms) && lms[idx].Visibility >= style.MinVisibility
	}

	colorOf := func(idx int) color.RGBA {
		if clr, ok := colors[idx]; ok {
			return clr
		}
		return White
	}

	// draw skeleton lines
	for _, e := range topology.Edges {
		if !visible(e[0]) || !visible(e[1]) {
			continue
		}

		clr := colorOf(e[1])
		if colorOf(e[0]) == style.MovingColor {
			clr = style.MovingColor
		}

		gocv.Line(img, toPixel(lms[e[0]], cols, rows), toPixel(lms[e[1]], cols, rows),
			clr, style.LineThickness)
	}

	// draw circles at skeleton joints
	for idx := range lms {
		if !visible(idx) {
			continue
		}

		gocv.Circle(img, toPixel(lms[idx], cols, rows), style.JointRadius,
			colorOf(idx), -1)
	}
}
