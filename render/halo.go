package render

import (
	"image"
	"image/color"

	clipper "github.com/ctessum/go.clipper"
	"gocv.io/x/gocv"

	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
)

// HaloStyle defines the parameters used for outlining moving regions
type HaloStyle struct {
	// Padding is the distance in pixels the outline is pushed out from the
	// region's landmarks
	Padding       int
	LineThickness int
	Color         color.RGBA
}

// DefaultHaloStyle returns default halo style settings
func DefaultHaloStyle() HaloStyle {
	return HaloStyle{
		Padding:       12,
		LineThickness: 1,
		Color:         Yellow,
	}
}

// RegionHalo draws an outline around the landmarks of every moving region
func RegionHalo(img *gocv.Mat, regions []pose.Region, lms []pose.Landmark,
	res motion.Result, style HaloStyle) {

	if len(lms) == 0 || res.Empty() {
		return
	}

	cols := img.Cols()
	rows := img.Rows()

	for _, r := range regions {
		if !res.IsMoving(r.Name) {
			continue
		}

		var points []image.Point

		for _, idx := range r.Indices {
			if idx >= 0 && idx < len(lms) {
				points = append(points, toPixel(lms[idx], cols, rows))
			}
		}

		drawPolygon(img, haloPolygons(points, style.Padding), style.Color,
			style.LineThickness)
	}
}

// haloPolygons returns the outline of the points' convex hull offset outwards
// by padding pixels with rounded corners.  One or two points are offset as an
// open path which produces a circle or capsule.
func haloPolygons(points []image.Point, padding int) [][]image.Point {

	hull := convexHull(points)

	if len(hull) == 0 {
		return nil
	}

	var path clipper.Path

	for _, pt := range hull {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	endType := clipper.EtClosedPolygon
	if len(hull) < 3 {
		endType = clipper.EtOpenRound
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, endType)

	solution := co.Execute(float64(padding))

	polys := make([][]image.Point, 0, len(solution))

	for _, sol := range solution {
		poly := make([]image.Point, 0, len(sol))

		for _, pt := range sol {
			poly = append(poly, image.Pt(int(pt.X), int(pt.Y)))
		}

		if len(poly) > 0 {
			polys = append(polys, poly)
		}
	}

	return polys
}

// convexHull returns the convex hull of the points.  Identical points
// collapse to one and collinear points to the two ends of the line, so fewer
// than three points may be returned.
func convexHull(points []image.Point) []image.Point {

	if len(points) == 0 {
		return nil
	}

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()

	hull := gocv.NewMat()
	defer hull.Close()

	gocv.ConvexHull(pv, &hull, false, true)

	if hull.Empty() {
		return nil
	}

	hullPts := gocv.NewPointVectorFromMat(hull)
	defer hullPts.Close()

	return hullPts.ToPoints()
}

// drawPolygon draws closed polygon outlines
func drawPolygon(img *gocv.Mat, polys [][]image.Point, clr color.RGBA, thickness int) {

	if len(polys) == 0 {
		return
	}

	ptsVec := gocv.NewPointsVectorFromPoints(polys)
	defer ptsVec.Close()

	gocv.Polylines(img, ptsVec, true, clr, thickness)
}
