package render

import (
	"image/color"

	"gocv.io/x/gocv"
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Background is painted behind the text, a zero Alpha disables it
	Background color.RGBA
	// Padding to place around text
	LeftPad   int
	TopPad    int
	BottomPad int
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		TopPad:    4,
		BottomPad: 6,
	}
}

// LabelFont returns the font used for the motion banner, green text on a
// black strip
func LabelFont() Font {
	return Font{
		Face:       gocv.FontHersheySimplex,
		Scale:      0.7,
		Color:      Green,
		Thickness:  2,
		LineType:   gocv.LineAA,
		Background: Black,
		LeftPad:    10,
		TopPad:     8,
		BottomPad:  8,
	}
}

// ErrorFont returns the font used to report estimator failures, white text on
// a red strip
func ErrorFont() Font {
	return Font{
		Face:       gocv.FontHersheySimplex,
		Scale:      0.5,
		Color:      White,
		Thickness:  1,
		LineType:   gocv.LineAA,
		Background: Red,
		LeftPad:    10,
		TopPad:     6,
		BottomPad:  6,
	}
}
