package render

import (
	"image"

	"gocv.io/x/gocv"
)

// MotionLabel writes the motion label across the top of the image and
// returns the height of the label strip
func MotionLabel(img *gocv.Mat, text string, font Font) int {
	return labelAt(img, text, font, 0)
}

// ErrorLabel writes an error message in a strip starting at row top, eg:
// below the motion label.  Returns the bottom row of the strip.
func ErrorLabel(img *gocv.Mat, text string, font Font, top int) int {
	return top + labelAt(img, text, font, top)
}

// labelAt draws text in a strip whose top edge is at row top and returns the
// strip height
func labelAt(img *gocv.Mat, text string, font Font, top int) int {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)
	height := textSize.Y + font.TopPad + font.BottomPad

	if font.Background.A > 0 {
		// blank out background video behind the text
		rect := image.Rect(0, top, img.Cols(), top+height)
		gocv.Rectangle(img, rect, font.Background, -1)
	}

	gocv.PutTextWithParams(img, text,
		image.Pt(font.LeftPad, top+font.TopPad+textSize.Y),
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)

	return height
}
