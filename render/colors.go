package render

import "image/color"

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
	Pink   = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red    = color.RGBA{R: 255, G: 51, B: 51, A: 255}
	Gray   = color.RGBA{R: 96, G: 96, B: 96, A: 255}

	// posePalette are the colors used for the skeleton/pose
	posePalette = []color.RGBA{
		{R: 255, G: 128, B: 0, A: 255},   // #FF8000
		{R: 255, G: 153, B: 255, A: 255}, // #FF99FF
		{R: 51, G: 153, B: 255, A: 255},  // #3399FF
		{R: 0, G: 255, B: 0, A: 255},     // #00FF00
		{R: 230, G: 230, B: 0, A: 255},   // #E6E600
		{R: 102, G: 178, B: 255, A: 255}, // #66B2FF
	}

	// regionColors are the idle colors of the built in body regions
	regionColors = map[string]color.RGBA{
		"Head":     posePalette[3],
		"Torso":    posePalette[1],
		"LeftArm":  posePalette[2],
		"RightArm": posePalette[5],
		"LeftLeg":  posePalette[0],
		"RightLeg": posePalette[4],
	}
)

// RegionColor returns the idle color for a region.  Regions outside of the
// built in set are assigned a palette color by their position i.
func RegionColor(name string, i int) color.RGBA {
	if clr, ok := regionColors[name]; ok {
		return clr
	}

	return posePalette[i%len(posePalette)]
}
