package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/swdee/go-posemotion/motion"
)

const (
	// panelRowPad is the vertical gap between panel rows in pixels
	panelRowPad = 8
	// panelMargin is the left and top margin of the panel
	panelMargin = 10
)

// Panel renders a side panel listing every region and its motion state
type Panel struct {
	width   int
	height  int
	regions []string
	face    font.Face
	// Background of the panel
	Background color.RGBA
	// IdleColor is used for region names that are not moving
	IdleColor color.RGBA
	// MovingColor is used for region names that are moving
	MovingColor color.RGBA
	// ErrorColor is used for the estimator error row
	ErrorColor color.RGBA
}

// NewPanel returns a Panel of the given size for the named regions.  A nil
// face uses the fixed size basic font.
func NewPanel(width, height int, regions []string, face font.Face) *Panel {

	if face == nil {
		face = basicfont.Face7x13
	}

	names := make([]string, len(regions))
	copy(names, regions)

	return &Panel{
		width:       width,
		height:      height,
		regions:     names,
		face:        face,
		Background:  color.RGBA{R: 24, G: 24, B: 24, A: 255},
		IdleColor:   color.RGBA{R: 160, G: 160, B: 160, A: 255},
		MovingColor: Green,
		ErrorColor:  Red,
	}
}

// LoadFontFace loads a TTF/OTF font file and returns a face of the given
// point size for use with NewPanel
func LoadFontFace(path string, size float64) (font.Face, error) {

	fontBytes, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create type face: %w", err)
	}

	return face, nil
}

// Width of the panel in pixels
func (p *Panel) Width() int {
	return p.width
}

// Height of the panel in pixels
func (p *Panel) Height() int {
	return p.height
}

// lineHeight returns the pixel height of one text row
func (p *Panel) lineHeight() int {
	return p.face.Metrics().Height.Ceil() + panelRowPad
}

// rowBaseline returns the baseline y coordinate of row i
func (p *Panel) rowBaseline(i int) int {
	return panelMargin + p.face.Metrics().Ascent.Ceil() + i*p.lineHeight()
}

// Draw renders the panel for the given result
func (p *Panel) Draw(res motion.Result) *image.RGBA {
	return p.DrawWithError(res, nil)
}

// DrawWithError renders the panel and, when estErr is not nil, a row below
// the regions reporting that the estimator failed on the frame
func (p *Panel) DrawWithError(res motion.Result, estErr error) *image.RGBA {

	rgba := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	draw.Draw(rgba, rgba.Bounds(), image.NewUniform(p.Background), image.Point{}, draw.Src)

	header := fmt.Sprintf("frame %d", res.Seq)

	if !res.Detected {
		header += "  no pose"
	}

	p.drawText(rgba, header, 0, White)

	for i, name := range p.regions {
		clr := p.IdleColor
		state := "idle"

		if res.IsMoving(name) {
			clr = p.MovingColor
			state = "moving"
		}

		// state marker left of the region name
		y := p.rowBaseline(i + 1)
		size := p.face.Metrics().Ascent.Ceil()
		marker := image.Rect(panelMargin, y-size, panelMargin+size, y)
		draw.Draw(rgba, marker, image.NewUniform(clr), image.Point{}, draw.Src)

		p.drawTextAt(rgba, fmt.Sprintf("%-9s %s", name, state),
			panelMargin+size+6, y, clr)
	}

	if estErr != nil {
		y := p.rowBaseline(len(p.regions) + 1)
		size := p.face.Metrics().Ascent.Ceil()
		marker := image.Rect(panelMargin, y-size, panelMargin+size, y)
		draw.Draw(rgba, marker, image.NewUniform(p.ErrorColor), image.Point{}, draw.Src)

		x := panelMargin + size + 6
		p.drawTextAt(rgba, p.fitText("error: "+estErr.Error(), p.width-x), x, y,
			p.ErrorColor)
	}

	return rgba
}

// fitText shortens text to fit within width pixels
func (p *Panel) fitText(text string, width int) string {

	runes := []rune(text)

	for len(runes) > 0 && font.MeasureString(p.face, string(runes)).Ceil() > width {
		runes = runes[:len(runes)-1]
	}

	return string(runes)
}

// drawText draws text on row i starting at the panel margin
func (p *Panel) drawText(dst *image.RGBA, text string, row int, clr color.RGBA) {
	p.drawTextAt(dst, text, panelMargin, p.rowBaseline(row), clr)
}

// drawTextAt draws text with its baseline at the given point
func (p *Panel) drawTextAt(dst *image.RGBA, text string, x, y int, clr color.RGBA) {
	dr := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(clr),
		Face: p.face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(x * 64),
			Y: fixed.Int26_6(y * 64),
		},
	}
	dr.DrawString(text)
}

// ToMat converts a rendered panel into a BGR Mat.  The caller must Close the
// returned Mat.
func ToMat(rgba *image.RGBA) (gocv.Mat, error) {

	b := rgba.Bounds()

	if b.Min != (image.Point{}) || rgba.Stride != b.Dx()*4 {
		tight := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(tight, tight.Bounds(), rgba, b.Min, draw.Src)
		rgba = tight
	}

	imgRGBA, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil || imgRGBA.Empty() {
		return gocv.NewMat(), fmt.Errorf("error creating Mat from RGBA")
	}

	defer imgRGBA.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(imgRGBA, &bgr, gocv.ColorRGBAToBGR)

	return bgr, nil
}

// AppendPanel places the rendered panel to the right of img and returns the
// combined image.  The panel is scaled to the height of img when they differ.
// The caller must Close the returned Mat.
func AppendPanel(img gocv.Mat, panel *image.RGBA) (gocv.Mat, error) {

	panelMat, err := ToMat(panel)

	if err != nil {
		return gocv.NewMat(), err
	}

	defer panelMat.Close()

	if panelMat.Rows() != img.Rows() {
		width := panelMat.Cols() * img.Rows() / panelMat.Rows()
		gocv.Resize(panelMat, &panelMat, image.Pt(width, img.Rows()), 0, 0,
			gocv.InterpolationLinear)
	}

	out := gocv.NewMat()
	gocv.Hconcat(img, panelMat, &out)

	return out, nil
}
