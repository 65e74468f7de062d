package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"

	"github.com/swdee/go-posemotion"
	"github.com/swdee/go-posemotion/config"
	"github.com/swdee/go-posemotion/pose"
	"github.com/swdee/go-posemotion/preprocess"
	"github.com/swdee/go-posemotion/render"
	"github.com/swdee/go-posemotion/session"
)

// Pipeline estimates, classifies and annotates each captured frame
type Pipeline struct {
	sess     *session.Session
	resizer  *preprocess.Resizer
	topology pose.Topology
	regions  []pose.Region
	opts     config.RenderConfig
	panel    *render.Panel
	skeleton render.SkeletonStyle
	halo     render.HaloStyle
	font     render.Font
	errFont  render.Font
	frames   *frameHub
	log      *slog.Logger
	// inputMat holds the letterboxed frame sent to the estimator
	inputMat gocv.Mat
	// fps is the measured processing rate
	fps        float64
	frameCount int
	fpsStart   time.Time
}

// NewPipeline returns a pipeline for frames of the given source size
func NewPipeline(cfg *config.Config, sess *session.Session, resizer *preprocess.Resizer,
	topology pose.Topology, frames *frameHub, logger *slog.Logger) (*Pipeline, error) {

	p := &Pipeline{
		sess:     sess,
		resizer:  resizer,
		topology: topology,
		regions:  sess.Classifier().Config().Regions,
		opts:     cfg.Render,
		skeleton: render.DefaultSkeletonStyle(),
		halo:     render.DefaultHaloStyle(),
		font:     render.LabelFont(),
		errFont:  render.ErrorFont(),
		frames:   frames,
		log:      logger,
		inputMat: gocv.NewMat(),
		fpsStart: time.Now(),
	}

	if cfg.Render.HaloPadding > 0 {
		p.halo.Padding = cfg.Render.HaloPadding
	}

	if cfg.Render.Panel {
		var face font.Face

		if cfg.Render.Font != "" {
			f, err := render.LoadFontFace(cfg.Render.Font, cfg.Render.FontSize)

			if err != nil {
				return nil, fmt.Errorf("error loading panel font: %w", err)
			}

			face = f
		}

		height := cfg.Source.Height

		if resizer != nil {
			height = resizer.SrcHeight()
		}

		if height <= 0 {
			height = 480
		}

		p.panel = render.NewPanel(cfg.Render.PanelWidth, height,
			sess.Classifier().RegionNames(), face)
	}

	return p, nil
}

// Close frees the Mats held by the pipeline
func (p *Pipeline) Close() error {
	return p.inputMat.Close()
}

// Handle processes one captured frame
func (p *Pipeline) Handle(ctx context.Context, seq uint64, img gocv.Mat) error {

	input := img

	if p.resizer != nil && !p.resizer.Passthrough() {
		p.resizer.LetterBoxResize(img, &p.inputMat, render.Black)
		input = p.inputMat
	}

	data, err := encodeJPEG(input, p.opts.JPEGQuality)

	if err != nil {
		return fmt.Errorf("error encoding estimator input: %w", err)
	}

	out, err := p.sess.Process(ctx, session.Input{
		Seq: seq,
		Image: posemotion.Image{
			Seq:    seq,
			Data:   data,
			Width:  input.Cols(),
			Height: input.Rows(),
		},
	})

	if err != nil {
		return err
	}

	p.updateFPS()

	// annotate a copy so the capture Mat can be reused
	resImg := img.Clone()
	defer resImg.Close()

	p.annotate(&resImg, seq, out)

	outImg := resImg

	if p.panel != nil {
		combined, err := render.AppendPanel(resImg,
			p.panel.DrawWithError(out.Result, out.EstimatorErr))

		if err != nil {
			p.log.Warn("error appending side panel", "error", err)
		} else {
			defer combined.Close()
			outImg = combined
		}
	}

	frame, err := encodeJPEG(outImg, p.opts.JPEGQuality)

	if err != nil {
		return fmt.Errorf("error encoding annotated frame: %w", err)
	}

	p.frames.Publish(frame)

	return nil
}

// annotate draws the pose and motion state onto the frame.  An estimator
// failure is shown in a banner even when the motion label is disabled.
func (p *Pipeline) annotate(img *gocv.Mat, seq uint64, out session.Output) {

	lms, res := out.Landmarks, out.Result

	if p.opts.Halo {
		render.RegionHalo(img, p.regions, lms, res, p.halo)
	}

	if p.opts.Skeleton {
		render.Skeleton(img, p.topology, p.regions, lms, res, p.skeleton)
	}

	top := 0

	if p.opts.Label {
		top = render.MotionLabel(img, fmt.Sprintf("Motion: %s", res.Label), p.font)
	}

	if out.EstimatorErr != nil {
		render.ErrorLabel(img, fmt.Sprintf("Estimator error: %v", out.EstimatorErr),
			p.errFont, top)
	}

	if p.opts.Label {

		// frame stats in the bottom left corner
		gocv.PutTextWithParams(img, fmt.Sprintf("Frame: %d, FPS: %.2f", seq, p.fps),
			image.Pt(4, img.Rows()-8), gocv.FontHersheySimplex, 0.5, render.Pink, 1,
			gocv.LineAA, false)
	}
}

// updateFPS recalculates the processing rate once a second
func (p *Pipeline) updateFPS() {
	p.frameCount++
	elapsed := time.Since(p.fpsStart).Seconds()

	if elapsed >= 1.0 {
		p.fps = float64(p.frameCount) / elapsed
		p.frameCount = 0
		p.fpsStart = time.Now()
	}
}

// encodeJPEG encodes the Mat and copies the result out of C memory
func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img,
		[]int{gocv.IMWriteJpegQuality, quality})

	if err != nil {
		return nil, err
	}

	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}
