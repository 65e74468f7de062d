// Package capture reads video frames from a camera device or a video file.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"gocv.io/x/gocv"
)

// DefaultFPS is used when neither the configuration nor the source report a
// frame rate
const DefaultFPS = 30

// Config defines the video source
type Config struct {
	// Device is the camera index, used when Path is empty
	Device int
	// Path is a video file or stream URL
	Path string
	// Width and Height request a capture resolution, zero keeps the source
	// resolution
	Width  int
	Height int
	// FPS paces Run, zero uses the source frame rate
	FPS float64
	// Loop restarts a video file when its last frame is reached
	Loop bool
}

// Source is an opened video source
type Source struct {
	cfg   Config
	video *gocv.VideoCapture
	fps   float64
}

// Open the video source
func Open(cfg Config) (*Source, error) {

	var (
		video *gocv.VideoCapture
		err   error
	)

	if cfg.Path != "" {
		video, err = gocv.VideoCaptureFile(cfg.Path)
	} else {
		video, err = gocv.VideoCaptureDevice(cfg.Device)
	}

	if err != nil {
		if video != nil {
			video.Close()
		}
		return nil, fmt.Errorf("error opening video source %s: %w", cfg.name(), err)
	}

	if !video.IsOpened() {
		video.Close()
		return nil, fmt.Errorf("video source %s could not be opened", cfg.name())
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		video.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		video.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}

	fps := cfg.FPS

	if fps <= 0 {
		fps = video.Get(gocv.VideoCaptureFPS)
	}

	if fps <= 0 {
		fps = DefaultFPS
	}

	return &Source{
		cfg:   cfg,
		video: video,
		fps:   fps,
	}, nil
}

// name describes the source for error messages
func (c Config) name() string {
	if c.Path != "" {
		return c.Path
	}

	return "device " + strconv.Itoa(c.Device)
}

// Size returns the frame width and height reported by the source
func (s *Source) Size() (int, int) {
	return int(s.video.Get(gocv.VideoCaptureFrameWidth)),
		int(s.video.Get(gocv.VideoCaptureFrameHeight))
}

// FPS returns the rate Run delivers frames at
func (s *Source) FPS() float64 {
	return s.fps
}

// Interval returns the time between frames
func (s *Source) Interval() time.Duration {
	return FrameInterval(s.fps)
}

// FrameInterval converts a frame rate into the time between frames
func FrameInterval(fps float64) time.Duration {
	if fps <= 0 {
		fps = DefaultFPS
	}

	return time.Duration(float64(time.Second) / fps)
}

// Read the next frame into img.  At the end of a video file io.EOF is
// returned, unless the source loops in which case reading continues from the
// first frame.
func (s *Source) Read(img *gocv.Mat) error {

	if ok := s.video.Read(img); ok && !img.Empty() {
		return nil
	}

	if !s.cfg.Loop || s.cfg.Path == "" {
		return io.EOF
	}

	// rewind video to start
	s.video.Set(gocv.VideoCapturePosFrames, 0)

	if ok := s.video.Read(img); !ok || img.Empty() {
		return io.EOF
	}

	return nil
}

// Run reads frames at the source frame rate and passes each to fn until the
// context is cancelled, the source ends or fn returns an error.  The Mat
// passed to fn is reused between calls.
func (s *Source) Run(ctx context.Context, fn func(seq uint64, img gocv.Mat) error) error {

	img := gocv.NewMat()
	defer img.Close()

	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if err := s.Read(&img); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}

			seq++

			if err := fn(seq, img); err != nil {
				return err
			}
		}
	}
}

// Close the video source
func (s *Source) Close() error {
	return s.video.Close()
}
