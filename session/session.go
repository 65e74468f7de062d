// Package session ties an estimator pool and a motion classifier together for
// a single video stream.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swdee/go-posemotion"
	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
)

// Restorer maps landmarks from the estimator's input space back into the
// source frame, such as preprocess.Resizer
type Restorer interface {
	Restore(lms []pose.Landmark) []pose.Landmark
}

// FrameWriter persists classified frames, such as estimator.Recorder
type FrameWriter interface {
	Write(frame pose.Frame) error
}

// Options configure a Session
type Options struct {
	// ID of the session, a random UUID is used when empty
	ID string
	// Classifier is shared between sessions
	Classifier *motion.Classifier
	// Pool provides the estimators
	Pool *posemotion.Pool
	// Restorer is optional
	Restorer Restorer
	// Recorder is optional
	Recorder FrameWriter
	// Broadcaster receives every result, one is created when nil
	Broadcaster *Broadcaster
	Logger      *slog.Logger
}

// Input is one frame of the stream
type Input struct {
	Seq uint64
	// Timestamp of the frame, the classifier clock is used when zero
	Timestamp time.Time
	Image     posemotion.Image
}

// Output is the outcome of processing one frame
type Output struct {
	Landmarks []pose.Landmark
	Result    motion.Result
	// EstimatorErr is set when the estimator failed on this frame and it
	// was classified as no detection
	EstimatorErr error
}

// Session holds the motion state of one stream
type Session struct {
	id          string
	mu          sync.Mutex
	state       *motion.State
	classifier  *motion.Classifier
	pool        *posemotion.Pool
	restorer    Restorer
	recorder    FrameWriter
	broadcaster *Broadcaster
	log         *slog.Logger
}

// New returns a Session for the given options
func New(opts Options) (*Session, error) {

	if opts.Classifier == nil {
		return nil, errors.New("session requires a classifier")
	}

	if opts.Pool == nil {
		return nil, errors.New("session requires an estimator pool")
	}

	id := opts.ID

	if id == "" {
		id = uuid.NewString()
	}

	logger := opts.Logger

	if logger == nil {
		logger = slog.Default()
	}

	b := opts.Broadcaster

	if b == nil {
		b = NewBroadcaster()
	}

	return &Session{
		id:          id,
		state:       motion.NewState(),
		classifier:  opts.Classifier,
		pool:        opts.Pool,
		restorer:    opts.Restorer,
		recorder:    opts.Recorder,
		broadcaster: b,
		log:         logger.With("session", id),
	}, nil
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// Broadcaster returns the broadcaster results are published to
func (s *Session) Broadcaster() *Broadcaster {
	return s.broadcaster
}

// Classifier returns the classifier used by the session
func (s *Session) Classifier() *motion.Classifier {
	return s.classifier
}

// Process estimates the pose in the input image, classifies it against the
// previous frame and publishes the result.  A failing estimator is treated as
// no detection for the frame and reported in Output.EstimatorErr.  Context
// errors, a closed pool and io.EOF from an estimator that has run out of
// recorded frames are returned without classifying.
func (s *Session) Process(ctx context.Context, in Input) (Output, error) {

	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	var estErr error

	lms, err := s.estimate(ctx, in.Image)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, ctxErr
		}

		if errors.Is(err, posemotion.ErrPoolClosed) || errors.Is(err, io.EOF) {
			return Output{}, err
		}

		s.log.Warn("pose estimation failed", "seq", in.Seq, "error", err)
		lms = nil
		estErr = err
	}

	if len(lms) > 0 && s.restorer != nil {
		lms = s.restorer.Restore(lms)
	}

	frame := pose.Frame{
		Seq:       in.Seq,
		Timestamp: in.Timestamp,
		Landmarks: lms,
	}

	s.mu.Lock()

	var res motion.Result

	if in.Timestamp.IsZero() {
		res = s.classifier.Classify(frame, s.state)
	} else {
		res = s.classifier.ClassifyAt(frame, s.state, in.Timestamp)
	}

	s.mu.Unlock()

	if frame.Timestamp.IsZero() {
		frame.Timestamp = res.Timestamp
	}

	if s.recorder != nil {
		if err := s.recorder.Write(frame); err != nil {
			s.log.Error("failed to record frame", "seq", in.Seq, "error", err)
		}
	}

	s.log.Debug("frame classified", "seq", in.Seq, "detected", res.Detected,
		"moving", res.Label)

	s.broadcaster.Publish(Update{SessionID: s.id, Result: res})

	return Output{Landmarks: lms, Result: res, EstimatorErr: estErr}, nil
}

// estimate runs the image through an estimator borrowed from the pool
func (s *Session) estimate(ctx context.Context, img posemotion.Image) ([]pose.Landmark, error) {

	est, err := s.pool.Get(ctx)

	if err != nil {
		return nil, fmt.Errorf("error getting estimator: %w", err)
	}

	defer s.pool.Return(est)

	return est.Estimate(ctx, img)
}

// Reset clears the motion state, the next detected frame becomes the new
// baseline
func (s *Session) Reset() {

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Reset()
	s.log.Info("motion state reset")
}

// HasBaseline returns true once a pose has been detected
func (s *Session) HasBaseline() bool {

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.HasBaseline()
}
