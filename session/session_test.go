package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posemotion"
	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
	"github.com/swdee/go-posemotion/timeutil"
)

var errEstimator = errors.New("estimator exploded")

// scriptedEstimator returns the landmarks registered for an image sequence
// number, or an error when one is registered instead
type scriptedEstimator struct {
	frames map[uint64][]pose.Landmark
	errs   map[uint64]error
}

func (s *scriptedEstimator) Estimate(ctx context.Context, img posemotion.Image) ([]pose.Landmark, error) {
	if err := s.errs[img.Seq]; err != nil {
		return nil, err
	}
	return s.frames[img.Seq], nil
}

func (s *scriptedEstimator) Topology() pose.Topology {
	return pose.COCO17
}

func (s *scriptedEstimator) Close() error {
	return nil
}

// recordingWriter collects written frames
type recordingWriter struct {
	mu     sync.Mutex
	frames []pose.Frame
}

func (r *recordingWriter) Write(frame pose.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	return nil
}

// shiftRestorer offsets every landmark on the X axis
type shiftRestorer struct {
	dx float64
}

func (s shiftRestorer) Restore(lms []pose.Landmark) []pose.Landmark {
	out := pose.CloneLandmarks(lms)
	for i := range out {
		out[i].X += s.dx
	}
	return out
}

func restPose() []pose.Landmark {
	lms := make([]pose.Landmark, pose.COCO17.Size)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.5, Visibility: 1}
	}
	return lms
}

func leftArmRaised() []pose.Landmark {
	lms := restPose()
	for _, idx := range []int{7, 9} {
		lms[idx].Y -= 0.2
	}
	return lms
}

func newTestSession(t *testing.T, est *scriptedEstimator, opts Options) *Session {
	t.Helper()

	pool, err := posemotion.NewPool(1, func(int) (posemotion.Estimator, error) {
		return est, nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	cfg := motion.DefaultConfig(pose.COCO17)
	cfg.Hold = time.Second

	clock := timeutil.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	opts.Classifier = motion.MustClassifier(cfg, clock)
	opts.Pool = pool

	s, err := New(opts)
	require.NoError(t, err)

	return s
}

func input(seq uint64, at time.Duration) Input {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return Input{
		Seq:       seq,
		Timestamp: base.Add(at),
		Image:     posemotion.Image{Seq: seq},
	}
}

func TestSessionProcess(t *testing.T) {

	est := &scriptedEstimator{
		frames: map[uint64][]pose.Landmark{
			1: restPose(),
			2: leftArmRaised(),
			3: leftArmRaised(),
		},
	}

	s := newTestSession(t, est, Options{})
	ctx := context.Background()

	out, err := s.Process(ctx, input(1, 0))
	require.NoError(t, err)
	assert.True(t, out.Result.Detected)
	assert.False(t, out.Result.Evaluated)
	assert.Empty(t, out.Result.Moving)
	assert.True(t, s.HasBaseline())

	out, err = s.Process(ctx, input(2, 100*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []string{pose.LeftArm}, out.Result.Moving)
	assert.Equal(t, "LeftArm", out.Result.Label)

	// held within the decay window
	out, err = s.Process(ctx, input(3, 600*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []string{pose.LeftArm}, out.Result.Moving)
}

func TestSessionEstimatorErrorIsNoDetection(t *testing.T) {

	est := &scriptedEstimator{
		frames: map[uint64][]pose.Landmark{
			1: restPose(),
			3: leftArmRaised(),
		},
		errs: map[uint64]error{2: errEstimator},
	}

	s := newTestSession(t, est, Options{})
	ctx := context.Background()

	_, err := s.Process(ctx, input(1, 0))
	require.NoError(t, err)

	out, err := s.Process(ctx, input(2, 100*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, out.Result.Detected)
	assert.Empty(t, out.Landmarks)
	assert.ErrorIs(t, out.EstimatorErr, errEstimator)

	// baseline survived the failed frame
	out, err = s.Process(ctx, input(3, 200*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []string{pose.LeftArm}, out.Result.Moving)
	assert.NoError(t, out.EstimatorErr)
}

func TestSessionRecordingEndStopsStream(t *testing.T) {

	est := &scriptedEstimator{
		frames: map[uint64][]pose.Landmark{1: restPose()},
		errs:   map[uint64]error{2: fmt.Errorf("replay: %w", io.EOF)},
	}

	rec := &recordingWriter{}
	s := newTestSession(t, est, Options{Recorder: rec})
	ctx := context.Background()

	_, err := s.Process(ctx, input(1, 0))
	require.NoError(t, err)

	out, err := s.Process(ctx, input(2, 100*time.Millisecond))
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, Output{}, out)

	// the end of the recording is not classified as a lost pose
	require.Len(t, rec.frames, 1)
	assert.True(t, s.HasBaseline())

	latest, ok := s.Broadcaster().Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(1), latest.Result.Seq)
}

func TestSessionContextCancelled(t *testing.T) {

	s := newTestSession(t, &scriptedEstimator{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Process(ctx, input(1, 0))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.HasBaseline())
}

func TestSessionPoolClosed(t *testing.T) {

	est := &scriptedEstimator{}

	pool, err := posemotion.NewPool(1, func(int) (posemotion.Estimator, error) {
		return est, nil
	})
	require.NoError(t, err)

	s, err := New(Options{
		Classifier: motion.MustClassifier(motion.DefaultConfig(pose.COCO17), nil),
		Pool:       pool,
	})
	require.NoError(t, err)

	require.NoError(t, pool.Close())

	_, err = s.Process(context.Background(), input(1, 0))
	assert.ErrorIs(t, err, posemotion.ErrPoolClosed)
}

func TestSessionRestoreAndRecord(t *testing.T) {

	est := &scriptedEstimator{
		frames: map[uint64][]pose.Landmark{1: restPose()},
	}

	rec := &recordingWriter{}
	s := newTestSession(t, est, Options{
		Restorer: shiftRestorer{dx: 0.1},
		Recorder: rec,
	})

	out, err := s.Process(context.Background(), input(1, 0))
	require.NoError(t, err)

	require.NotEmpty(t, out.Landmarks)
	assert.InDelta(t, 0.6, out.Landmarks[0].X, 1e-9)

	require.Len(t, rec.frames, 1)
	assert.Equal(t, uint64(1), rec.frames[0].Seq)
	assert.InDelta(t, 0.6, rec.frames[0].Landmarks[0].X, 1e-9)
}

func TestSessionZeroTimestampUsesClock(t *testing.T) {

	est := &scriptedEstimator{
		frames: map[uint64][]pose.Landmark{1: restPose()},
	}

	rec := &recordingWriter{}
	s := newTestSession(t, est, Options{Recorder: rec})

	out, err := s.Process(context.Background(), Input{Seq: 1, Image: posemotion.Image{Seq: 1}})
	require.NoError(t, err)

	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, out.Result.Timestamp)
	assert.Equal(t, want, rec.frames[0].Timestamp)
}

func TestSessionReset(t *testing.T) {

	est := &scriptedEstimator{
		frames: map[uint64][]pose.Landmark{
			1: restPose(),
			2: leftArmRaised(),
		},
	}

	s := newTestSession(t, est, Options{})
	ctx := context.Background()

	_, err := s.Process(ctx, input(1, 0))
	require.NoError(t, err)

	s.Reset()
	assert.False(t, s.HasBaseline())

	// first frame after a reset only sets the baseline
	out, err := s.Process(ctx, input(2, 100*time.Millisecond))
	require.NoError(t, err)
	assert.Empty(t, out.Result.Moving)
}

func TestSessionPublishes(t *testing.T) {

	est := &scriptedEstimator{
		frames: map[uint64][]pose.Landmark{1: restPose()},
	}

	s := newTestSession(t, est, Options{ID: "cam0"})
	updates, cancel := s.Broadcaster().Subscribe()
	defer cancel()

	_, err := s.Process(context.Background(), input(1, 0))
	require.NoError(t, err)

	select {
	case u := <-updates:
		assert.Equal(t, "cam0", u.SessionID)
		assert.Equal(t, uint64(1), u.Result.Seq)
	case <-time.After(time.Second):
		t.Fatal("no update published")
	}

	latest, ok := s.Broadcaster().Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(1), latest.Result.Seq)
}

func TestNewValidation(t *testing.T) {

	_, err := New(Options{})
	assert.Error(t, err)

	pool, err := posemotion.NewPool(1, func(int) (posemotion.Estimator, error) {
		return &scriptedEstimator{}, nil
	})
	require.NoError(t, err)
	defer pool.Close()

	s, err := New(Options{
		Classifier: motion.MustClassifier(motion.DefaultConfig(pose.COCO17), nil),
		Pool:       pool,
	})
	require.NoError(t, err)
	assert.Len(t, s.ID(), 36)
}

func TestBroadcasterLatestWins(t *testing.T) {

	b := NewBroadcaster()

	_, ok := b.Latest()
	assert.False(t, ok)

	ch, cancel := b.Subscribe()
	assert.Equal(t, 1, b.Subscribers())

	for i := 1; i <= 3; i++ {
		b.Publish(Update{Result: motion.Result{Seq: uint64(i)}})
	}

	u := <-ch
	assert.Equal(t, uint64(3), u.Result.Seq)

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())

	// publishing without subscribers still tracks the latest update
	b.Publish(Update{Result: motion.Result{Seq: 4}})
	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(4), latest.Result.Seq)
}
