package estimator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posemotion"
	"github.com/swdee/go-posemotion/pose"
)

func TestRecordReplay(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	frames := []pose.Frame{
		{Seq: 1, Timestamp: start, Landmarks: []pose.Landmark{{X: 0.1, Y: 0.2, Z: 0.3, Visibility: 1}}},
		{Seq: 2, Timestamp: start.Add(100 * time.Millisecond)},
		{Seq: 3, Timestamp: start.Add(200 * time.Millisecond), Landmarks: []pose.Landmark{{X: 0.4, Y: 0.5}}},
	}

	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	for _, f := range frames {
		require.NoError(t, rec.Write(f))
	}
	require.NoError(t, rec.Close())

	rp, err := NewReplay(&buf, pose.COCO17, false)
	require.NoError(t, err)
	assert.Equal(t, 3, rp.Len())

	for _, want := range frames {
		got, err := rp.Next()
		require.NoError(t, err)
		assert.Equal(t, want.Seq, got.Seq)
		assert.True(t, want.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, want.Detected(), got.Detected())
		assert.Equal(t, len(want.Landmarks), len(got.Landmarks))
	}

	_, err = rp.Next()
	assert.Equal(t, io.EOF, err)

	rp.Rewind()
	f, err := rp.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Seq)
}

func TestReplayEstimateLoops(t *testing.T) {
	input := strings.Join([]string{
		`{"seq":1,"ts":"2024-05-01T10:00:00Z","landmarks":[[0.1,0.1]]}`,
		``,
		`{"seq":2,"ts":"2024-05-01T10:00:01Z","landmarks":[[0.2,0.2]]}`,
	}, "\n")

	rp, err := NewReplay(strings.NewReader(input), pose.MediaPipePose, true)
	require.NoError(t, err)
	assert.Equal(t, pose.MediaPipePose.Name, rp.Topology().Name)

	ctx := context.Background()
	var xs []float64

	for i := 0; i < 3; i++ {
		lms, err := rp.Estimate(ctx, posemotion.Image{})
		require.NoError(t, err)
		xs = append(xs, lms[0].X)
	}

	assert.Equal(t, []float64{0.1, 0.2, 0.1}, xs)
	assert.NoError(t, rp.Close())
}

func TestReplayBadLine(t *testing.T) {
	_, err := NewReplay(strings.NewReader("{\"seq\":1}\nnot json\n"), pose.COCO17, false)
	assert.ErrorContains(t, err, "line 2")
}

func TestRecorderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")

	rec, err := CreateRecorder(path)
	require.NoError(t, err)
	require.NoError(t, rec.Write(pose.Frame{Seq: 9, Landmarks: []pose.Landmark{{X: 0.5}}}))
	require.NoError(t, rec.Close())

	rp, err := OpenReplay(path, pose.COCO17, false)
	require.NoError(t, err)
	require.Equal(t, 1, rp.Len())

	f, err := rp.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), f.Seq)
	assert.Equal(t, 0.5, f.Landmarks[0].X)
}

var errDiskFull = errors.New("disk full")

// failingFile rejects every write and records whether it was closed
type failingFile struct {
	closed bool
}

func (f *failingFile) Write(p []byte) (int, error) {
	return 0, errDiskFull
}

func (f *failingFile) Close() error {
	f.closed = true
	return nil
}

func TestRecorderClosesAfterFlushError(t *testing.T) {
	f := &failingFile{}
	rec := NewRecorder(f)

	// buffered until the flush on Close
	require.NoError(t, rec.Write(pose.Frame{Seq: 1, Landmarks: []pose.Landmark{{X: 0.5}}}))

	err := rec.Close()
	assert.ErrorIs(t, err, errDiskFull)
	assert.True(t, f.closed)
}
