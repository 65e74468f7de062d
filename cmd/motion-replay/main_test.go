package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-posemotion/estimator"
	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
)

func coco(dy map[int]float64) []pose.Landmark {
	lms := make([]pose.Landmark, pose.COCO17.Size)
	for i := range lms {
		lms[i] = pose.Landmark{X: 0.5, Y: 0.5 + dy[i], Visibility: 1}
	}
	return lms
}

// recording builds a replay from the given frames, frame 0 is a gap
func recording(t *testing.T, frames ...[]pose.Landmark) *estimator.Replay {
	t.Helper()

	var buf bytes.Buffer
	rec := estimator.NewRecorder(&buf)

	for i, lms := range frames {
		require.NoError(t, rec.Write(pose.Frame{Seq: uint64(i + 1), Landmarks: lms}))
	}

	require.NoError(t, rec.Flush())

	rp, err := estimator.NewReplay(&buf, pose.COCO17, false)
	require.NoError(t, err)

	return rp
}

func TestClassifyRecording(t *testing.T) {

	rp := recording(t,
		coco(nil),
		coco(map[int]float64{7: -0.2, 9: -0.2}),
		nil,
		coco(map[int]float64{7: -0.2, 9: -0.2}),
	)

	clf := motion.MustClassifier(motion.DefaultConfig(pose.COCO17), nil)

	var out bytes.Buffer
	count, err := classifyRecording(rp, clf, Options{FPS: 30}, &out)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"1 No motion detected",
		"2 LeftArm",
		"3 No motion detected",
		"4 No motion detected",
	}, lines)
}

func TestClassifyRecordingHoldUsesSyntheticTime(t *testing.T) {

	rp := recording(t,
		coco(nil),
		coco(map[int]float64{7: -0.2, 9: -0.2}),
		coco(map[int]float64{7: -0.2, 9: -0.2}),
		coco(map[int]float64{7: -0.2, 9: -0.2}),
	)

	cfg := motion.DefaultConfig(pose.COCO17)
	cfg.Hold = 1500 * time.Millisecond
	clf := motion.MustClassifier(cfg, nil)

	// frames are one second apart
	var out bytes.Buffer
	_, err := classifyRecording(rp, clf, Options{FPS: 1, JSON: true}, &out)
	require.NoError(t, err)

	dec := json.NewDecoder(&out)

	var labels []string

	for dec.More() {
		var res motion.Result
		require.NoError(t, dec.Decode(&res))
		labels = append(labels, res.Label)
	}

	assert.Equal(t, []string{
		"No motion detected",
		"LeftArm",
		"LeftArm",
		"No motion detected",
	}, labels)
}

func TestClassifyRecordingChangesOnly(t *testing.T) {

	rp := recording(t,
		coco(nil),
		coco(nil),
		coco(map[int]float64{7: -0.2, 9: -0.2}),
		coco(map[int]float64{7: -0.2, 9: -0.2}),
		coco(map[int]float64{7: -0.2, 9: -0.2}),
	)

	clf := motion.MustClassifier(motion.DefaultConfig(pose.COCO17), nil)

	var out bytes.Buffer
	count, err := classifyRecording(rp, clf, Options{FPS: 30, Changes: true}, &out)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"1 No motion detected",
		"3 LeftArm",
		"4 No motion detected",
	}, lines)
}
