package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologyIndicesInRange(t *testing.T) {

	for _, topo := range []Topology{MediaPipePose, COCO17} {
		for _, r := range topo.Regions {
			require.NotEmpty(t, r.Indices, "%s region %s", topo.Name, r.Name)

			for _, idx := range r.Indices {
				assert.True(t, idx >= 0 && idx < topo.Size,
					"%s region %s index %d out of range", topo.Name, r.Name, idx)
			}
		}

		for _, e := range topo.Edges {
			assert.True(t, e[0] < topo.Size && e[1] < topo.Size,
				"%s edge %v out of range", topo.Name, e)
		}
	}
}

func TestRegionOverlapPreserved(t *testing.T) {
	members := RegionsOf(MediaPipePose.Regions)

	// left shoulder belongs to the torso and the left arm
	assert.Equal(t, []string{Torso, LeftArm}, members[11])
	// left hip belongs to the torso and the left leg
	assert.Equal(t, []string{Torso, LeftLeg}, members[23])
}

func TestTopologyByName(t *testing.T) {

	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{"mediapipe", "mediapipe", false},
		{"MediaPipe", "mediapipe", false},
		{" coco17 ", "coco17", false},
		{"yolov8-pose", "coco17", false},
		{"openpose", "", true},
	}

	for _, tc := range tests {
		topo, err := TopologyByName(tc.name)

		if tc.wantErr {
			assert.Error(t, err, tc.name)
			continue
		}

		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.expected, topo.Name)
	}
}

func TestFromKeyPoints(t *testing.T) {
	kps := []KeyPoint{
		{X: 320, Y: 240, Score: 0.9},
		{X: 0, Y: 480, Score: 0.5},
	}

	lms := FromKeyPoints(kps, 640, 480)

	require.Len(t, lms, 2)
	assert.InDelta(t, 0.5, lms[0].X, 1e-9)
	assert.InDelta(t, 0.5, lms[0].Y, 1e-9)
	assert.InDelta(t, 0.9, lms[0].Visibility, 1e-6)
	assert.InDelta(t, 1.0, lms[1].Y, 1e-9)

	assert.Nil(t, FromKeyPoints(kps, 0, 480))
	assert.Nil(t, FromKeyPoints(nil, 640, 480))
}

func TestFromRows(t *testing.T) {
	lms := FromRows([][]float64{
		{0.1, 0.2},
		{0.3, 0.4, -0.5, 0.9},
		{0.7},
	})

	require.Len(t, lms, 3)
	assert.Equal(t, Landmark{X: 0.1, Y: 0.2}, lms[0])
	assert.Equal(t, Landmark{X: 0.3, Y: 0.4, Z: -0.5, Visibility: 0.9}, lms[1])
	assert.Equal(t, Landmark{}, lms[2])

	assert.Equal(t, lms[1:2], FromRows(ToRows(lms[1:2])))
}

func TestCloneLandmarksDoesNotAlias(t *testing.T) {
	src := []Landmark{{X: 0.1}}
	dup := CloneLandmarks(src)
	src[0].X = 0.9

	assert.Equal(t, 0.1, dup[0].X)
	assert.Nil(t, CloneLandmarks(nil))
}
