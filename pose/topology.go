package pose

import (
	"fmt"
	"strings"
)

// Region is a named group of landmark indices representing a coarse body
// part.  Regions may share indices, eg: shoulders belong to both the torso
// and an arm.
type Region struct {
	Name    string `yaml:"name" json:"name"`
	Indices []int  `yaml:"indices" json:"indices"`
}

// Edge is a pair of landmark indices joined by a skeleton line
type Edge [2]int

// Topology describes the fixed output of a pose estimator
type Topology struct {
	// Name of the topology
	Name string
	// Size is the number of landmarks the estimator produces per frame
	Size int
	// Regions are the default body regions for the topology
	Regions []Region
	// Edges are the skeleton lines drawn between landmarks
	Edges []Edge
}

// Region names shared by the built in topologies
const (
	Head     = "Head"
	Torso    = "Torso"
	LeftArm  = "LeftArm"
	RightArm = "RightArm"
	LeftLeg  = "LeftLeg"
	RightLeg = "RightLeg"
)

/* MediaPipe pose landmarks
0: Nose            11: Left Shoulder   22: Right Thumb
1: Left Eye Inner  12: Right Shoulder  23: Left Hip
2: Left Eye        13: Left Elbow      24: Right Hip
3: Left Eye Outer  14: Right Elbow     25: Left Knee
4: Right Eye Inner 15: Left Wrist      26: Right Knee
5: Right Eye       16: Right Wrist     27: Left Ankle
6: Right Eye Outer 17: Left Pinky      28: Right Ankle
7: Left Ear        18: Right Pinky     29: Left Heel
8: Right Ear       19: Left Index      30: Right Heel
9: Mouth Left      20: Right Index     31: Left Foot Index
10: Mouth Right    21: Left Thumb      32: Right Foot Index
*/

// MediaPipePose is the 33 landmark topology of the MediaPipe pose model
var MediaPipePose = Topology{
	Name: "mediapipe",
	Size: 33,
	Regions: []Region{
		{Name: Head, Indices: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{Name: Torso, Indices: []int{11, 12, 13, 14, 23, 24}},
		{Name: LeftArm, Indices: []int{11, 13, 15, 17, 19, 21}},
		{Name: RightArm, Indices: []int{12, 14, 16, 18, 20, 22}},
		{Name: LeftLeg, Indices: []int{23, 25, 27, 29, 31}},
		{Name: RightLeg, Indices: []int{24, 26, 28, 30, 32}},
	},
	Edges: []Edge{
		{0, 1}, {1, 2}, {2, 3}, {3, 7}, {0, 4}, {4, 5}, {5, 6}, {6, 8},
		{9, 10}, {11, 12}, {11, 13}, {13, 15}, {15, 17}, {15, 19},
		{15, 21}, {17, 19}, {12, 14}, {14, 16}, {16, 18}, {16, 20},
		{16, 22}, {18, 20}, {11, 23}, {12, 24}, {23, 24}, {23, 25},
		{24, 26}, {25, 27}, {26, 28}, {27, 29}, {28, 30}, {29, 31},
		{30, 32}, {27, 31}, {28, 32},
	},
}

/* COCO keypoints
0: Nose
1: Left Eye
2: Right Eye
3: Left Ear
4: Right Ear
5: Left Shoulder
6: Right Shoulder
7: Left Elbow
8: Right Elbow
9: Left Wrist
10: Right Wrist
11: Left Hip
12: Right Hip
13: Left Knee
14: Right Knee
15: Left Ankle
16: Right Ankle
*/

// COCO17 is the 17 keypoint topology used by YOLOv8-pose models
var COCO17 = Topology{
	Name: "coco17",
	Size: 17,
	Regions: []Region{
		{Name: Head, Indices: []int{0, 1, 2, 3, 4}},
		{Name: Torso, Indices: []int{5, 6, 11, 12}},
		{Name: LeftArm, Indices: []int{5, 7, 9}},
		{Name: RightArm, Indices: []int{6, 8, 10}},
		{Name: LeftLeg, Indices: []int{11, 13, 15}},
		{Name: RightLeg, Indices: []int{12, 14, 16}},
	},
	Edges: []Edge{
		{15, 13}, {13, 11}, {16, 14}, {14, 12}, {11, 12}, {5, 11},
		{6, 12}, {5, 6}, {5, 7}, {6, 8}, {7, 9}, {8, 10}, {1, 2},
		{0, 1}, {0, 2}, {1, 3}, {2, 4}, {3, 5}, {4, 6},
	},
}

// TopologyByName returns the built in topology with the given name, the
// lookup is case insensitive
func TopologyByName(name string) (Topology, error) {

	switch strings.ToLower(strings.TrimSpace(name)) {
	case MediaPipePose.Name, "mediapipe33":
		return MediaPipePose, nil
	case COCO17.Name, "coco", "yolov8-pose":
		return COCO17, nil
	}

	return Topology{}, fmt.Errorf("unknown pose topology %q", name)
}

// CloneRegions returns a deep copy of the given regions
func CloneRegions(regions []Region) []Region {

	out := make([]Region, len(regions))

	for i, r := range regions {
		out[i] = Region{
			Name:    r.Name,
			Indices: append([]int(nil), r.Indices...),
		}
	}

	return out
}

// RegionsOf returns, for each landmark index, the names of the regions that
// include it
func RegionsOf(regions []Region) map[int][]string {

	members := make(map[int][]string)

	for _, r := range regions {
		for _, idx := range r.Indices {
			members[idx] = append(members[idx], r.Name)
		}
	}

	return members
}
