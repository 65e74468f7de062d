// Command motion-replay classifies the region motion of a landmark recording
// offline and prints one line per frame.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/swdee/go-posemotion/config"
	"github.com/swdee/go-posemotion/estimator"
	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
)

// Options control how a recording is classified
type Options struct {
	// FPS spaces frames that were recorded without a timestamp
	FPS float64
	// JSON prints each result as a JSON object instead of "seq label"
	JSON bool
	// Changes prints only frames whose moving set differs from the previous
	Changes bool
}

// classifyRecording runs every frame of the replay through the classifier
// and writes the results to w.  It returns the number of frames classified.
func classifyRecording(rp *estimator.Replay, clf *motion.Classifier,
	opts Options, w io.Writer) (int, error) {

	state := motion.NewState()
	enc := json.NewEncoder(w)

	interval := time.Duration(float64(time.Second) / opts.FPS)
	start := time.Unix(0, 0).UTC()

	var (
		count int
		last  string
	)

	for {
		frame, err := rp.Next()

		if errors.Is(err, io.EOF) {
			return count, nil
		}

		if err != nil {
			return count, err
		}

		now := frame.Timestamp

		if now.IsZero() {
			now = start.Add(time.Duration(count) * interval)
		}

		res := clf.ClassifyAt(frame, state, now)
		count++

		if opts.Changes && count > 1 && res.Label == last {
			continue
		}

		last = res.Label

		if opts.JSON {
			if err := enc.Encode(res); err != nil {
				return count, err
			}
			continue
		}

		if _, err := fmt.Fprintf(w, "%d %s\n", res.Seq, res.Label); err != nil {
			return count, err
		}
	}
}

func main() {

	// read in cli flags
	cfgFile := flag.String("c", "", "YAML config file to take motion settings from")
	inFile := flag.String("i", "", "Landmark recording (JSON lines) to classify")
	topoName := flag.String("t", pose.MediaPipePose.Name, "Landmark topology of the recording [mediapipe|coco17]")
	pointTh := flag.Float64("point", motion.DefaultPointThreshold, "Per point displacement threshold")
	regionTh := flag.Float64("region", motion.DefaultRegionThreshold, "Per region mean displacement threshold")
	policy := flag.String("policy", "2d", "Distance policy [2d|3d]")
	hold := flag.Duration("hold", 0, "Keep regions flagged as moving for this long, eg: 1s")
	fps := flag.Float64("fps", 30, "Frame rate used for frames recorded without a timestamp")
	jsonOut := flag.Bool("json", false, "Print results as JSON lines")
	changes := flag.Bool("changes", false, "Only print frames where the moving regions change")
	logLevel := flag.String("log", "info", "Log level [debug|info|warn|error]")

	flag.Parse()

	logger := config.LogConfig{Level: *logLevel}.Logger(os.Stderr)
	slog.SetDefault(logger)

	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "a recording file is required, use -i")
		flag.Usage()
		os.Exit(2)
	}

	if *fps <= 0 {
		slog.Error("fps must be positive", "fps", *fps)
		os.Exit(2)
	}

	var (
		mc       motion.Config
		topology pose.Topology
		err      error
	)

	if *cfgFile != "" {
		var cfg *config.Config
		cfg, err = config.Load(*cfgFile)

		if err != nil {
			slog.Error("error loading config", "file", *cfgFile, "error", err)
			os.Exit(1)
		}

		topology, err = cfg.Topology()

		if err == nil {
			mc, err = cfg.MotionConfig()
		}

	} else {
		topology, err = pose.TopologyByName(*topoName)

		if err == nil {
			mc = motion.DefaultConfig(topology)
			mc.PointThreshold = *pointTh
			mc.RegionThreshold = *regionTh
			mc.Hold = *hold
			mc.Policy, err = motion.ParseDistancePolicy(*policy)
		}
	}

	if err != nil {
		slog.Error("invalid motion settings", "error", err)
		os.Exit(1)
	}

	clf, err := motion.NewClassifier(mc, nil)

	if err != nil {
		slog.Error("error creating classifier", "error", err)
		os.Exit(1)
	}

	rp, err := estimator.OpenReplay(*inFile, topology, false)

	if err != nil {
		slog.Error("error opening recording", "file", *inFile, "error", err)
		os.Exit(1)
	}

	defer rp.Close()

	slog.Debug("classifying recording", "file", *inFile, "frames", rp.Len(),
		"topology", topology.Name, "policy", mc.Policy.String(), "hold", mc.Hold)

	count, err := classifyRecording(rp, clf, Options{
		FPS:     *fps,
		JSON:    *jsonOut,
		Changes: *changes,
	}, os.Stdout)

	if err != nil {
		slog.Error("error classifying recording", "frame", count, "error", err)
		os.Exit(1)
	}

	slog.Info("recording classified", "frames", count)
}
