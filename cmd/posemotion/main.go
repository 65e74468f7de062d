// Command posemotion captures video, estimates the pose in each frame and
// reports which body regions are moving.  Annotated video is streamed over
// HTTP as MJPEG and motion changes are optionally published to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/swdee/go-posemotion"
	"github.com/swdee/go-posemotion/capture"
	"github.com/swdee/go-posemotion/config"
	"github.com/swdee/go-posemotion/emitter"
	"github.com/swdee/go-posemotion/estimator"
	"github.com/swdee/go-posemotion/motion"
	"github.com/swdee/go-posemotion/pose"
	"github.com/swdee/go-posemotion/preprocess"
	"github.com/swdee/go-posemotion/session"
)

// newPool creates the estimator pool for the configured estimator kind
func newPool(cfg *config.Config, topology pose.Topology, logger *slog.Logger) (*posemotion.Pool, error) {

	est := cfg.Estimator

	return posemotion.NewPool(est.PoolSize, func(i int) (posemotion.Estimator, error) {
		if est.Kind == config.EstimatorReplay {
			rp, err := estimator.OpenReplay(est.Replay, topology, cfg.Source.Loop)

			if err != nil {
				return nil, err
			}

			return rp, nil
		}

		w, err := estimator.NewWorker(estimator.WorkerConfig{
			ID:       strconv.Itoa(i),
			Command:  est.Command,
			Args:     est.Args,
			Env:      est.Env,
			Topology: topology,
			Timeout:  est.Timeout.Duration,
			Logger:   logger,
		})

		if err != nil {
			return nil, err
		}

		return w, nil
	})
}

// inputResizer returns the letterbox resizer for estimator input, or nil when
// frames go to the estimator unscaled.  Replayed landmarks were recorded after
// restoring to source coordinates so the replay kind never letterboxes.
func inputResizer(est config.EstimatorConfig, srcW, srcH int) *preprocess.Resizer {

	if est.Kind == config.EstimatorReplay {
		return nil
	}

	if est.InputWidth <= 0 || srcW <= 0 || srcH <= 0 {
		return nil
	}

	return preprocess.NewResizer(srcW, srcH, est.InputWidth, est.InputHeight)
}

// applyCPUAffinity pins the calling OS thread to the given CPU list.  The
// caller must have locked the goroutine to its thread for the mask to be
// inherited by worker processes started from it.
func applyCPUAffinity(cpus string) error {

	if cpus == "" {
		return nil
	}

	mask, err := posemotion.ParseCPUList(cpus)

	if err != nil {
		return err
	}

	return posemotion.SetCPUAffinity(mask)
}

func run(cfg *config.Config, logger *slog.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	topology, err := cfg.Topology()

	if err != nil {
		return err
	}

	mc, err := cfg.MotionConfig()

	if err != nil {
		return err
	}

	classifier, err := motion.NewClassifier(mc, nil)

	if err != nil {
		return fmt.Errorf("error creating classifier: %w", err)
	}

	logger.Info("motion classifier ready",
		"topology", topology.Name,
		"policy", mc.Policy.String(),
		"point_threshold", mc.PointThreshold,
		"region_threshold", mc.RegionThreshold,
		"hold", mc.Hold,
		"regions", classifier.RegionNames())

	pool, err := newPool(cfg, topology, logger)

	if err != nil {
		return fmt.Errorf("error creating estimator pool: %w", err)
	}

	defer pool.Close()

	src, err := capture.Open(capture.Config{
		Device: cfg.Source.Device,
		Path:   cfg.Source.Path,
		Width:  cfg.Source.Width,
		Height: cfg.Source.Height,
		FPS:    cfg.Source.FPS,
		Loop:   cfg.Source.Loop,
	})

	if err != nil {
		return err
	}

	defer src.Close()

	srcW, srcH := src.Size()
	logger.Info("video source opened", "width", srcW, "height", srcH, "fps", src.FPS())

	var (
		resizer  *preprocess.Resizer
		restorer session.Restorer
	)

	if resizer = inputResizer(cfg.Estimator, srcW, srcH); resizer != nil {
		defer resizer.Close()

		restorer = resizer

		logger.Info("letterboxing estimator input",
			"width", cfg.Estimator.InputWidth,
			"height", cfg.Estimator.InputHeight,
			"scale", resizer.ScaleFactor())
	}

	var recorder session.FrameWriter

	if cfg.Record.Path != "" {
		rec, err := estimator.CreateRecorder(cfg.Record.Path)

		if err != nil {
			return err
		}

		defer func() {
			if err := rec.Close(); err != nil {
				logger.Error("error closing recording", "error", err)
			}
		}()

		recorder = rec
		logger.Info("recording landmarks", "file", cfg.Record.Path)
	}

	sess, err := session.New(session.Options{
		ID:         cfg.SessionID,
		Classifier: classifier,
		Pool:       pool,
		Restorer:   restorer,
		Recorder:   recorder,
		Logger:     logger,
	})

	if err != nil {
		return err
	}

	var mq *emitter.MQTT

	if cfg.MQTT.Enabled {
		mq = emitter.NewMQTT(emitter.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Retain:      cfg.MQTT.Retain,
			PublishAll:  cfg.MQTT.PublishAll,
		}, logger)

		if err := mq.Connect(ctx); err != nil {
			return err
		}

		defer mq.Close()

		updates, cancel := sess.Broadcaster().Subscribe()
		defer cancel()

		go mq.Run(ctx, updates)
	}

	frames := newFrameHub()

	pipeline, err := NewPipeline(cfg, sess, resizer, topology, frames, logger)

	if err != nil {
		return err
	}

	defer pipeline.Close()

	srv := &Server{
		sess:    sess,
		frames:  frames,
		emitter: mq,
		log:     logger,
	}

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Routes(),
	}

	go func() {
		logger.Info("open browser and view video stream",
			"url", fmt.Sprintf("http://%s/stream", cfg.HTTP.Addr),
			"session", sess.ID())

		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	err = src.Run(ctx, func(seq uint64, img gocv.Mat) error {
		err := pipeline.Handle(ctx, seq, img)

		if err != nil && ctx.Err() == nil && !errors.Is(err, posemotion.ErrPoolClosed) &&
			!errors.Is(err, io.EOF) {
			// a bad frame does not stop the stream
			logger.Warn("error processing frame", "seq", seq, "error", err)
			return nil
		}

		return err
	})

	switch {
	case errors.Is(err, io.EOF):
		logger.Info("estimator recording ended")
	case err != nil && !errors.Is(err, context.Canceled):
		logger.Error("capture stopped", "error", err)
	case err == nil:
		logger.Info("video source ended")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpSrv.Shutdown(shutdownCtx)
}

func main() {

	// read in cli flags
	cfgFile := flag.String("c", "", "YAML config file")
	vidFile := flag.String("v", "", "Video file or stream URL, overrides the configured source")
	device := flag.Int("d", -1, "Camera device index, overrides the configured source")
	httpAddr := flag.String("a", "", "HTTP Address to run server on, format address:port")
	hold := flag.Duration("hold", -1, "Keep regions flagged as moving for this long, eg: 1s")
	logLevel := flag.String("log", "", "Log level [debug|info|warn|error]")

	flag.Parse()

	cfg := config.Default()

	if *cfgFile != "" {
		var err error
		cfg, err = config.Load(*cfgFile)

		if err != nil {
			fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// apply command line overrides
	if *vidFile != "" {
		cfg.Source.Path = *vidFile
	}

	if *device >= 0 {
		cfg.Source.Path = ""
		cfg.Source.Device = *device
	}

	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	if *hold >= 0 {
		cfg.Motion.Hold = config.Duration{Duration: *hold}
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := cfg.Log.Logger(os.Stderr)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// affinity is per OS thread, keep main on the pinned thread so the worker
	// processes forked from it inherit the mask
	runtime.LockOSThread()

	if err := applyCPUAffinity(cfg.CPUAffinity); err != nil {
		logger.Warn("failed to set CPU affinity", "cpus", cfg.CPUAffinity, "error", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("posemotion failed", "error", err)
		os.Exit(1)
	}
}
