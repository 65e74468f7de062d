// Package estimator provides pose estimator implementations: a bridge to an
// external worker process running the pose model, and a replay of recorded
// landmarks.
package estimator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/swdee/go-posemotion"
	"github.com/swdee/go-posemotion/pose"
)

// ErrWorkerStopped is returned when the worker process has exited or was
// killed after a frame could not be delivered
var ErrWorkerStopped = errors.New("pose worker stopped")

// WorkerConfig defines how to launch a worker process
type WorkerConfig struct {
	// ID names the worker in logs
	ID string
	// Command and Args of the worker process, eg: a wrapper script that
	// activates a Python venv and runs a MediaPipe pose loop
	Command string
	Args    []string
	// Env is extra environment for the process in KEY=VALUE form
	Env []string
	// Topology of the landmarks the worker returns
	Topology pose.Topology
	// Timeout is the maximum time to wait for the result of one frame
	Timeout time.Duration
	// StopTimeout is how long Close waits for the process to exit before
	// killing it
	StopTimeout time.Duration
	// Logger receives worker lifecycle and stderr output
	Logger *slog.Logger
}

// Worker is an Estimator backed by an external process.  Frames are written
// to the process stdin and landmark results read from its stdout, both as
// length prefixed msgpack messages.
type Worker struct {
	cfg    WorkerConfig
	log    *slog.Logger
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	mu     sync.Mutex
	seq    uint64
	respCh chan Response
	quit   chan struct{}
	done   chan struct{}
	// waitErr is the process exit error, valid after done is closed
	waitErr error
	wg      sync.WaitGroup
	close   sync.Once
	// broken is set once a frame was left partially written on stdin, the
	// length prefixed stream can not be used after that
	broken bool
}

// NewWorker starts the worker process
func NewWorker(cfg WorkerConfig) (*Worker, error) {

	if cfg.Command == "" {
		return nil, errors.New("worker command is required")
	}

	if cfg.Topology.Size == 0 {
		cfg.Topology = pose.MediaPipePose
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 2 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		cfg:    cfg,
		log:    logger.With("worker_id", cfg.ID),
		respCh: make(chan Response, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if err := w.spawn(); err != nil {
		return nil, err
	}

	return w, nil
}

// spawn starts the process and its reader goroutines
func (w *Worker) spawn() error {

	w.cmd = exec.Command(w.cfg.Command, w.cfg.Args...)

	if len(w.cfg.Env) > 0 {
		w.cmd.Env = append(w.cmd.Environ(), w.cfg.Env...)
	}

	stdin, err := w.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	w.stdin = stdin

	stdout, err := w.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := w.cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := w.cmd.Start(); err != nil {
		return fmt.Errorf("failed to start worker process: %w", err)
	}

	w.log.Info("pose worker started",
		"pid", w.cmd.Process.Pid,
		"command", w.cfg.Command,
		"topology", w.cfg.Topology.Name,
	)

	w.wg.Add(2)
	go w.readResults(stdout)
	go w.logStderr(stderr)

	go func() {
		// wait for readers to drain before reaping the process as Wait closes
		// the pipes
		w.wg.Wait()
		w.waitErr = w.cmd.Wait()
		close(w.done)
	}()

	return nil
}

// readResults reads responses from the worker stdout until it closes
func (w *Worker) readResults(stdout io.Reader) {
	defer w.wg.Done()
	defer close(w.respCh)

	r := bufio.NewReader(stdout)

	for {
		var resp Response

		if err := ReadMessage(r, &resp); err != nil {
			if err != io.EOF {
				w.log.Error("failed to read pose worker result", "error", err)
			}
			return
		}

		select {
		case w.respCh <- resp:
		case <-w.quit:
			return
		}
	}
}

// logStderr forwards worker stderr lines to the logger, mapping common
// level prefixes onto slog levels
func (w *Worker) logStderr(stderr io.Reader) {
	defer w.wg.Done()

	scanner := bufio.NewScanner(stderr)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.Contains(line, "ERROR"), strings.Contains(line, "CRITICAL"):
			w.log.Error("pose worker", "stderr", line)
		case strings.Contains(line, "WARN"):
			w.log.Warn("pose worker", "stderr", line)
		default:
			w.log.Debug("pose worker", "stderr", line)
		}
	}
}

// Topology returns the topology of the worker's landmarks
func (w *Worker) Topology() pose.Topology {
	return w.cfg.Topology
}

// Estimate sends the image to the worker and waits for its landmarks.  The
// timeout covers both writing the frame and waiting for the result.
func (w *Worker) Estimate(ctx context.Context, img posemotion.Image) ([]pose.Landmark, error) {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.broken {
		return nil, ErrWorkerStopped
	}

	select {
	case <-w.done:
		return nil, ErrWorkerStopped
	default:
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.seq++
	seq := w.seq

	req := Request{
		Seq:       seq,
		Width:     img.Width,
		Height:    img.Height,
		FrameData: img.Data,
	}

	timer := time.NewTimer(w.cfg.Timeout)
	defer timer.Stop()

	// write in the background so a worker that stops reading stdin can not
	// block the caller
	writeErr := make(chan error, 1)

	go func() {
		writeErr <- WriteMessage(w.stdin, req)
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			w.abandon("stdin write failed")
			return nil, fmt.Errorf("error sending frame %d: %w", img.Seq, err)
		}

	case <-timer.C:
		w.abandon("stdin write timed out")
		return nil, fmt.Errorf("pose worker timed out after %s sending frame %d",
			w.cfg.Timeout, img.Seq)

	case <-ctx.Done():
		w.abandon("stdin write cancelled")
		return nil, ctx.Err()

	case <-w.done:
		w.broken = true
		return nil, ErrWorkerStopped
	}

	for {
		select {
		case resp, ok := <-w.respCh:
			if !ok {
				return nil, ErrWorkerStopped
			}

			if resp.Seq != seq {
				// late answer to a request that already timed out
				w.log.Debug("discarding stale pose result", "seq", resp.Seq, "want", seq)
				continue
			}

			if resp.Error != "" {
				return nil, fmt.Errorf("pose worker failed on frame %d: %s", img.Seq, resp.Error)
			}

			return pose.FromRows(resp.Landmarks), nil

		case <-timer.C:
			return nil, fmt.Errorf("pose worker timed out after %s on frame %d",
				w.cfg.Timeout, img.Seq)

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// abandon kills the worker process after a frame was not fully written.  The
// kill also unblocks the pending stdin write.  Must be called with mu held.
func (w *Worker) abandon(reason string) {

	w.broken = true

	w.log.Error("pose worker not accepting frames, killing process",
		"reason", reason,
		"pid", w.cmd.Process.Pid)

	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		w.log.Warn("failed to kill pose worker", "error", err)
	}
}

// Close stops the worker process by closing its stdin, killing it if it does
// not exit within the stop timeout
func (w *Worker) Close() error {

	var err error

	w.close.Do(func() {
		close(w.quit)
		_ = w.stdin.Close()

		select {
		case <-w.done:
		case <-time.After(w.cfg.StopTimeout):
			w.log.Warn("pose worker did not exit, killing process")
			_ = w.cmd.Process.Kill()
			<-w.done
		}

		var exitErr *exec.ExitError
		if w.waitErr != nil && !errors.As(w.waitErr, &exitErr) {
			err = fmt.Errorf("error waiting for pose worker: %w", w.waitErr)
		}

		w.log.Info("pose worker stopped")
	})

	return err
}
