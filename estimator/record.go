package estimator

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/swdee/go-posemotion/pose"
)

// Record is one line of a landmark recording
type Record struct {
	Seq       uint64      `json:"seq"`
	Timestamp time.Time   `json:"ts"`
	Landmarks [][]float64 `json:"landmarks"`
}

// Frame converts the record into a pose frame
func (r Record) Frame() pose.Frame {
	return pose.Frame{
		Seq:       r.Seq,
		Timestamp: r.Timestamp,
		Landmarks: pose.FromRows(r.Landmarks),
	}
}

// Recorder writes pose frames as JSON lines so a session can be replayed
// offline
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
}

// NewRecorder returns a Recorder writing to w
func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{w: bufio.NewWriter(w)}

	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}

	return r
}

// CreateRecorder creates or truncates the file at path and returns a
// Recorder writing to it
func CreateRecorder(path string) (*Recorder, error) {

	f, err := os.Create(path)

	if err != nil {
		return nil, fmt.Errorf("error creating recording file: %w", err)
	}

	return NewRecorder(f), nil
}

// Write appends a frame to the recording
func (r *Recorder) Write(frame pose.Frame) error {

	line, err := json.Marshal(Record{
		Seq:       frame.Seq,
		Timestamp: frame.Timestamp,
		Landmarks: pose.ToRows(frame.Landmarks),
	})

	if err != nil {
		return fmt.Errorf("error encoding frame %d: %w", frame.Seq, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("error writing frame %d: %w", frame.Seq, err)
	}

	return nil
}

// Flush writes any buffered frames
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.w.Flush()
}

// Close flushes the recording and closes the underlying writer if it is a
// Closer.  The writer is closed even when the flush fails.
func (r *Recorder) Close() error {

	flushErr := r.Flush()

	if flushErr != nil {
		flushErr = fmt.Errorf("error flushing recording: %w", flushErr)
	}

	if r.closer == nil {
		return flushErr
	}

	return errors.Join(flushErr, r.closer.Close())
}
