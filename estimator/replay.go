package estimator

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/swdee/go-posemotion"
	"github.com/swdee/go-posemotion/pose"
)

// Replay is an Estimator that returns landmarks from a recording instead of
// running a model.  Each Estimate call returns the next recorded frame, the
// image is ignored.
type Replay struct {
	mu       sync.Mutex
	records  []Record
	pos      int
	loop     bool
	topology pose.Topology
}

// NewReplay reads a JSON lines recording from r.  When loop is set the
// recording restarts from the beginning after the last frame.
func NewReplay(r io.Reader, topology pose.Topology, loop bool) (*Replay, error) {

	scanner := bufio.NewScanner(r)
	// a 33 landmark line is a few KB, allow generous headroom
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)

	rp := &Replay{
		loop:     loop,
		topology: topology,
	}

	line := 0

	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())

		if len(data) == 0 {
			continue
		}

		var rec Record

		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("error parsing recording line %d: %w", line, err)
		}

		rp.records = append(rp.records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading recording: %w", err)
	}

	return rp, nil
}

// OpenReplay loads the recording at path
func OpenReplay(path string, topology pose.Topology, loop bool) (*Replay, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("error opening recording: %w", err)
	}

	defer f.Close()

	return NewReplay(f, topology, loop)
}

// Len returns the number of recorded frames
func (r *Replay) Len() int {
	return len(r.records)
}

// Next returns the next recorded frame, or io.EOF once the recording is
// exhausted and not looping
func (r *Replay) Next() (pose.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.records) {
		if !r.loop || len(r.records) == 0 {
			return pose.Frame{}, io.EOF
		}
		r.pos = 0
	}

	rec := r.records[r.pos]
	r.pos++

	return rec.Frame(), nil
}

// Rewind restarts the recording from the first frame
func (r *Replay) Rewind() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pos = 0
}

// Estimate returns the landmarks of the next recorded frame
func (r *Replay) Estimate(ctx context.Context, img posemotion.Image) ([]pose.Landmark, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame, err := r.Next()

	if err != nil {
		return nil, err
	}

	return frame.Landmarks, nil
}

// Topology returns the topology of the recorded landmarks
func (r *Replay) Topology() pose.Topology {
	return r.topology
}

// Close is a no-op as the recording is held in memory
func (r *Replay) Close() error {
	return nil
}
