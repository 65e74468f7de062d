package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/swdee/go-posemotion/emitter"
	"github.com/swdee/go-posemotion/session"
)

// frameHub hands the latest encoded frame to every connected stream client
type frameHub struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	latest []byte
}

func newFrameHub() *frameHub {
	return &frameHub{
		subs: make(map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel receiving frames and a function to unsubscribe
func (h *frameHub) Subscribe() (<-chan []byte, func()) {

	ch := make(chan []byte, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}

	if h.latest != nil {
		ch <- h.latest
	}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

// Publish replaces any frame not yet sent to a client with the new one
func (h *frameHub) Publish(frame []byte) {

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = frame

	for ch := range h.subs {
		select {
		case <-ch:
		default:
		}

		ch <- frame
	}
}

// Server is the HTTP interface of the host
type Server struct {
	sess    *session.Session
	frames  *frameHub
	emitter *emitter.MQTT
	log     *slog.Logger
}

// Status is the JSON document served on /status
type Status struct {
	Session     string          `json:"session"`
	HasBaseline bool            `json:"has_baseline"`
	Latest      *session.Update `json:"latest,omitempty"`
	MQTT        *emitter.Stats  `json:"mqtt,omitempty"`
}

// Routes returns the HTTP handler for the server
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.Stream)
	mux.HandleFunc("/status", s.Status)
	mux.HandleFunc("/reset", s.Reset)
	return mux
}

// Stream is the HTTP handler function used to stream annotated video frames
// to the browser as MJPEG
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {

	s.log.Info("new client connection established", "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	frames, cancel := s.frames.Subscribe()
	defer cancel()

	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			s.log.Info("client disconnected", "remote", r.RemoteAddr)
			return

		case frame := <-frames:
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))

			if _, err := w.Write(frame); err != nil {
				s.log.Debug("error writing frame", "remote", r.RemoteAddr, "error", err)
				return
			}

			w.Write([]byte("\r\n"))

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Status serves the latest motion result as JSON
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {

	st := Status{
		Session:     s.sess.ID(),
		HasBaseline: s.sess.HasBaseline(),
	}

	if u, ok := s.sess.Broadcaster().Latest(); ok {
		st.Latest = &u
	}

	if s.emitter != nil {
		stats := s.emitter.Stats()
		st.MQTT = &stats
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.log.Warn("error writing status", "error", err)
	}
}

// Reset clears the session motion state, the next detection becomes the new
// baseline
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.sess.Reset()
	w.WriteHeader(http.StatusNoContent)
}
