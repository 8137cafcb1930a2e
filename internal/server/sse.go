package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// heartbeatInterval keeps proxies from closing a stream while a slow copy is graded.
const heartbeatInterval = 15 * time.Second

// SSEWriter writes Server-Sent Events. It is safe for concurrent use, so grading
// workers and the heartbeat can share one stream.
type SSEWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	seq     int
}

// NewSSEWriter sends the stream headers. CORS headers are left to the CORS middleware.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends one event with a JSON payload and a sequence id.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Heartbeat writes a comment line every interval until stop is called. Once
// stop returns, the heartbeat never touches the response again.
func (s *SSEWriter) Heartbeat(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(exited)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.ping(done)
			case <-done:
				return
			}
		}
	}()
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

func (s *SSEWriter) ping(done <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-done:
		return
	default:
	}
	if _, err := fmt.Fprint(s.w, ": ping\n\n"); err == nil {
		s.flusher.Flush()
	}
}

// WriteError sends an error event.
func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// WriteComplete sends the final event of a stream.
func (s *SSEWriter) WriteComplete(data any) {
	s.WriteEvent("complete", data) //nolint:errcheck
}
