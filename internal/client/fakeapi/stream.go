package fakeapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/coevo/internal/client/models"
)

const streamBuffer = 256

// events serves GET /api/events. The first frame is a keepalive so clients
// observe the connection as established.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	ch := make(chan []byte, streamBuffer)
	s.mu.Lock()
	s.streamID++
	id := s.streamID
	s.streams[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.streams[id] == ch {
			delete(s.streams, id)
		}
		s.mu.Unlock()
	}()

	writeFrame(w, []byte(`{"type":"keepalive"}`))
	flusher.Flush()

	select {
	case s.streamCh <- struct{}{}:
	default:
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			writeFrame(w, data)
			flusher.Flush()
		}
	}
}

func writeFrame(w http.ResponseWriter, data []byte) {
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
}

func (s *Server) publishLocked(t models.EventType, v any) {
	env, err := models.Wrap(t, v)
	if err != nil {
		return
	}
	s.broadcastLocked(env.Raw)
}

func (s *Server) publishRawLocked(data string) {
	s.broadcastLocked([]byte(data))
}

// broadcastLocked never blocks: a stream whose buffer is full misses the
// message, like a slow subscriber on the real server.
func (s *Server) broadcastLocked(data []byte) {
	for _, ch := range s.streams {
		select {
		case ch <- data:
		default:
		}
	}
}

// Publish sends a typed envelope to every connected stream.
func (s *Server) Publish(t models.EventType, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishLocked(t, v)
}

// PublishRaw sends data verbatim as the data line of one frame. It is used
// to exercise malformed payloads.
func (s *Server) PublishRaw(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishRawLocked(data)
}

// DropStreams disconnects every connected stream.
func (s *Server) DropStreams() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.streams {
		close(ch)
		delete(s.streams, id)
	}
}

func (s *Server) StreamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// WaitForStreams blocks until n streams have connected since the previous
// call, or the timeout passes.
func (s *Server) WaitForStreams(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-s.streamCh:
		case <-deadline:
			return false
		}
	}
	return true
}
