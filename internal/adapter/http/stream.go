package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/resqlink/early-warning-service/internal/domain"
)

// handleStream serves live updates as server-sent events, one event per
// update named after its topic.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	topics, err := domain.ParseTopics(r.URL.Query().Get("topics"))
	if err != nil {
		writeAPIError(w, newAPIError(http.StatusBadRequest, codeInvalidFormat, err.Error()))
		return
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("stream flush unsupported", "error", err)
		return
	}

	updates, cancel := s.stream.Subscribe(topics...)
	defer cancel()
	s.logger.Debug("stream client connected", "topics", topics)
	defer s.logger.Debug("stream client disconnected")

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, u); err != nil {
				s.logger.Warn("stream write failed", "topic", u.Topic, "error", err)
				return
			}
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w io.Writer, u domain.Update) error {
	data, err := json.Marshal(u.Data)
	if err != nil {
		return fmt.Errorf("encode %s update: %w", u.Topic, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", u.Topic, data)
	return err
}
