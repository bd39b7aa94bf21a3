package api

import (
	"fmt"
	"net/http"

	"github.com/manthysbr/labforge/internal/core/domain"
)

// handleJobSSE streams job progress events so the client can follow
// generation in real time.
func (s *Server) handleJobSSE(w http.ResponseWriter, r *http.Request) {
	jobID := domain.JobID(r.PathValue("id"))

	// Ownership check before subscribing.
	if _, err := s.jobs.Get(r.Context(), jobID, userID(r)); err != nil {
		s.writeDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, unsub := s.bus.Subscribe(string(jobID))
	defer unsub()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			data := evt.Data
			if data == "" {
				data = "{}"
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, data)
			flusher.Flush()
		}
	}
}
