package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ckocyigit/duoledger/internal/hub"
	"github.com/ckocyigit/duoledger/internal/middleware"
)

// EventService streams ledger events to clients over server-sent events.
type EventService struct {
	hub *hub.Hub
}

// NewEventService creates a new event stream service.
func NewEventService(h *hub.Hub) *EventService {
	return &EventService{hub: h}
}

// Stream subscribes the caller to their event feed. The connection stays open
// until the client disconnects; each event is one SSE data frame.
func (s *EventService) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	userID := middleware.GetUserID(r.Context())
	events, cancel := s.hub.Subscribe(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Initial frame so the client knows it is connected.
	fmt.Fprintf(w, "data: %s\n\n", `{"type":"system","message":"connected"}`)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
