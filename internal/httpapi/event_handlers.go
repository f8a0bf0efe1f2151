package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"wishmaster.org/internal/auth"
	"wishmaster.org/internal/event"
)

// publish sends a wish activity event when a bus is configured.
func (a *API) publish(eventType, wishlistID, wishID string, actor *auth.Principal) {
	if a.events == nil {
		return
	}
	evt := event.Event{
		Type:       eventType,
		WishlistID: wishlistID,
		WishID:     wishID,
	}
	if actor != nil {
		evt.ActorID = actor.ID
	}
	a.events.Publish(evt)
}

// handleEvents streams wish activity as server-sent events.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.requirePermission(w, r, auth.PermWishRead); !ok {
		return
	}
	if a.events == nil {
		respondError(w, r, http.StatusServiceUnavailable, "event stream disabled")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// Subscribe before the headers go out so callers see every event
	// published after the stream opens.
	ch := a.events.Subscribe(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for evt := range ch {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
