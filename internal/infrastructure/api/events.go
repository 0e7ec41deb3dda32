package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/infrastructure/pubsub"
)

const keepAliveInterval = 15 * time.Second

// streamEvents sends the client's change events as Server-Sent Events.
// ?topics= narrows the topics, ?storeId= narrows to one store.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	ctx := r.Context()
	filter := &pubsub.ChangeEventFilter{
		ClientID: domain.GetClientIDFromContext(ctx),
		StoreID:  r.URL.Query().Get("storeId"),
	}
	for _, topic := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if topic = strings.TrimSpace(topic); topic != "" {
			filter.Topics = append(filter.Topics, domain.Topic(topic))
		}
	}

	sub := h.events.SubscribeChannel(ctx, filter)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": subscribed %s\n\n", sub.ID)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, open := <-sub.Events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn().Err(err).Msg("Failed to encode change event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Topic, data)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}
