// Package sse streams engine deltas over Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/events"
)

// Subscriber is the part of events.EventDispatcher the handler needs.
type Subscriber interface {
	RegisterWildcard(name string, handler events.EventHandlerFunc)
}

type frame struct {
	id    string
	typ   string
	topic string
	data  []byte
}

// SSEHandler streams deltas via Server-Sent Events. Clients pick a topic
// with ?topic=draft:<id> and may narrow by ?types=a,b.
type SSEHandler struct {
	mu      sync.RWMutex
	clients map[chan frame]struct{}
	logger  *slog.Logger
}

// NewSSEHandler creates a new SSE handler subscribed to sub.
func NewSSEHandler(sub Subscriber, logger *slog.Logger) *SSEHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &SSEHandler{
		clients: make(map[chan frame]struct{}),
		logger:  logger,
	}
	sub.RegisterWildcard("sse", h.publish)
	return h
}

// publish encodes once on the publishing goroutine, then only enqueues.
func (h *SSEHandler) publish(_ context.Context, d events.Delta) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return nil
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}
	f := frame{id: d.ID, typ: d.Type, topic: d.Topic, data: data}
	for ch := range h.clients {
		select {
		case ch <- f:
		default:
			h.logger.Debug("sse client slow, delta dropped", "topic", d.Topic, "version", d.Version)
		}
	}
	return nil
}

// Clients returns the number of connected streams.
func (h *SSEHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections.
func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	topic := r.URL.Query().Get("topic")
	if topic != "" {
		if _, _, ok := events.ParseTopic(topic); !ok {
			http.Error(w, "topic must be draft:<id> or plan:<id>", http.StatusBadRequest)
			return
		}
	}
	typeFilter := make(map[string]bool)
	if types := r.URL.Query().Get("types"); types != "" {
		for _, t := range strings.Split(types, ",") {
			typeFilter[strings.TrimSpace(t)] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := make(chan frame, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-ch:
			if topic != "" && f.topic != topic {
				continue
			}
			if len(typeFilter) > 0 && !typeFilter[f.typ] {
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", f.id, f.typ, f.data)
			flusher.Flush()
		}
	}
}
