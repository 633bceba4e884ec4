// Package progress publishes per-transition pipeline events to observers:
// the structured log and any streaming subscribers.
package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event describes one status transition of a request.
type Event struct {
	RequestID string    `json:"request_id"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Summary   string    `json:"summary,omitempty"`
	At        time.Time `json:"at"`
}

// Reporter receives one event per transition. Implementations must not
// block; slow consumers drop events.
type Reporter interface {
	Report(e Event)
}

// LogReporter writes each event to the zap log.
type LogReporter struct {
	Log *zap.SugaredLogger
}

func (r *LogReporter) Report(e Event) {
	r.Log.Infow("pipeline transition",
		"request_id", e.RequestID,
		"stage", e.Stage,
		"status", e.Status,
		"summary", e.Summary,
	)
}

// Multi fans one event out to several reporters.
type Multi []Reporter

func (m Multi) Report(e Event) {
	for _, r := range m {
		r.Report(e)
	}
}

// Hub keeps per-request subscriber channels for the SSE endpoint.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan Event]struct{})}
}

// Subscribe returns a buffered event channel for the request and an
// unsubscribe func. The channel is closed on unsubscribe.
func (h *Hub) Subscribe(requestID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	set, ok := h.subs[requestID]
	if !ok {
		set = make(map[chan Event]struct{})
		h.subs[requestID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[requestID]; ok {
				delete(set, ch)
				if len(set) == 0 {
					delete(h.subs, requestID)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Report delivers the event to every subscriber of its request. Full
// buffers drop the event rather than block the pipeline.
func (h *Hub) Report(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[e.RequestID] {
		select {
		case ch <- e:
		default:
		}
	}
}
