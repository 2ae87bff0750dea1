package api

import "sync"

// ProgressHub fans stage-completion events out to any number of
// subscribers per analysis id. Subscriptions are transient: nothing is
// buffered for a subscriber that connects after a stage has already
// fired, matching an analysis run's single-pass lifecycle.
type ProgressHub struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

// NewProgressHub builds an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{subs: make(map[string][]chan string)}
}

// Subscribe registers a buffered channel for analysisID's stage events.
// The returned function must be called to unregister it.
func (h *ProgressHub) Subscribe(analysisID string) (<-chan string, func()) {
	ch := make(chan string, 16)

	h.mu.Lock()
	h.subs[analysisID] = append(h.subs[analysisID], ch)
	h.mu.Unlock()

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		chans := h.subs[analysisID]
		for i, c := range chans {
			if c == ch {
				h.subs[analysisID] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, unsubscribe
}

// Publish broadcasts stage to every current subscriber of analysisID.
// Never blocks: a subscriber whose buffer is full misses the event.
func (h *ProgressHub) Publish(analysisID, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[analysisID] {
		select {
		case ch <- stage:
		default:
		}
	}
}
