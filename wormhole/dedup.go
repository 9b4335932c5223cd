package wormhole

import (
	"bytes"
	"sync"
	"time"
)

// dedupThreshold is the window within which two identical payloads are
// considered the same frame, see spec §4.G.
const dedupThreshold = 500 * time.Millisecond

// dedupEntry records one forwarded payload and when it was first seen.
type dedupEntry struct {
	payload []byte
	seenAt  time.Time
}

// DedupWindow suppresses re-forwarding a payload an exit node's own
// replay causes the entry node to hear again. Grounded on
// LoRaWormhole._is_duplicate_msg in the original tool implementation.
type DedupWindow struct {
	mu      sync.Mutex
	entries []dedupEntry
}

// NewDedupWindow returns an empty window.
func NewDedupWindow() *DedupWindow {
	return &DedupWindow{}
}

// Seen reports whether payload was already forwarded within the
// deduplication threshold, and records it if not.
func (d *DedupWindow) Seen(payload []byte) bool {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	live := d.entries[:0]
	for _, e := range d.entries {
		if now.Sub(e.seenAt) < dedupThreshold {
			live = append(live, e)
		}
	}
	d.entries = live

	for _, e := range d.entries {
		if bytes.Equal(e.payload, payload) {
			return true
		}
	}
	d.entries = append(d.entries, dedupEntry{payload: append([]byte(nil), payload...), seenAt: now})
	return false
}
