package recommend

import (
	"sync"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// HistorySink receives every generated recommendation list
type HistorySink interface {
	Record(rec models.HistoryRecord)
}

// NopHistory discards records
type NopHistory struct{}

func (NopHistory) Record(models.HistoryRecord) {}

// RingHistory keeps the most recent records up to a fixed capacity
type RingHistory struct {
	mu   sync.Mutex
	buf  []models.HistoryRecord
	next int
	full bool
}

func NewRingHistory(capacity int) *RingHistory {
	if capacity < 1 {
		capacity = 1
	}
	return &RingHistory{buf: make([]models.HistoryRecord, capacity)}
}

func (h *RingHistory) Record(rec models.HistoryRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = rec
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Records returns the retained records, oldest first
func (h *RingHistory) Records() []models.HistoryRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		return append([]models.HistoryRecord(nil), h.buf[:h.next]...)
	}
	out := make([]models.HistoryRecord, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	return append(out, h.buf[:h.next]...)
}

func (h *RingHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.full {
		return len(h.buf)
	}
	return h.next
}
