package watch

import (
	"sync"

	"github.com/rileyhilliard/edgewatch/internal/poller"
)

// DefaultHistorySize is the default number of samples retained per metric.
const DefaultHistorySize = 60

// History retains recent metric samples in ring buffers for sparkline
// rendering. It is safe for concurrent use: the poll loop pushes while the
// render loop reads.
type History struct {
	mu      sync.RWMutex
	size    int
	cpu     *ringBuffer
	mem     *ringBuffer
	network map[string]*interfaceHistory
}

// interfaceHistory holds per-interface throughput history in bytes/sec.
type interfaceHistory struct {
	rx *ringBuffer
	tx *ringBuffer
}

// NewHistory creates a history tracker retaining size samples per metric.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:    size,
		cpu:     newRingBuffer(size),
		mem:     newRingBuffer(size),
		network: make(map[string]*interfaceHistory),
	}
}

// Push records the metrics of one snapshot. Fields the cycle couldn't produce
// are skipped, not recorded as zero, so sparklines show real measurements
// only.
func (h *History) Push(snap *poller.DeviceSnapshot) {
	if snap == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if snap.CPUPercent != nil {
		h.cpu.push(*snap.CPUPercent)
	}
	if snap.MemPercent != nil {
		h.mem.push(*snap.MemPercent)
	}

	for name, st := range snap.Interfaces {
		if st.Stale || st.RxRate == nil || st.TxRate == nil {
			continue
		}
		ih, ok := h.network[name]
		if !ok {
			ih = &interfaceHistory{
				rx: newRingBuffer(h.size),
				tx: newRingBuffer(h.size),
			}
			h.network[name] = ih
		}
		ih.rx.push(*st.RxRate)
		ih.tx.push(*st.TxRate)
	}
}

// CPU returns the last count CPU percentage samples, oldest first.
func (h *History) CPU(count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cpu.last(count)
}

// Mem returns the last count memory percentage samples, oldest first.
func (h *History) Mem(count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.mem.last(count)
}

// Rates returns the last count rx and tx rate samples for an interface.
func (h *History) Rates(name string, count int) (rx, tx []float64) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ih, ok := h.network[name]
	if !ok {
		return nil, nil
	}
	return ih.rx.last(count), ih.tx.last(count)
}

// Count returns how many CPU samples are stored.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cpu.count
}

// ringBuffer is a fixed-size circular buffer of float64 samples.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{data: make([]float64, size), size: size}
}

func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// last returns up to count values ending at the newest, oldest first.
func (r *ringBuffer) last(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}
	if count > r.count {
		count = r.count
	}
	out := make([]float64, count)
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		out[i] = r.data[(start+i)%r.size]
	}
	return out
}
