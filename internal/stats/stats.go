package stats

import (
	"sync"
	"time"

	"github.com/pavelc4/mediaq-bot/internal/media"
	"github.com/shirou/gopsutil/v3/net"
)

// Recorder counts terminal job outcomes. One instance lives for the whole
// process and is shared by every coordinator run.
type Recorder struct {
	mu  sync.RWMutex
	now func() time.Time

	startTime     time.Time
	total         int64
	totalDuration time.Duration
	byState       map[string]int64
	byCategory    map[string]int64
	lastJob       time.Time

	netSentBaseline uint64
	netRecvBaseline uint64
}

func NewRecorder() *Recorder {
	r := &Recorder{
		now:        time.Now,
		byState:    make(map[string]int64),
		byCategory: make(map[string]int64),
	}
	r.startTime = r.now()

	if counters, err := net.IOCounters(false); err == nil && len(counters) > 0 {
		r.netSentBaseline = counters[0].BytesSent
		r.netRecvBaseline = counters[0].BytesRecv
	}
	return r
}

func (r *Recorder) RecordOutcome(category media.Category, state string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total++
	r.totalDuration += d
	r.byState[state]++
	r.byCategory[string(category)]++
	r.lastJob = r.now()
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{
		Uptime:     r.now().Sub(r.startTime),
		Total:      r.total,
		ByState:    make(map[string]int64, len(r.byState)),
		ByCategory: make(map[string]int64, len(r.byCategory)),
		LastJob:    r.lastJob,
	}
	for k, v := range r.byState {
		s.ByState[k] = v
	}
	for k, v := range r.byCategory {
		s.ByCategory[k] = v
	}
	if r.total > 0 {
		s.AvgDuration = r.totalDuration / time.Duration(r.total)
	}
	return s
}

func (r *Recorder) StartTime() time.Time {
	return r.startTime
}
