package stats

import (
	"sync/atomic"
	"time"
)

// Status of a table step.
type Status int32

const (
	StatusRunning Status = iota + 1
	StatusComplete
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// TableWatcher records progress of one table in one phase.
type TableWatcher struct {
	tableName string
	phase     string
	startTime time.Time
	endTime   atomic.Value // time.Time
	status    int32
	rows      int64
}

// Stats is a point in time rendering of a TableWatcher.
type Stats struct {
	TableName      string `json:"tableName"`
	Phase          string `json:"phase"`
	StatusText     string `json:"statusText"`
	StatusEmoji    string `json:"statusEmoji"`
	ElapsedTimeSec int    `json:"elapsedTimeSec"`
	TotalRows      int64  `json:"totalRows"`
}

func newTableWatcher(tableName, phase string, now time.Time) *TableWatcher {
	return &TableWatcher{tableName: tableName, phase: phase, startTime: now, status: int32(StatusRunning)}
}

func (w *TableWatcher) finish(status Status, rows int64, now time.Time) {
	atomic.StoreInt64(&w.rows, rows)
	w.endTime.Store(now)
	atomic.StoreInt32(&w.status, int32(status))
}

// Elapsed returns the time spent so far, or in total once finished.
func (w *TableWatcher) Elapsed(now time.Time) time.Duration {
	if end, ok := w.endTime.Load().(time.Time); ok {
		return end.Sub(w.startTime)
	}
	return now.Sub(w.startTime)
}

// RenderStats gets a struct filled with stats at the point of time it is called.
func (w *TableWatcher) RenderStats(now time.Time) Stats {
	status := Status(atomic.LoadInt32(&w.status))
	var emoji string
	switch status {
	case StatusRunning:
		emoji = "\U0000231B" // hour glass
	case StatusComplete:
		emoji = "\U00002705" // green tick
	default:
		emoji = "\U0000274C" // red cross
	}
	return Stats{
		TableName:      w.tableName,
		Phase:          w.phase,
		StatusText:     status.String(),
		StatusEmoji:    emoji,
		ElapsedTimeSec: int(w.Elapsed(now).Seconds()),
		TotalRows:      atomic.LoadInt64(&w.rows),
	}
}
