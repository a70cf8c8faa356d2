package stats

import (
	"fmt"
	"sync"
	"time"

	"github.com/cevaris/ordered_map"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/logger"
)

// TableStatsManager saves stats for each table step of a run in the order the steps started,
// periodically logs the progress of running steps and forwards results to a Recorder.
type TableStatsManager struct {
	ticker          *time.Ticker
	tickerDone      chan struct{}
	tickerRunning   bool
	tickerFrequency time.Duration
	mu              sync.Mutex
	log             logger.Logger
	recorder        Recorder
	now             func() time.Time
	mapTableStats   *ordered_map.OrderedMap // key "phase/table" -> *TableWatcher
}

// SetStatsDumpFrequency returns an option for NewTableStatsManager.
// A frequency <= 0 disables periodic dumping.
func SetStatsDumpFrequency(d time.Duration) func(t *TableStatsManager) {
	return func(t *TableStatsManager) {
		t.tickerFrequency = d
	}
}

// SetRecorder returns an option for NewTableStatsManager that sends metrics to r.
func SetRecorder(r Recorder) func(t *TableStatsManager) {
	return func(t *TableStatsManager) {
		if r != nil {
			t.recorder = r
		}
	}
}

// NewTableStatsManager creates a new TableStatsManager.
func NewTableStatsManager(log logger.Logger, options ...func(t *TableStatsManager)) *TableStatsManager {
	t := &TableStatsManager{
		log:             log,
		recorder:        NopRecorder{},
		tickerFrequency: constants.StatsDumpFrequencySeconds * time.Second,
		now:             time.Now,
		mapTableStats:   ordered_map.NewOrderedMap(),
		tickerDone:      make(chan struct{}),
	}
	for _, option := range options {
		option(t)
	}
	return t
}

func statsKey(phase, tableName string) string {
	return fmt.Sprintf("%v/%v", phase, tableName)
}

// StartTable registers a running step for tableName in phase.
func (t *TableStatsManager) StartTable(phase, tableName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mapTableStats.Set(statsKey(phase, tableName), newTableWatcher(tableName, phase, t.now()))
}

// EndTable marks the step finished and records metrics for it.
// Steps that were never started are registered on the fly.
func (t *TableStatsManager) EndTable(phase, tableName string, ok bool, rows int64) {
	now := t.now()
	t.mu.Lock()
	v, found := t.mapTableStats.Get(statsKey(phase, tableName))
	if !found {
		v = newTableWatcher(tableName, phase, now)
		t.mapTableStats.Set(statsKey(phase, tableName), v)
	}
	t.mu.Unlock()
	w := v.(*TableWatcher)
	status := StatusComplete
	if !ok {
		status = StatusFailed
	}
	w.finish(status, rows, now)
	labels := Labels{"phase": phase, "status": status.String()}
	t.recorder.IncCounter(MetricTableTotal, 1, labels)
	t.recorder.ObserveHistogram(MetricTableDurationSeconds, w.Elapsed(now).Seconds(), labels)
	if rows > 0 {
		t.recorder.IncCounter(MetricRowsTotal, float64(rows), Labels{"phase": phase})
	}
}

// EndRun records the overall run result.
func (t *TableStatsManager) EndRun(status string) {
	t.recorder.IncCounter(MetricRunTotal, 1, Labels{"status": status})
}

// StartDumping logs stats of running steps on a ticker until StopDumping is called.
func (t *TableStatsManager) StartDumping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tickerRunning {
		t.log.Debug("stats dumper ticker already running")
		return
	}
	if t.tickerFrequency <= 0 {
		t.log.Debug("stats dumper disabled")
		return
	}
	t.ticker = time.NewTicker(t.tickerFrequency)
	t.tickerRunning = true
	go func() {
		t.log.Debug("stats dumper ticker started")
		for {
			select {
			case <-t.tickerDone:
				t.log.Debug("stats dumper ticker stopped")
				return
			case <-t.ticker.C:
				t.logStats(true)
			}
		}
	}()
}

// StopDumping stops the ticker, if it was started, and logs the final stats of every step.
func (t *TableStatsManager) StopDumping() {
	t.mu.Lock()
	running := t.tickerRunning
	t.tickerRunning = false
	t.mu.Unlock()
	if running { // the dumper goroutine takes t.mu so signal it without holding the lock.
		t.ticker.Stop()
		t.tickerDone <- struct{}{} // cause the goroutine to exit (we can't close ticker.C)
	}
	t.logStats(false)
}

// logStats outputs the stats of each step; runningOnly restricts output to steps in progress.
func (t *TableStatsManager) logStats(runningOnly bool) {
	for _, s := range t.GetStats() {
		if runningOnly && s.StatusText != StatusRunning.String() {
			continue
		}
		t.log.Info(fmt.Sprintf("%v %v %v: %v after %vs, %v rows", s.StatusEmoji, s.Phase, s.TableName, s.StatusText, s.ElapsedTimeSec, s.TotalRows))
	}
}

// GetStats returns the stats of every step in start order.
func (t *TableStatsManager) GetStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	statsList := make([]Stats, 0, t.mapTableStats.Len())
	iter := t.mapTableStats.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() { // for each element in the map of table steps...
		statsList = append(statsList, kv.Value.(*TableWatcher).RenderStats(now))
	}
	return statsList
}

// Close flushes the recorder.
func (t *TableStatsManager) Close() error {
	return t.recorder.Close()
}
