// Package datadog implements a stats.Recorder that submits buffered metrics to Datadog.
// Metrics are flushed on a ticker and once more on Close, so long syncs produce a
// time series and short ones still report their tail.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/stats"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "cdsync".
	JobName string
	// Tags are extra Datadog tags (e.g. "env:prod").
	Tags []string
	// FlushEvery controls how often buffered metrics are submitted. Defaults to 60s.
	FlushEvery time.Duration

	// Unexported test seams.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the part of *datadogV2.MetricsApi used by Backend.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements stats.Recorder for Datadog.
type Backend struct {
	api        metricsSubmitter
	ctx        context.Context
	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}
	closeOnce  sync.Once
	baseTags   []string
	now        func() time.Time
	newTicker  func(d time.Duration) *time.Ticker

	mu              sync.Mutex
	tableCounts     map[string]float64 // phase\x00status -> count
	rowCounts       map[string]float64 // phase -> rows
	runCounts       map[string]float64 // status -> count
	durationSamples map[string][]float64
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend using the official client.
// Credentials and site are read by the client from DD_API_KEY, DD_APP_KEY and DD_SITE.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if parent == nil {
		return nil, errors.New("datadog metrics init: nil context")
	}
	job := opts.JobName
	if job == "" {
		job = "cdsync"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}
	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}
	submitter := opts.submitter
	if submitter == nil {
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:             submitter,
		ctx:             dd.NewDefaultContext(parent),
		flushEvery:      flushEvery,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
		baseTags:        baseTags,
		now:             nowFn,
		newTicker:       newTicker,
		tableCounts:     make(map[string]float64),
		rowCounts:       make(map[string]float64),
		runCounts:       make(map[string]float64),
		durationSamples: make(map[string][]float64),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the background flush loop and performs one final Flush.
// Calling Close more than once only flushes.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopCh)
		<-b.doneCh
	})
	return b.Flush()
}

// IncCounter implements stats.Recorder. Unknown metric names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels stats.Labels) {
	if delta <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch name {
	case stats.MetricTableTotal:
		b.tableCounts[phaseStatusKey(labels["phase"], labels["status"])] += delta
	case stats.MetricRowsTotal:
		b.rowCounts[orUnknown(labels["phase"])] += delta
	case stats.MetricRunTotal:
		b.runCounts[orUnknown(labels["status"])] += delta
	}
}

// ObserveHistogram implements stats.Recorder. Unknown metric names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels stats.Labels) {
	if value < 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == stats.MetricTableDurationSeconds {
		k := phaseStatusKey(labels["phase"], labels["status"])
		b.durationSamples[k] = append(b.durationSamples[k], value)
	}
}

type snapshot struct {
	tableCounts     map[string]float64
	rowCounts       map[string]float64
	runCounts       map[string]float64
	durationSamples map[string][]float64
}

func (s snapshot) isEmpty() bool {
	return len(s.tableCounts) == 0 && len(s.rowCounts) == 0 && len(s.runCounts) == 0 && len(s.durationSamples) == 0
}

// snapshotAndReset takes the buffered metrics and resets the buffers.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := snapshot{tableCounts: b.tableCounts, rowCounts: b.rowCounts, runCounts: b.runCounts, durationSamples: b.durationSamples}
	b.tableCounts = make(map[string]float64)
	b.rowCounts = make(map[string]float64)
	b.runCounts = make(map[string]float64)
	b.durationSamples = make(map[string][]float64)
	return s
}

// Flush submits buffered metrics and resets local buffers even if the submission fails.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	if _, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return errors.Wrap(err, "error submitting metrics to datadog")
	}
	return nil
}

// buildSeries converts a snapshot into Datadog series at a fixed timestamp.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(s.tableCounts)+len(s.rowCounts)+len(s.runCounts)+6*len(s.durationSamples))
	for k, v := range s.tableCounts {
		phase, status := splitPhaseStatusKey(k)
		series = append(series, point("cdsync.table.total", datadogV2.METRICINTAKETYPE_COUNT, v, withTags(b.baseTags, "phase:"+phase, "status:"+status), nowUnix))
	}
	for phase, v := range s.rowCounts {
		series = append(series, point("cdsync.rows.total", datadogV2.METRICINTAKETYPE_COUNT, v, withTags(b.baseTags, "phase:"+phase), nowUnix))
	}
	for status, v := range s.runCounts {
		series = append(series, point("cdsync.run.total", datadogV2.METRICINTAKETYPE_COUNT, v, withTags(b.baseTags, "status:"+status), nowUnix))
	}
	for k, samples := range s.durationSamples {
		if len(samples) == 0 {
			continue
		}
		cp := append([]float64(nil), samples...)
		sort.Float64s(cp)
		phase, status := splitPhaseStatusKey(k)
		tags := withTags(b.baseTags, "phase:"+phase, "status:"+status)
		prefix := "cdsync.table.duration_seconds"
		series = append(series,
			point(prefix+".p50", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.50), tags, nowUnix),
			point(prefix+".p90", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.90), tags, nowUnix),
			point(prefix+".p99", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.99), tags, nowUnix),
			point(prefix+".max", datadogV2.METRICINTAKETYPE_GAUGE, cp[len(cp)-1], tags, nowUnix),
			point(prefix+".samples", datadogV2.METRICINTAKETYPE_GAUGE, float64(len(cp)), tags, nowUnix),
		)
	}
	return series
}

func point(metric string, typ datadogV2.MetricIntakeType, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func phaseStatusKey(phase, status string) string {
	return orUnknown(phase) + "\x00" + orUnknown(status)
}

func splitPhaseStatusKey(k string) (phase, status string) {
	parts := strings.SplitN(k, "\x00", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return k, "unknown"
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	return append(out, extras...)
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

// ParseTagsCSV parses comma-separated tags like "env:prod,service:cdsync".
func ParseTagsCSV(s string) []string {
	out := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ stats.Recorder = (*Backend)(nil)
