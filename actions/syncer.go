package actions

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/aws/s3"
	"github.com/relloyd/cdsync/canvasdata"
	"github.com/relloyd/cdsync/config"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/gcp/gcs"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	"github.com/relloyd/cdsync/stats"
	"github.com/relloyd/cdsync/stats/datadog"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
	"github.com/relloyd/cdsync/warehouse/bigquery"
	"github.com/relloyd/cdsync/warehouse/snowflake"
)

// SyncRunner runs one complete sync.
type SyncRunner interface {
	Run(ctx context.Context) *pipeline.Summary
}

// Syncer owns the clients built from a Config for the lifetime of the process.
type Syncer struct {
	log     logger.Logger
	fetcher *canvasdata.Client
	runner  *pipeline.Runner
	stats   *stats.TableStatsManager
	closers []io.Closer
}

// NewSyncer validates cfg and constructs the fetcher, stager, warehouse and metrics clients.
// Errors are fatal to the process.
func NewSyncer(ctx context.Context, log logger.Logger, cfg *config.Config) (_ *Syncer, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	skip, err := pipeline.NewSkipPolicy(cfg.Sync.LogTable, constants.ReservedTableSubstring, cfg.Sync.SkipTables, cfg.Sync.TableFilter)
	if err != nil {
		return nil, err
	}
	s := &Syncer{log: log}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()
	s.fetcher, err = NewFetcher(log, cfg)
	if err != nil {
		return nil, err
	}
	stager, err := newStager(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	s.track(stager)
	wh, err := newWarehouse(ctx, log, cfg)
	if err != nil {
		return nil, err
	}
	s.track(wh)
	var recorder stats.Recorder = stats.NopRecorder{}
	if cfg.Datadog.Enabled {
		b, err := datadog.NewBackend(ctx, datadog.Options{JobName: constants.ServiceName, Tags: cfg.Datadog.Tags, FlushEvery: cfg.Datadog.FlushEvery})
		if err != nil {
			return nil, errors.Wrap(err, "error starting Datadog metrics")
		}
		recorder = b
	}
	// Closing the manager closes the recorder.
	s.stats = stats.NewTableStatsManager(log,
		stats.SetStatsDumpFrequency(constants.StatsDumpFrequencySeconds*time.Second),
		stats.SetRecorder(recorder))
	s.closers = append(s.closers, s.stats)
	s.runner, err = pipeline.NewRunner(log, s.fetcher, stager, wh, s.stats, pipeline.Options{
		SchemaVersion: cfg.Canvas.SchemaVersion,
		Skip:          skip,
		SyncWorkers:   cfg.Sync.Workers,
		LoadWorkers:   cfg.Sync.LoadWorkers,
		TableTimeout:  cfg.Sync.TableTimeout,
		WorkDir:       cfg.Sync.WorkDir,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("configuration: ", cfg)
	return s, nil
}

// NewFetcher returns a dump API client for cfg.
func NewFetcher(log logger.Logger, cfg *config.Config) (*canvasdata.Client, error) {
	return canvasdata.NewClient(log, canvasdata.Config{
		BaseURL:   cfg.Canvas.BaseURL,
		APIKey:    cfg.Canvas.APIKey,
		APISecret: cfg.Canvas.APISecret,
		Timeout:   cfg.Canvas.Timeout,
	})
}

func (s *Syncer) track(c interface{}) {
	if closer, ok := c.(io.Closer); ok {
		s.closers = append(s.closers, closer)
	}
}

func newStager(ctx context.Context, log logger.Logger, cfg *config.Config) (pipeline.Stager, error) {
	switch cfg.Stage.Type {
	case constants.StageTypeS3:
		st, err := s3.NewStager(log, s3.Bucket{Name: cfg.Stage.Bucket, Prefix: cfg.Stage.Prefix, Region: cfg.Stage.Region})
		if err != nil {
			return nil, err
		}
		return st, nil
	case constants.StageTypeGCS:
		bucket := cfg.Stage.Bucket
		if cfg.Stage.Prefix != "" {
			bucket += "/" + cfg.Stage.Prefix
		}
		st, err := gcs.NewStager(ctx, log, bucket, cfg.Warehouse.Credentials)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, errors.Errorf("unsupported stage type %q", cfg.Stage.Type)
}

func newWarehouse(ctx context.Context, log logger.Logger, cfg *config.Config) (pipeline.Warehouse, error) {
	switch cfg.Warehouse.Type {
	case constants.WarehouseTypeBigQuery:
		l, err := bigquery.NewLoader(ctx, log,
			bigquery.Config{Project: cfg.Warehouse.Project, Dataset: cfg.Warehouse.Dataset, Credentials: cfg.Warehouse.Credentials},
			tabledefinition.NewCanvasToBigQueryDataTypeMapper(cfg.Warehouse.TypeMap))
		if err != nil {
			return nil, err
		}
		return l, nil
	case constants.WarehouseTypeSnowflake:
		l, err := snowflake.NewLoader(ctx, log,
			snowflake.Config{DSN: cfg.Warehouse.SnowflakeDSN, Stage: cfg.Warehouse.SnowflakeStage},
			tabledefinition.NewCanvasToSnowflakeDataTypeMapper(cfg.Warehouse.TypeMap))
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, errors.Errorf("unsupported warehouse type %q", cfg.Warehouse.Type)
}

// Run performs one sync run.
func (s *Syncer) Run(ctx context.Context) *pipeline.Summary {
	return s.runner.Run(ctx)
}

// Stats returns the per table stats of the current or last run.
func (s *Syncer) Stats() []stats.Stats {
	return s.stats.GetStats()
}

// Close releases every client, flushing metrics first.
func (s *Syncer) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.closers = nil
	return first
}
