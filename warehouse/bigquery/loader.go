// Package bigquery loads staged CSV objects into BigQuery tables.
package bigquery

import (
	"context"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/gcp"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// Config locates the destination dataset.
type Config struct {
	Project     string `errorTxt:"BigQuery project" mandatory:"yes"`
	Dataset     string `errorTxt:"BigQuery dataset" mandatory:"yes"`
	Credentials gcp.Credentials
}

// jobRunner runs one load job and returns the destination row count.
type jobRunner interface {
	runLoad(ctx context.Context, dataset, table string, src *bigquery.GCSReference, mode pipeline.WriteMode) (int64, error)
}

// Loader implements pipeline.Warehouse on BigQuery load jobs.
type Loader struct {
	log    logger.Logger
	cfg    Config
	mapper tabledefinition.Mapper
	client *bigquery.Client
	runner jobRunner
}

// NewLoader creates a BigQuery client for cfg.Project. mapper translates Canvas types to BigQuery types.
func NewLoader(ctx context.Context, log logger.Logger, cfg Config, mapper tabledefinition.Mapper) (*Loader, error) {
	if cfg.Project == "" || cfg.Dataset == "" {
		return nil, errors.New("please supply values for BigQuery project and dataset")
	}
	client, err := bigquery.NewClient(ctx, cfg.Project, cfg.Credentials.ClientOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create BigQuery client")
	}
	l := &Loader{log: log, cfg: cfg, mapper: mapper, client: client}
	l.runner = &clientRunner{client: client, project: cfg.Project}
	return l, nil
}

// Load runs a blocking load job of req.SourceURI into project.dataset.table.
func (l *Loader) Load(ctx context.Context, req pipeline.LoadRequest) (pipeline.LoadResult, error) {
	name := req.Table.TableName
	src, err := NewLoadSource(req.SourceURI, req.Table, l.mapper)
	if err != nil {
		return pipeline.LoadResult{}, err
	}
	tableID := l.cfg.Project + "." + l.cfg.Dataset + "." + name
	l.log.Debug("loading ", req.SourceURI, " into ", tableID, " with ", req.Mode)
	rows, err := l.runner.runLoad(ctx, l.cfg.Dataset, name, src, req.Mode)
	if err != nil {
		return pipeline.LoadResult{}, errors.Wrapf(err, "error loading table %v", tableID)
	}
	return pipeline.LoadResult{TableID: tableID, RowCount: rows}, nil
}

// Close releases the BigQuery client.
func (l *Loader) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// NewLoadSource describes a CSV object with a header row and an explicit schema.
// Schema auto detection is used only when the table has no columns.
func NewLoadSource(uri string, cols tabledefinition.TableColumns, mapper tabledefinition.Mapper) (*bigquery.GCSReference, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return nil, errors.Errorf("BigQuery can only load from gs:// objects, got %v", uri)
	}
	ref := bigquery.NewGCSReference(uri)
	ref.SourceFormat = bigquery.CSV
	ref.SkipLeadingRows = 1
	ref.AllowQuotedNewlines = false
	ref.Schema = Schema(cols, mapper)
	ref.AutoDetect = len(ref.Schema) == 0
	return ref, nil
}

// Schema returns the BigQuery schema of cols in column order.
func Schema(cols tabledefinition.TableColumns, mapper tabledefinition.Mapper) bigquery.Schema {
	fields := tabledefinition.BuildFieldSchema(cols, mapper)
	retval := make(bigquery.Schema, 0, len(fields))
	for _, f := range fields {
		retval = append(retval, &bigquery.FieldSchema{
			Name:        f.Name,
			Type:        FieldType(f.DataType),
			Description: f.Description,
		})
	}
	return retval
}

var standardSQLTypes = map[string]bigquery.FieldType{
	"FLOAT64":    bigquery.FloatFieldType,
	"FLOAT":      bigquery.FloatFieldType,
	"INT64":      bigquery.IntegerFieldType,
	"INTEGER":    bigquery.IntegerFieldType,
	"BOOL":       bigquery.BooleanFieldType,
	"BOOLEAN":    bigquery.BooleanFieldType,
	"STRING":     bigquery.StringFieldType,
	"BYTES":      bigquery.BytesFieldType,
	"DATE":       bigquery.DateFieldType,
	"DATETIME":   bigquery.DateTimeFieldType,
	"TIME":       bigquery.TimeFieldType,
	"TIMESTAMP":  bigquery.TimestampFieldType,
	"NUMERIC":    bigquery.NumericFieldType,
	"BIGNUMERIC": bigquery.BigNumericFieldType,
	"JSON":       bigquery.JSONFieldType,
}

// FieldType converts a type name to a bigquery.FieldType. Unknown names become STRING.
func FieldType(dataType string) bigquery.FieldType {
	if ft, ok := standardSQLTypes[strings.ToUpper(strings.TrimSpace(dataType))]; ok {
		return ft
	}
	return bigquery.StringFieldType
}

// WriteDisposition converts the pipeline write mode.
func WriteDisposition(mode pipeline.WriteMode) bigquery.TableWriteDisposition {
	if mode == pipeline.WriteAppend {
		return bigquery.WriteAppend
	}
	return bigquery.WriteTruncate
}

type clientRunner struct {
	client  *bigquery.Client
	project string
}

func (r *clientRunner) runLoad(ctx context.Context, dataset, table string, src *bigquery.GCSReference, mode pipeline.WriteMode) (int64, error) {
	t := r.client.DatasetInProject(r.project, dataset).Table(table)
	loader := t.LoaderFrom(src)
	loader.WriteDisposition = WriteDisposition(mode)
	loader.CreateDisposition = bigquery.CreateIfNeeded
	job, err := loader.Run(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to run BigQuery load job")
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to wait for BigQuery load job %v", job.ID())
	}
	if err := status.Err(); err != nil {
		return 0, errors.Wrapf(err, "BigQuery load job %v failed", job.ID())
	}
	md, err := t.Metadata(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read table metadata")
	}
	return int64(md.NumRows), nil
}
