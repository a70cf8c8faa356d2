package pipeline

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/file"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// SyncTable fetches, sanitises and converts one table, then uploads it as its staged object.
// Local artifacts are removed before returning whatever the result.
// Errors are *TableError values of kind Fetch, Transform or Stage.
func (r *Runner) SyncTable(ctx context.Context, ws Workspace, cols tabledefinition.TableColumns) (rows int64, err error) {
	name := cols.TableName
	log := r.log.WithFields(map[string]interface{}{"table": name, "phase": string(PhaseSync)})
	if err := checkTableName(name); err != nil {
		return 0, newTableError(KindFetch, name, PhaseSync, err)
	}
	dir := ws.TableDir(name)
	csvFile := ws.CSVFile(name)
	defer removeArtifacts(log, dir, csvFile)

	if err := cols.Validate(); err != nil {
		return 0, newTableError(KindTransform, name, PhaseSync, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, newTableError(KindFetch, name, PhaseSync, errors.Wrapf(err, "error creating directory %v", dir))
	}
	log.Debug("fetching table ", name)
	rawFile, err := r.fetcher.GetDataForTable(ctx, name, dir)
	if err != nil {
		return 0, newTableError(KindFetch, name, PhaseSync, err)
	}
	if _, err := file.SanitiseFile(rawFile); err != nil {
		return 0, newTableError(KindTransform, name, PhaseSync, err)
	}
	rows, err = file.ConvertTSVToCSV(log, rawFile, csvFile, cols.ColumnNames())
	if err != nil {
		return 0, newTableError(KindTransform, name, PhaseSync, err)
	}
	key := r.ObjectKey(name)
	if err := r.stager.Upload(ctx, csvFile, key); err != nil {
		return 0, newTableError(KindStage, name, PhaseSync, errors.Wrapf(err, "error uploading %v", key))
	}
	log.Info("Staged ", rows, " rows: ", name, " -> ", r.stager.URI(key))
	return rows, nil
}

// SyncLogTable runs SyncTable for the log table, which the main loop always skips.
func (r *Runner) SyncLogTable(ctx context.Context, ws Workspace, schema tabledefinition.SchemaDescriptor) (int64, error) {
	name := r.opts.Skip.LogTable()
	cols, ok := schema.GetTable(name)
	if !ok {
		return 0, newTableError(KindFetch, name, PhaseSync, errors.Errorf("log table %v is not part of schema version %v", name, schema.Version))
	}
	cols.TableName = name
	return r.SyncTable(ctx, ws, cols)
}
