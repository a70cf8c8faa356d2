package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// WriteModeFor returns WriteAppend for the log table and WriteTruncate for every other table.
func (r *Runner) WriteModeFor(tableName string) WriteMode {
	if tableName == r.opts.Skip.LogTable() {
		return WriteAppend
	}
	return WriteTruncate
}

// ObjectKey returns the staging object key of a table.
func (r *Runner) ObjectKey(tableName string) string {
	return r.opts.KeyPrefix + tableName + constants.StagedObjectExtension
}

// LoadTable loads the staged object of a table into the warehouse and returns the destination row count.
// Errors are *TableError values of kind Load.
func (r *Runner) LoadTable(ctx context.Context, cols tabledefinition.TableColumns, mode WriteMode) (int64, error) {
	name := cols.TableName
	key := r.ObjectKey(name)
	req := LoadRequest{Table: cols, Mode: mode, ObjectKey: key, SourceURI: r.stager.URI(key)}
	res, err := r.warehouse.Load(ctx, req)
	if err != nil {
		return 0, newTableError(KindLoad, name, PhaseLoad, errors.Wrapf(err, "error loading %v with %v", req.SourceURI, mode))
	}
	r.log.WithFields(map[string]interface{}{"table": name, "phase": string(PhaseLoad), "tableId": res.TableID}).
		Info("Loaded ", res.RowCount, " rows: ", name)
	return res.RowCount, nil
}
