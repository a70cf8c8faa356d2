package snowflake

import (
	"fmt"
	"path"
	"strings"

	"github.com/relloyd/cdsync/helper"
	"github.com/relloyd/cdsync/pipeline"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

func quoteIdentifier(s string) string {
	return helper.ToUpperQuotedIfNotQuoted([]string{s})[0]
}

// GetSqlCreateTable returns DDL that creates the table when it is missing.
func GetSqlCreateTable(tableName string, fields []tabledefinition.FieldDefinition) string {
	cols := make([]string, len(fields))
	for idx, f := range fields {
		cols[idx] = fmt.Sprintf("%v %v", quoteIdentifier(f.Name), f.DataType)
	}
	return fmt.Sprintf("create table if not exists %v (%v)", quoteIdentifier(tableName), strings.Join(cols, ", "))
}

// GetSqlSliceLoad returns the DML to run in one transaction for mode.
// WriteTruncate deletes existing rows before the copy.
func GetSqlSliceLoad(tableName string, stageName string, key string, mode pipeline.WriteMode) []string {
	t := quoteIdentifier(tableName)
	retval := make([]string, 0, 2)
	if mode == pipeline.WriteTruncate {
		retval = append(retval, fmt.Sprintf("delete from %v", t))
	}
	stagedFile := path.Join(strings.TrimPrefix(stageName, "@"), key)
	// force=true reloads a file whose name was loaded before, since each run replaces the object.
	return append(retval, fmt.Sprintf(
		"copy into %v from '@%v' file_format=(type=csv skip_header=1 field_optionally_enclosed_by='\"') force=true",
		t, stagedFile))
}

// GetSqlRowCount returns a query of the table row count.
func GetSqlRowCount(tableName string) string {
	return fmt.Sprintf("select count(*) from %v", quoteIdentifier(tableName))
}
