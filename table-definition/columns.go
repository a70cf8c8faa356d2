package tabledefinition

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// TableColumn defines a single table column as described by the data dump schema.
type TableColumn struct {
	ColName     string `json:"name"`
	DataType    string `json:"type"`
	Description string `json:"description,omitempty"`
}

// TableColumns holds the ordered columns of one table.
// Column order matches the field order of the raw dump files.
type TableColumns struct {
	TableName   string        `json:"tableName"`
	Description string        `json:"description,omitempty"`
	Columns     []TableColumn `json:"columns"`
}

// ColumnNames returns the ordered list of column names.
func (t TableColumns) ColumnNames() []string {
	retval := make([]string, len(t.Columns))
	for idx, c := range t.Columns {
		retval[idx] = c.ColName
	}
	return retval
}

// Validate checks that the table has at least one column and that column names are unique and not blank.
func (t TableColumns) Validate() error {
	if len(t.Columns) == 0 {
		return errors.Errorf("table %q has no columns", t.TableName)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for idx, c := range t.Columns {
		name := strings.TrimSpace(c.ColName)
		if name == "" {
			return errors.Errorf("table %q column %v has no name", t.TableName, idx+1)
		}
		if _, ok := seen[name]; ok {
			return errors.Errorf("table %q has duplicate column %q", t.TableName, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// SchemaDescriptor maps table name to its column definitions for one data version.
// It is created once per run and treated as read-only afterwards.
type SchemaDescriptor struct {
	Version string                  `json:"version"`
	Tables  map[string]TableColumns `json:"schema"`
}

// TableNames returns the table names in sorted order.
func (s SchemaDescriptor) TableNames() []string {
	retval := make([]string, 0, len(s.Tables))
	for k := range s.Tables {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval
}

// GetTable returns the columns of tableName and whether it exists.
func (s SchemaDescriptor) GetTable(tableName string) (TableColumns, bool) {
	t, ok := s.Tables[tableName]
	return t, ok
}

// KeyOnTableNames re-keys the descriptor using each entry's TableName.
// Entries without a TableName keep their original key.
func (s SchemaDescriptor) KeyOnTableNames() SchemaDescriptor {
	retval := SchemaDescriptor{Version: s.Version, Tables: make(map[string]TableColumns, len(s.Tables))}
	for k, v := range s.Tables {
		if v.TableName == "" {
			v.TableName = k
		}
		retval.Tables[v.TableName] = v
	}
	return retval
}
