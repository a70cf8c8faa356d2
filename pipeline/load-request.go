package pipeline

import (
	"encoding/json"

	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// WriteMode selects how a load treats rows already in the destination table.
type WriteMode int

const (
	WriteTruncate WriteMode = iota // replace all rows.
	WriteAppend                    // keep existing rows.
)

func (m WriteMode) String() string {
	if m == WriteAppend {
		return "WRITE_APPEND"
	}
	return "WRITE_TRUNCATE"
}

func (m WriteMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// LoadRequest describes one table load from a staged object.
type LoadRequest struct {
	Table     tabledefinition.TableColumns
	Mode      WriteMode
	ObjectKey string // key within the staging bucket.
	SourceURI string // fully qualified object location.
}

// LoadResult reports the outcome of a successful load.
type LoadResult struct {
	TableID  string
	RowCount int64
}
