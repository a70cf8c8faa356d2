package canvasdata

import (
	"fmt"
	"sort"
)

// DumpFile is one downloadable part of a table's data.
type DumpFile struct {
	URL      string `json:"url"`
	FileName string `json:"filename"`
}

// TableArtifact lists the files that make up one table in a dump.
type TableArtifact struct {
	TableName string     `json:"tableName"`
	Partial   bool       `json:"partial"`
	Files     []DumpFile `json:"files"`
}

// SortedFiles returns the files ordered by file name.
func (a TableArtifact) SortedFiles() []DumpFile {
	retval := append([]DumpFile(nil), a.Files...)
	sort.Slice(retval, func(i, j int) bool { return retval[i].FileName < retval[j].FileName })
	return retval
}

// Dump describes a data dump and its per-table artifacts.
type Dump struct {
	DumpID           string                   `json:"dumpId"`
	Sequence         int64                    `json:"sequence"`
	SchemaVersion    string                   `json:"schemaVersion"`
	Finished         bool                     `json:"finished"`
	ArtifactsByTable map[string]TableArtifact `json:"artifactsByTable"`
}

// APIError is returned when the API answers with a non-2xx status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canvas data api %v %v returned status %v: %v", e.Method, e.Path, e.StatusCode, e.Body)
}
