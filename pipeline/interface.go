//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package pipeline

import (
	"context"

	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// Fetcher reads schemas and raw table dumps from the data dump API.
type Fetcher interface {
	GetSchema(ctx context.Context, version string) (tabledefinition.SchemaDescriptor, error)
	// GetDataForTable writes a tab separated dump, starting with a header line, into dir
	// and returns the path of that file.
	GetDataForTable(ctx context.Context, tableName string, dir string) (string, error)
}

// RunScoped is implemented by fetchers that cache API responses.
// Runner.Run calls Reset before fetching the schema so every run sees the current dump.
type RunScoped interface {
	Reset()
}

// Stager uploads staged files to object storage.
type Stager interface {
	// Upload overwrites the object key with the contents of localFile.
	Upload(ctx context.Context, localFile string, key string) error
	// URI returns the fully qualified location of key, e.g. gs://bucket/key.
	URI(key string) string
}

// Warehouse loads staged objects into destination tables.
type Warehouse interface {
	// Load blocks until the load job for req reaches a terminal state.
	Load(ctx context.Context, req LoadRequest) (LoadResult, error)
}
