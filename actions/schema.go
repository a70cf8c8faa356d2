package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	tabledefinition "github.com/relloyd/cdsync/table-definition"
)

// SchemaFetcher is the part of the dump API client used to print schemas.
type SchemaFetcher interface {
	GetSchema(ctx context.Context, version string) (tabledefinition.SchemaDescriptor, error)
}

const (
	SchemaFormatJSON = "json"
	SchemaFormatYAML = "yaml"
)

// PrintSchema fetches the schema of version and writes it to w in format json or yaml.
func PrintSchema(ctx context.Context, f SchemaFetcher, version string, format string, w io.Writer) error {
	format = strings.ToLower(strings.TrimSpace(format))
	if format != SchemaFormatJSON && format != SchemaFormatYAML {
		return fmt.Errorf("unsupported output format %q, use %v or %v", format, SchemaFormatJSON, SchemaFormatYAML)
	}
	schema, err := f.GetSchema(ctx, version)
	if err != nil {
		return errors.Wrap(err, "error fetching schema")
	}
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error marshalling schema")
	}
	if format == SchemaFormatYAML {
		if b, err = yaml.JSONToYAML(b); err != nil {
			return errors.Wrap(err, "error converting schema to YAML")
		}
	} else {
		b = append(b, '\n')
	}
	_, err = w.Write(b)
	return err
}
