// Package config assembles the settings of a sync run from defaults, the YAML config file,
// a .env file and the environment. Command line flags are applied last by package cmd.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/gcp"
	"github.com/relloyd/cdsync/helper"
)

// Canvas holds the dump API settings.
type Canvas struct {
	BaseURL       string        `mapstructure:"baseUrl"`
	APIKey        string        `mapstructure:"apiKey" errorTxt:"API key (API_KEY)" mandatory:"yes"`
	APISecret     string        `mapstructure:"apiSecret" errorTxt:"API secret (API_SECRET)" mandatory:"yes"`
	SchemaVersion string        `mapstructure:"schemaVersion"`
	Timeout       time.Duration `mapstructure:"timeout"` // per HTTP request; 0 means none.
}

// Stage holds the object storage settings.
type Stage struct {
	Type   string `mapstructure:"type"`
	Bucket string `mapstructure:"bucket" errorTxt:"bucket name (BUCKET_NAME)" mandatory:"yes"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"` // S3 only.
}

// Warehouse holds the destination settings.
type Warehouse struct {
	Type           string            `mapstructure:"type"`
	Project        string            `mapstructure:"project"`
	Dataset        string            `mapstructure:"dataset"`
	Credentials    gcp.Credentials   `mapstructure:",squash"`
	SnowflakeDSN   string            `mapstructure:"snowflakeDsn"`
	SnowflakeStage string            `mapstructure:"snowflakeStage"`
	TypeMap        map[string]string `mapstructure:"typeMap"` // Canvas type -> warehouse type overrides.
}

// Sync holds the run orchestration settings.
type Sync struct {
	Workers      int           `mapstructure:"workers"`
	LoadWorkers  int           `mapstructure:"loadWorkers"`
	TableTimeout time.Duration `mapstructure:"tableTimeout"`
	WorkDir      string        `mapstructure:"workDir"`
	LogTable     string        `mapstructure:"logTable"`
	SkipTables   []string      `mapstructure:"skipTables"`
	TableFilter  string        `mapstructure:"tableFilter"` // JSON Logic rule over {"table", "columns"}.
}

// Datadog holds the metrics settings. Credentials come from DD_API_KEY and DD_SITE.
type Datadog struct {
	Enabled    bool          `mapstructure:"enabled"`
	Tags       []string      `mapstructure:"tags"`
	FlushEvery time.Duration `mapstructure:"flushEvery"`
}

// Config is the complete configuration of cdsync.
type Config struct {
	Canvas           Canvas    `mapstructure:"canvas"`
	Stage            Stage     `mapstructure:"stage"`
	Warehouse        Warehouse `mapstructure:"warehouse"`
	Sync             Sync      `mapstructure:"sync"`
	Datadog          Datadog   `mapstructure:"datadog"`
	LogLevel         string    `mapstructure:"logLevel"`
	StackDump        bool      `mapstructure:"stackDump"`
	LegacyExitStatus bool      `mapstructure:"legacyExitStatus"` // always exit 0, as older deployments expect.
}

// Default returns a Config with every optional setting at its default.
func Default() Config {
	return Config{
		Canvas: Canvas{
			BaseURL:       constants.CanvasDataBaseURLDefault,
			SchemaVersion: constants.SchemaVersionLatest,
			Timeout:       10 * time.Minute,
		},
		Stage:     Stage{Type: constants.StageTypeGCS},
		Warehouse: Warehouse{Type: constants.WarehouseTypeBigQuery},
		Sync: Sync{
			Workers:     constants.DefaultWorkers,
			LoadWorkers: constants.DefaultWorkers,
			LogTable:    constants.LogTableNameDefault,
		},
		Datadog:  Datadog{FlushEvery: time.Minute},
		LogLevel: "info",
	}
}

// Validate checks mandatory settings and the combination of stage and warehouse.
func (c *Config) Validate() error {
	errs := make([]string, 0)
	helper.GetStructErrorTxt4UnsetFields(c.Canvas, &errs)
	helper.GetStructErrorTxt4UnsetFields(c.Stage, &errs)
	c.Stage.Type = strings.ToLower(strings.TrimSpace(c.Stage.Type))
	c.Warehouse.Type = strings.ToLower(strings.TrimSpace(c.Warehouse.Type))
	switch c.Warehouse.Type {
	case constants.WarehouseTypeBigQuery:
		if c.Warehouse.Project == "" {
			errs = append(errs, "BigQuery project (PROJECT_NAME)")
		}
		if c.Warehouse.Dataset == "" {
			errs = append(errs, "BigQuery dataset (DATASET_NAME)")
		}
	case constants.WarehouseTypeSnowflake:
		if c.Warehouse.SnowflakeDSN == "" {
			errs = append(errs, "Snowflake DSN")
		}
		if c.Warehouse.SnowflakeStage == "" {
			errs = append(errs, "Snowflake stage name")
		}
	default:
		return errors.Errorf("unsupported warehouse type %q: use %v or %v", c.Warehouse.Type, constants.WarehouseTypeBigQuery, constants.WarehouseTypeSnowflake)
	}
	switch c.Stage.Type {
	case constants.StageTypeGCS:
	case constants.StageTypeS3:
		if c.Stage.Region == "" {
			errs = append(errs, "S3 bucket region")
		}
		if c.Warehouse.Type == constants.WarehouseTypeBigQuery {
			return errors.New("BigQuery loads from GCS only: use stage type gcs")
		}
	default:
		return errors.Errorf("unsupported stage type %q: use %v or %v", c.Stage.Type, constants.StageTypeGCS, constants.StageTypeS3)
	}
	if len(errs) > 0 {
		return errors.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	if c.Sync.Workers < 1 || c.Sync.LoadWorkers < 1 {
		return errors.New("workers must be at least 1")
	}
	if c.Sync.TableTimeout < 0 || c.Canvas.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// String masks secrets.
func (c Config) String() string {
	masked := c
	if masked.Canvas.APISecret != "" {
		masked.Canvas.APISecret = "xxxxxxx"
	}
	if masked.Warehouse.SnowflakeDSN != "" {
		masked.Warehouse.SnowflakeDSN = "snowflake://xxxxxxx"
	}
	if masked.Warehouse.Credentials.JSON != "" {
		masked.Warehouse.Credentials.JSON = "xxxxxxx"
	}
	return fmt.Sprintf("%+v", struct {
		Canvas    Canvas
		Stage     Stage
		Warehouse Warehouse
		Sync      Sync
		Datadog   Datadog
		LogLevel  string
	}{masked.Canvas, masked.Stage, masked.Warehouse, masked.Sync, masked.Datadog, masked.LogLevel})
}
