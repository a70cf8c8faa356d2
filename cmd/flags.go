package cmd

import (
	"fmt"
	"os"

	"github.com/relloyd/cdsync/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
	isBool    bool   // the flag may be given without a value to mean true
	setting   bool   // the flag overrides a config setting of the same name
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"bucket": {name: "bucket", shortHand: "b", setting: true,
		desc: "Bucket name in which to stage CSV files (or set BUCKET_NAME)"},
	"stage-type": {name: "stage-type", setting: true,
		desc: "Object storage used for staging: \"gcs | s3\""},
	"stage-prefix": {name: "stage-prefix", shortHand: "P", setting: true,
		desc: "Key prefix for staged objects"},
	"stage-region": {name: "stage-region", shortHand: "R", setting: true,
		desc: "AWS S3 bucket region"},
	"warehouse-type": {name: "warehouse-type", setting: true,
		desc: "Destination warehouse: \"bigquery | snowflake\""},
	"project": {name: "project", setting: true,
		desc: "Google Cloud project of the BigQuery dataset (or set PROJECT_NAME)"},
	"dataset": {name: "dataset", shortHand: "d", setting: true,
		desc: "BigQuery dataset to load tables into (or set DATASET_NAME)"},
	"credentials-file": {name: "credentials-file", setting: true,
		desc: "Google service account key file (default: application default credentials)"},
	"snowflake-dsn": {name: "snowflake-dsn", setting: true,
		desc: "Snowflake DSN of the form snowflake://<user>:<password>@<account>/<database>/<schema>?warehouse=<name>"},
	"snowflake-stage": {name: "snowflake-stage", setting: true,
		desc: "The external Snowflake stage pointing at the staging bucket and prefix"},
	"type-map": {name: "type-map", setting: true,
		desc: "Canvas to warehouse type overrides of the form \"date:DATE,datetime:TIMESTAMP\""},
	"canvas-base-url": {name: "canvas-base-url", setting: true,
		desc: "Canvas Data API base URL"},
	"schema-version": {name: "schema-version", shortHand: "V", setting: true,
		desc: "Canvas Data schema version to sync, e.g. \"latest\" or \"5.2.0\""},
	"canvas-timeout": {name: "canvas-timeout", setting: true,
		desc: "Timeout for each Canvas Data API request (0 for none)"},
	"sync-workers": {name: "sync-workers", shortHand: "w", setting: true,
		desc: "Number of tables to fetch, convert and stage at the same time"},
	"load-workers": {name: "load-workers", shortHand: "W", setting: true,
		desc: "Number of warehouse load jobs to run at the same time"},
	"table-timeout": {name: "table-timeout", shortHand: "t", setting: true,
		desc: "Time allowed for each table step, e.g. \"30m\" (0 for unlimited)"},
	"work-dir": {name: "work-dir", setting: true,
		desc: "Directory for downloaded and converted files"},
	"log-table": {name: "log-table", setting: true,
		desc: "The table loaded with append semantics"},
	"skip-tables": {name: "skip-tables", shortHand: "x", setting: true,
		desc: "CSV list of tables to leave out of the sync"},
	"table-filter": {name: "table-filter", setting: true,
		desc: "JSON Logic rule over {\"table\", \"columns\"}; tables for which it is not true are skipped"},
	"datadog-enabled": {name: "datadog-enabled", isBool: true, setting: true,
		desc: "Send run and table metrics to Datadog (set DD_API_KEY and DD_SITE)"},
	"datadog-tags": {name: "datadog-tags", setting: true,
		desc: "CSV list of extra Datadog tags, e.g. \"env:prod,team:data\""},
	"datadog-flush-every": {name: "datadog-flush-every", setting: true,
		desc: "Interval between metric submissions"},
	"log-level": {name: "log-level", shortHand: "l", setting: true,
		desc: "Log level: \"error | warn | info | debug\""},
	"stack-dump": {name: "stack-dump", isBool: true, setting: true,
		desc: "Print a stack trace with each error"},
	"legacy-exit-status": {name: "legacy-exit-status", isBool: true, setting: true,
		desc: "Always exit 0 once the run has started; failures are only logged"},
	"output": {name: "output", shortHand: "o",
		desc: "Specify \"yaml\" or \"json\" output"},
	"summary": {name: "summary", shortHand: "s", isBool: true,
		desc: "Print the run summary as JSON on stdout"},
	"port": {name: "port", shortHand: "p",
		desc: "Port to listen on"},
	"schedule": {name: "schedule", shortHand: "c",
		desc: "Optional cron expression, e.g. \"0 3 * * *\", to run syncs on a schedule"},
}

// settingFlags are the flags shared by commands that run a sync.
var settingFlags = []string{
	"bucket", "stage-type", "stage-prefix", "stage-region",
	"warehouse-type", "project", "dataset", "credentials-file", "snowflake-dsn", "snowflake-stage", "type-map",
	"canvas-base-url", "schema-version", "canvas-timeout",
	"sync-workers", "load-workers", "table-timeout", "work-dir", "log-table", "skip-tables", "table-filter",
	"datadog-enabled", "datadog-tags", "datadog-flush-every",
	"log-level", "stack-dump", "legacy-exit-status",
}

// addFlags adds the named string flags to c. Settings are decoded by package config so
// every value is read as a string here. Bool flags may be given without a value.
func (f cliFlags) addFlags(c *cobra.Command, names ...string) {
	for _, name := range names {
		sw, ok := f[name]
		if !ok {
			panic(fmt.Sprintf("unregistered CLI flag, %q", name))
		}
		c.Flags().StringP(sw.name, sw.shortHand, "", sw.desc)
		if sw.isBool {
			c.Flags().Lookup(sw.name).NoOptDefVal = "true"
		}
	}
}

// changedSettings returns the setting flags the user supplied, keyed by flag name.
func (f cliFlags) changedSettings(fs *pflag.FlagSet) map[string]string {
	retval := make(map[string]string)
	fs.Visit(func(fl *pflag.Flag) {
		if sw, ok := f[fl.Name]; ok && sw.setting {
			retval[fl.Name] = fl.Value.String()
		}
	})
	return retval
}

// loadConfig reads the configuration and applies the flags the user set on fs.
func loadConfig(fs *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: cfgFile, EnvFile: envFile})
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(switches.changedSettings(fs)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mustGetFlag(fs *pflag.FlagSet, name string) string {
	v, err := fs.GetString(name)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	return v
}
