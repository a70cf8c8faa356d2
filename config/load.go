package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/helper"
	"gopkg.in/yaml.v2"
)

// FileNotFoundError denotes failing to find a configuration file the user asked for.
type FileNotFoundError struct {
	name string
}

func (f FileNotFoundError) Error() string {
	return "config file " + f.name + " not found"
}

// Options say where Load looks for settings. Empty fields select the defaults.
type Options struct {
	File    string // YAML config file; defaults to ~/.cdsync/config.yaml, which may be absent.
	EnvFile string // .env file; defaults to .env in the working directory, which may be absent.
}

// requiredEnv binds the deployment's plain environment variable names. The first name set wins.
var requiredEnv = []struct {
	key   string
	names []string
}{
	{"stage.bucket", []string{constants.EnvVarBucketName}},
	{"warehouse.project", []string{constants.EnvVarProjectName}},
	{"warehouse.dataset", []string{constants.EnvVarDatasetName, constants.EnvVarDatasetNameLegacy}},
	{"canvas.apiKey", []string{constants.EnvVarAPIKey}},
	{"canvas.apiSecret", []string{constants.EnvVarAPISecret}},
}

// optionalEnv binds config keys to CDS_ prefixed variables.
var optionalEnv = map[string]string{
	"canvas.baseUrl":            "canvas-base-url",
	"canvas.schemaVersion":      "schema-version",
	"canvas.timeout":            "canvas-timeout",
	"stage.type":                "stage-type",
	"stage.prefix":              "stage-prefix",
	"stage.region":              "stage-region",
	"warehouse.type":            "warehouse-type",
	"warehouse.credentialsFile": "credentials-file",
	"warehouse.snowflakeDsn":    "snowflake-dsn",
	"warehouse.snowflakeStage":  "snowflake-stage",
	"warehouse.typeMap":         "type-map",
	"sync.workers":              "sync-workers",
	"sync.loadWorkers":          "load-workers",
	"sync.tableTimeout":         "table-timeout",
	"sync.workDir":              "work-dir",
	"sync.logTable":             "log-table",
	"sync.skipTables":           "skip-tables",
	"sync.tableFilter":          "table-filter",
	"datadog.enabled":           "datadog-enabled",
	"datadog.tags":              "datadog-tags",
	"datadog.flushEvery":        "datadog-flush-every",
	"logLevel":                  "log-level",
	"stackDump":                 "stack-dump",
	"legacyExitStatus":          "legacy-exit-status",
}

// flagOnly binds settings that have command line flags but no CDS_ variable.
var flagOnly = map[string]string{
	"stage.bucket":      "bucket",
	"warehouse.project": "project",
	"warehouse.dataset": "dataset",
}

// FlagNames returns the names accepted by ApplyFlags.
func FlagNames() []string {
	retval := make([]string, 0, len(optionalEnv)+len(flagOnly))
	for _, m := range []map[string]string{optionalEnv, flagOnly} {
		for _, name := range m {
			retval = append(retval, name)
		}
	}
	sort.Strings(retval)
	return retval
}

// ApplyFlags overlays values keyed by flag name, e.g. "sync-workers", onto c.
func (c *Config) ApplyFlags(values map[string]string) error {
	keys := make(map[string]string, len(optionalEnv)+len(flagOnly))
	for _, m := range []map[string]string{optionalEnv, flagOnly} {
		for key, name := range m {
			keys[name] = key
		}
	}
	data := make(map[string]interface{})
	for name, v := range values {
		key, ok := keys[name]
		if !ok {
			return errors.Errorf("unknown setting %q", name)
		}
		setPath(data, key, v)
	}
	return errors.Wrap(c.decode(data), "error in command line flags")
}

// Load returns Default() overlaid with the YAML file, then the .env file, then the environment.
// The result is not validated.
func Load(opts Options) (*Config, error) {
	c := Default()
	fileName, explicit, err := configFileName(opts.File)
	if err != nil {
		return nil, err
	}
	if err := c.mergeFile(fileName, explicit); err != nil {
		return nil, err
	}
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}
	if err := c.mergeEnv(); err != nil {
		return nil, err
	}
	return &c, nil
}

// HomeDir returns the directory holding the default config file.
func HomeDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", errors.Wrap(err, "error finding home directory")
	}
	return filepath.Join(home, constants.ConfigDirName), nil
}

func configFileName(name string) (fileName string, explicit bool, err error) {
	if name != "" {
		fileName, err = homedir.Expand(name)
		return fileName, true, errors.Wrapf(err, "error expanding path %v", name)
	}
	dir, err := HomeDir()
	if err != nil {
		return "", false, err
	}
	return filepath.Join(dir, constants.ConfigFileName), false, nil
}

func (c *Config) mergeFile(fileName string, explicit bool) error {
	b, err := ioutil.ReadFile(fileName)
	if os.IsNotExist(err) {
		if explicit {
			return FileNotFoundError{name: fileName}
		}
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "error reading config file %v", fileName)
	}
	data := make(map[string]interface{})
	if err := yaml.Unmarshal(b, &data); err != nil {
		return errors.Wrapf(err, "error parsing config file %v", fileName)
	}
	return errors.Wrapf(c.decode(data), "error in config file %v", fileName)
}

func loadEnvFile(name string) error {
	if name == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		name = ".env"
	}
	// Variables already set in the environment are not overwritten.
	return errors.Wrapf(godotenv.Load(name), "error loading env file %v", name)
}

func (c *Config) mergeEnv() error {
	data := make(map[string]interface{})
	for _, b := range requiredEnv {
		var v string
		if helper.ReadFirstValueFromEnv(&v, b.names...) != "" {
			setPath(data, b.key, v)
		}
	}
	for key, name := range optionalEnv {
		if v := os.Getenv(helper.GetEnvVarName(name)); v != "" {
			setPath(data, key, v)
		}
	}
	return errors.Wrap(c.decode(data), "error in environment")
}

// setPath sets a dotted key in nested maps.
func setPath(m map[string]interface{}, key string, v interface{}) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			m[p] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = v
}

// decode overlays data onto c. Strings are converted to numbers, booleans, durations and
// comma separated lists as required by the target field. Lists and maps present in data
// replace the existing value rather than merging with it. Nil values leave c untouched.
func (c *Config) decode(data map[string]interface{}) error {
	dropNils(data)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToTrimmedSliceHookFunc(),
			stringToTypeMapHookFunc(),
		),
		WeaklyTypedInput: true,
		ZeroFields:       true,
		Result:           c,
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}

// dropNils removes nil values, such as an empty YAML section, from nested maps.
func dropNils(v interface{}) {
	switch m := v.(type) {
	case map[string]interface{}:
		for k, mv := range m {
			if mv == nil {
				delete(m, k)
			} else {
				dropNils(mv)
			}
		}
	case map[interface{}]interface{}:
		for k, mv := range m {
			if mv == nil {
				delete(m, k)
			} else {
				dropNils(mv)
			}
		}
	}
}

func stringToTrimmedSliceHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		return helper.CsvToStringSliceTrimSpaces(data.(string)), nil
	}
}

// stringToTypeMapHookFunc decodes "date:DATE, datetime:TIMESTAMP" into a map.
func stringToTypeMapHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(map[string]string{}) {
			return data, nil
		}
		return helper.OrderedMapToStringMap(helper.TokensToOrderedMap(data.(string))), nil
	}
}
