package helper

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
)

// ReadValueFromEnv will read the env var called name and populate the supplied val.
// If the env var is not set then return an error and leave val untouched.
func ReadValueFromEnv(name string, val *string) error {
	v := os.Getenv(name)
	if v != "" { // if the environment variable was set...
		*val = v // update the callers value
		return nil
	}
	return errors.Errorf("value for environment variable %v not found", name)
}

// ReadValueFromEnvWithDefault will read the value of name from the environment into v.
// If it's not set then it will apply the supplied defaultValue and return v.
func ReadValueFromEnvWithDefault(name string, defaultValue string) (v string) {
	_ = ReadValueFromEnv(name, &v)
	if v == "" && defaultValue != "" { // if the environment variable is not set and we have been given a default value...
		v = defaultValue
	}
	return
}

// ReadFirstValueFromEnv sets val from the first of names that is set in the environment.
// It returns the name that was used or an empty string if none were set.
func ReadFirstValueFromEnv(val *string, names ...string) string {
	for _, n := range names {
		if err := ReadValueFromEnv(n, val); err == nil {
			return n
		}
	}
	return ""
}

// GetEnvVarName converts name into an environment variable name using EnvVarPrefix,
// the name converted to upper case and dashes converted to underscores.
func GetEnvVarName(name string) string {
	n := strings.ReplaceAll(strings.TrimSpace(strings.ToUpper(name)), "-", "_")
	return fmt.Sprintf("%v_%v", constants.EnvVarPrefix, n)
}
