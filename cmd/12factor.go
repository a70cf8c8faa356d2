package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/cdsync/config"
	c "github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/helper"
)

// init sets twelveFactorMode from the environment before Execute runs.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(c.EnvVar12FactorMode)
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		lambdaMode = strings.ToLower(mode) == c.TwelveFactorModeLambda
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
		lambdaMode = false
	}
}

const (
	envVarCommand  = c.EnvVarPrefix + "_" + "COMMAND"
	defaultCommand = "sync"
)

var (
	twelveFactorMode bool // true if os env var CDS_12FACTOR_MODE is set
	lambdaMode       bool // true if CDS_12FACTOR_MODE is "lambda"
)

type twelveFactorAction func(cfg *config.Config) error

// twelveFactorActions are the commands that can run without command line flags.
var twelveFactorActions = map[string]twelveFactorAction{
	"sync": func(cfg *config.Config) error {
		return runSync(cfg, nil)
	},
	"schema": func(cfg *config.Config) error {
		if err := helper.ValidateStructIsPopulated(cfg.Canvas); err != nil {
			return fatal(err)
		}
		return runPrintSchema(cfg, os.Stdout)
	},
}

// execute12FactorMode runs the command named by CDS_COMMAND with settings taken from the
// environment and the optional config file named by CDS_CONFIG_FILE.
func execute12FactorMode(acts map[string]twelveFactorAction) error {
	command := strings.ToLower(helper.ReadValueFromEnvWithDefault(envVarCommand, defaultCommand))
	a, ok := acts[command]
	if !ok {
		return fatal(fmt.Errorf("invalid command %q in %v", command, envVarCommand))
	}
	cfg, err := config.Load(config.Options{
		File:    os.Getenv(helper.GetEnvVarName("config-file")),
		EnvFile: os.Getenv(helper.GetEnvVarName("env-file")),
	})
	if err != nil {
		return fatal(err)
	}
	return a(cfg)
}
