package cmd

import (
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/constants"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version   = "0.1.0"
	buildDate = "2020-01-02T03:04+0500"
	cfgFile   string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use: "cdsync",
	Long: `cdsync copies a Canvas Data dump into a cloud data warehouse.
Each table is downloaded, cleaned and converted to CSV, staged in object storage
and then loaded into BigQuery or Snowflake. The requests table is appended to;
every other table is replaced on each run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config `<file>` (default ~/.cdsync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "A .env `<file>` of environment variables (default ./.env)")
	_ = rootCmd.MarkPersistentFlagFilename("config", "yaml", "yml")
}

// exitError carries the process exit code of a command.
// A nil err means the failure has already been logged.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %v", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func fatal(err error) error {
	return &exitError{code: constants.ExitCodeFatal, err: err}
}

// Execute runs the command line, or the sync straight from the environment in 12 factor mode.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode {
		if lambdaMode {
			lambda.Start(func() error { return execute12FactorMode(twelveFactorActions) })
			return
		}
		os.Exit(exitCode(execute12FactorMode(twelveFactorActions)))
	}
	os.Exit(exitCode(rootCmd.Execute()))
}

// exitCode prints err unless it was logged already and returns the code to exit with.
func exitCode(err error) int {
	if err == nil {
		return constants.ExitCodeOK
	}
	var e *exitError
	if errors.As(err, &e) {
		if e.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", e.err)
		}
		return e.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return constants.ExitCodeFatal
}
