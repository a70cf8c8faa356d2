package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/relloyd/cdsync/actions"
	"github.com/relloyd/cdsync/config"
	"github.com/relloyd/cdsync/constants"
	"github.com/relloyd/cdsync/helper"
	"github.com/relloyd/cdsync/logger"
	"github.com/relloyd/cdsync/pipeline"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync the latest Canvas Data dump into the warehouse",
	Long: `Fetch the schema, then download, clean, convert and stage every table before loading
them into the warehouse. Exit status is 0 when every table succeeded, 1 when one or more
tables failed and 2 when the run could not start.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return fatal(err)
		}
		var out io.Writer
		if helper.GetTrueFalseStringAsBool(mustGetFlag(cmd.Flags(), "summary")) {
			out = cmd.OutOrStdout()
		}
		return runSync(cfg, out)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().SortFlags = false
	switches.addFlags(syncCmd, settingFlags...)
	switches.addFlags(syncCmd, "summary")
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	return logger.NewLoggerE(constants.ServiceName, cfg.LogLevel, cfg.StackDump)
}

// runSync performs one run and optionally writes its summary to out.
func runSync(cfg *config.Config, out io.Writer) error {
	log, err := newLogger(cfg)
	if err != nil {
		return fatal(err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	s, err := actions.NewSyncer(ctx, log, cfg)
	if err != nil {
		log.Error(err)
		return &exitError{code: constants.ExitCodeFatal}
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn("error closing clients: ", err)
		}
	}()
	sum := s.Run(ctx)
	if out != nil {
		if err := writeSummary(out, sum); err != nil {
			log.Warn(err)
		}
	}
	return exitStatus(sum, cfg.LegacyExitStatus)
}

func writeSummary(w io.Writer, sum *pipeline.Summary) error {
	b, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// exitStatus maps a finished run to the command's result. Failures were logged by the run.
// In legacy mode every run that started counts as a success.
func exitStatus(sum *pipeline.Summary, legacy bool) error {
	code := sum.ExitCode()
	if code == constants.ExitCodeOK || legacy {
		return nil
	}
	return &exitError{code: code}
}
