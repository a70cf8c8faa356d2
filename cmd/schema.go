package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/relloyd/cdsync/actions"
	"github.com/relloyd/cdsync/config"
	"github.com/relloyd/cdsync/helper"
	"github.com/spf13/cobra"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the Canvas Data schema",
	Long: `Print the table definitions of a Canvas Data schema version.
Only the Canvas Data API settings are required.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return fatal(err)
		}
		if err := helper.ValidateStructIsPopulated(cfg.Canvas); err != nil {
			return fatal(err)
		}
		schemaOutput = mustGetFlag(cmd.Flags(), "output")
		return runPrintSchema(cfg, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().SortFlags = false
	switches.addFlags(schemaCmd, "output", "schema-version", "canvas-base-url", "canvas-timeout", "log-level")
}

// runPrintSchema writes the schema to w as YAML unless schemaOutput asks for JSON.
func runPrintSchema(cfg *config.Config, w io.Writer) error {
	log, err := newLogger(cfg)
	if err != nil {
		return fatal(err)
	}
	f, err := actions.NewFetcher(log, cfg)
	if err != nil {
		return fatal(err)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	output := schemaOutput
	if output == "" {
		output = actions.SchemaFormatYAML
	}
	if err := actions.PrintSchema(ctx, f, cfg.Canvas.SchemaVersion, output, w); err != nil {
		return fatal(err)
	}
	return nil
}
