package cmd

import (
	"context"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/relloyd/cdsync/actions"
	"github.com/relloyd/cdsync/constants"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a web service that runs syncs on request or on a schedule",
	Long: `Start a web service that runs syncs on request or on a schedule.
Routes: GET /health, POST /sync, GET /runs/latest, GET /runs/latest/stats and POST /stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Flags())
		if err != nil {
			return fatal(err)
		}
		if p := mustGetFlag(cmd.Flags(), "port"); p != "" {
			if serveConfig.Port, err = strconv.Atoi(p); err != nil {
				return fatal(errors.Wrapf(err, "invalid port %q", p))
			}
		}
		serveConfig.Schedule = mustGetFlag(cmd.Flags(), "schedule")
		log, err := newLogger(cfg)
		if err != nil {
			return fatal(err)
		}
		s, err := actions.NewSyncer(context.Background(), log, cfg)
		if err != nil {
			return fatal(err)
		}
		defer func() {
			if err := s.Close(); err != nil {
				log.Warn("error closing clients: ", err)
			}
		}()
		return actions.RunWebServer(log, s, &serveConfig)
	},
}

var serveConfig = actions.WebServerConfig{
	Addr: net.IP{0, 0, 0, 0},
	Port: constants.DefaultWebServerPort,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().SortFlags = false
	serveCmd.Flags().IPVarP(&serveConfig.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
	switches.addFlags(serveCmd, "port", "schedule")
	switches.addFlags(serveCmd, settingFlags...)
}
