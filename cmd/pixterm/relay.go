package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/pixterm/internal/appconfig"
	"pkt.systems/pixterm/internal/relay"
	"pkt.systems/pslog"
)

func newRelayCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve a WebSocket to TCP relay for SSH",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Relay.Addr = addr
			}
			srv := &relay.Server{
				Addr:        cfg.Relay.Addr,
				DialTimeout: cfg.SSH.DialTimeout(),
				Logger:      pslog.Ctx(cmd.Context()),
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
