package main

import (
	"github.com/spf13/cobra"

	"github.com/ravi-parthasarathy/streamflo/pkg/server"
	"github.com/ravi-parthasarathy/streamflo/pkg/stream"
)

func serveCmd(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = opts.cfg.Server.Addr
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return server.New(&stream.Validator{}).Listen(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
