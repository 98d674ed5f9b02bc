package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kvbench/internal/api"
	"kvbench/internal/logger"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP/WebSocket API server",
		Long: `serve exposes benchmark control over HTTP and streams run events on /ws.
Target and workload flags become the defaults for started benchmarks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defaults, level, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			logger.Default.SetLevel(level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "kvbench - API Server")
			fmt.Fprintln(out, "====================")
			fmt.Fprintf(out, "Listening on http://%s, default target %s\n", addr, defaults.Target())
			fmt.Fprintln(out, "Press Ctrl+C to stop")

			return api.NewServer(addr, defaults).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Server address (e.g. :8080, 0.0.0.0:3000)")
	return cmd
}
