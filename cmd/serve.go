package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3burn/internal/chain"
	"github.com/Mohsinsiddi/w3burn/internal/metrics"
	"github.com/Mohsinsiddi/w3burn/internal/server"
)

var serveEndpoint string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session over a JSON HTTP API",
	Long: `Serve a single session over HTTP for a web front-end. Prompts are
answered by request bodies: POST /api/connect {"switch":true} and
POST /api/burn {"confirm":true}. Prometheus metrics are on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		a := newApp(ctx, sessionOptions{observer: metrics.NewWorkflowMetrics("w3burn", reg)})
		defer a.Disconnect()

		endpoint := cfg.Server.Endpoint
		if serveEndpoint != "" {
			endpoint = serveEndpoint
		}
		srv := server.New(a, server.Options{
			Networks:       chain.NewRegistry(),
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Registry:       reg,
			Logger:         logger,
		})
		return srv.ListenAndServe(ctx, endpoint)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveEndpoint, "listen", "", "listen address (default: server.endpoint from config)")
}
