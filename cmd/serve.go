package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PoovendhanNandhu/POC-Cartedo/internal/monitoring"
	"github.com/PoovendhanNandhu/POC-Cartedo/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long:  "Serves the transformation pipeline over REST and SSE, with run history and a failure-rate monitor alongside.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		env, err := initTransformEnv(st)
		if err != nil {
			return err
		}

		serverCfg := cfg.Server
		if servePort != 0 {
			serverCfg.Port = servePort
		}

		srv := server.New(server.Options{
			Config:  serverCfg,
			Policy:  env.policy,
			Runner:  env.ctrl,
			Store:   st,
			Backend: env.gen,
			Version: version,
		})

		checker := monitoring.NewChecker(
			monitoring.NewCollector(st),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)

		zap.L().Info("starting server",
			zap.Int("port", serverCfg.Port),
			zap.String("version", version),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return srv.Run(gctx)
		})
		g.Go(func() error {
			checker.Run(gctx)
			return nil
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (0 uses the configured port)")
	rootCmd.AddCommand(serveCmd)
}
