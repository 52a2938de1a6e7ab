package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/stock-research-agent/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves stock and market analyses over HTTP.

Endpoints:
  GET  /health
  POST /analyze/stock          {"code": "600519", "name": "贵州茅台", "risk": "low"}
  POST /analyze/stock/stream   same body, progress as server-sent events
  POST /analyze/market         {"queries": [...], "risk": "medium"}
  POST /analyze/market/stream
  GET  /runs, /runs/{id}, /runs/{id}/artifacts   (from <data_dir>/runs)

Rate limits are read from RATE_LIMIT_* environment variables.`,
	RunE: runServe,
}

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildAgent(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	agent := rt.agent

	srvCfg := server.Config{
		Port:   servePort,
		Agent:  agent,
		Logger: logger.Named("server"),
	}
	if runs, ok := agent.History.(server.RunStore); ok {
		srvCfg.Runs = runs
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		return err
	}
	logger.Info("serving analyses", zap.Int("port", servePort), zap.String("output_dir", cfg.OutputDir))
	return srv.Start(ctx)
}
