package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/bodyperf/internal/web"
	"github.com/YuminosukeSato/bodyperf/pipeline"
	"github.com/YuminosukeSato/bodyperf/pkg/errors"
	"github.com/YuminosukeSato/bodyperf/pkg/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the exploration pages and prediction form",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.ListenAddr = serveAddr
		}
		if cfg.LogLevel != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		session := newSession()
		// 起動時に学習まで済ませておく
		if _, err := session.Artifacts(ctx); err != nil {
			fatalExit(err)
			return errors.Wrap(err, "prepare model")
		}

		logger := log.GetLoggerWithName("serve")
		logger.Info("Listening", "addr", cfg.ListenAddr, log.DatasetPathKey, session.Path())
		if err := web.Serve(ctx, cfg.ListenAddr, web.NewRouter(session)); err != nil {
			return err
		}
		logger.Info("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func newSession() *pipeline.Session {
	return pipeline.NewSession(cfg.DataPath, cfg.Training)
}
