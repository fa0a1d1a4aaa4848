package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vyomlabs/vyom/api"
	"github.com/vyomlabs/vyom/internal/app"
	"github.com/vyomlabs/vyom/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and starts the HTTP API server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if closeErr := a.Close(closeCtx); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	a.Logger.Info("starting vyom", "version", AppVersion, "addr", cfg.Addr)

	server := api.NewServer(cfg, api.Deps{
		Logger:   a.Logger,
		Creds:    a.Creds,
		Sessions: a.Sessions,
		Selector: a.Selector,
		Registry: a.Registry,
	})

	return server.Run(ctx, cfg.Addr)
}
