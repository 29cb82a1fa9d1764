package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ev-parking/internal/config"
	"ev-parking/internal/logging"
	"ev-parking/internal/parking"
	"ev-parking/internal/server"
)

var port string

func main() {
	rootCmd := &cobra.Command{
		Use:   "ev-parking",
		Short: "Multi-city parking service with EV charger management",
		Long: `Runs the parking orchestrator behind an HTTP API, an interactive shell,
or both. Configuration is read from the environment.`,
	}

	rootCmd.PersistentFlags().StringVar(&port, "port", "", "HTTP port (overrides APP_PORT)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(shellCmd())
	rootCmd.AddCommand(bothCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg       *config.Config
	telemetry *parking.TelemetryProvider
	service   *parking.InstrumentedService
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if port != "" {
		cfg.Port = port
	}

	telemetry, err := parking.NewTelemetryProvider(cfg.TelemetryConfig())
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	logging.Init(cfg.ServiceName, cfg.Environment)

	service, err := parking.NewInstrumentedService(
		parking.NewService(parking.NewDirectory(nil), cfg.ServiceOptions()),
		telemetry,
	)
	if err != nil {
		return nil, fmt.Errorf("initialize service: %w", err)
	}

	a := &app{cfg: cfg, telemetry: telemetry, service: service}
	if err := a.bootstrapFacilities(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) bootstrapFacilities(ctx context.Context) error {
	if a.cfg.FacilitiesFile == "" {
		return nil
	}
	specs, err := config.LoadFacilities(ctx, a.cfg.FacilitiesFile, a.cfg.Cities)
	if err != nil {
		return err
	}
	for _, spec := range specs {
		if _, err := a.service.CreateFacility(ctx, spec); err != nil {
			return fmt.Errorf("bootstrap facility %s/%s: %w", spec.City, spec.Site, err)
		}
	}
	logging.Info(ctx, "facilities bootstrapped", "count", len(specs), "file", a.cfg.FacilitiesFile)
	return nil
}

func (a *app) newServer() (*server.Server, error) {
	return server.NewServer(a.service, server.Options{
		Port:        a.cfg.Port,
		ServiceName: a.cfg.ServiceName,
		Cities:      a.cfg.Cities,
	})
}

func (a *app) newShell() *parking.InstrumentedShell {
	return parking.NewInstrumentedShell(a.service, a.telemetry, a.cfg.Cities, os.Stdin, os.Stdout)
}

func (a *app) shutdownTelemetry() {
	logging.Info(context.Background(), "shutting down telemetry")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error shutting down telemetry: %v\n", err)
	}
}

func shutdownServer(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "server shutdown error", "error", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run the interactive command shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdownTelemetry()

			a.newShell().Run(ctx)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdownTelemetry()

			srv, err := a.newServer()
			if err != nil {
				return err
			}

			go func() {
				<-ctx.Done()
				logging.Info(context.Background(), "received shutdown signal")
				shutdownServer(srv)
			}()

			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

func bothCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "both",
		Short: "Run the HTTP API server and the shell together",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.shutdownTelemetry()

			srv, err := a.newServer()
			if err != nil {
				return err
			}

			serverDone := make(chan error, 1)
			go func() {
				serverDone <- srv.Start()
			}()

			shellDone := make(chan struct{})
			go func() {
				a.newShell().Run(ctx)
				close(shellDone)
			}()

			select {
			case err := <-serverDone:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-shellDone:
				logging.Info(ctx, "shell exited")
			case <-ctx.Done():
				logging.Info(context.Background(), "received shutdown signal")
			}

			shutdownServer(srv)
			return nil
		},
	}
}
