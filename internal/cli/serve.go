package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MJE43/galactic-survival/internal/api"
	"github.com/MJE43/galactic-survival/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the game page and the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				rootOpts.Config.Addr = opts.Addr
			}
			return runServe(cmd.Context(), rootOpts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "listen address; overrides GALACTIC_ADDR")

	return cmd
}

func runServe(ctx context.Context, rootOpts *RootOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := rootOpts.Config
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, api.Version)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	a, err := rootOpts.openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	securityLogger := api.NewSecurityLogger()
	started := time.Now()
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.Server().Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		securityLogger.LogSystemStartup(cfg.Addr, map[string]interface{}{
			"store":        cfg.Backend,
			"journal":      a.Journal != nil,
			"server_seed":  cfg.ServerSeed,
			"event_chance": cfg.EventChance,
			"rate_limit":   cfg.RateLimit,
		})
		errCh <- srv.ListenAndServe()
	}()

	reason := "signal"
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			securityLogger.LogSystemShutdown("listen_error", time.Since(started))
			return WrapExitError(ExitCommandError, "server failed", err)
		}
		reason = "closed"
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	securityLogger.LogSystemShutdown(reason, time.Since(started))
	return nil
}
