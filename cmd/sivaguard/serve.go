package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/codeGROOVE-dev/sivaguard/pkg/config"
	"github.com/codeGROOVE-dev/sivaguard/pkg/server"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		addr           string
		requestTimeout time.Duration
		record         bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the verify and evaluate HTTP API",
		Long: `Serve exposes POST /verify, POST /evaluate and GET /health.

The listen address comes from --addr, then SIVAGUARD_ADDR or PORT, then the
config file. A .env file in the working directory is loaded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			a, err := newApp(cmd, appOptions{audit: record})
			if err != nil {
				return err
			}
			defer a.Close()
			if addr != "" {
				a.cfg.ListenAddr = addr
			}

			if v, _ := cmd.Flags().GetBool("verbose"); !v { //nolint:errcheck // flag is registered on root
				gin.SetMode(gin.ReleaseMode)
			}
			srv := server.New(a.guard(),
				server.WithLogger(a.logger),
				server.WithStats(a.client),
				server.WithRequestTimeout(requestTimeout),
			)
			return listen(cmd.Context(), a, srv.SetupRouter())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default "+config.DefaultListenAddr+")")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", time.Minute, "Upper bound for one evaluation")
	cmd.Flags().BoolVar(&record, "audit", false, "Append every result to the audit log")
	return cmd
}

func listen(ctx context.Context, a *app, h http.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hs := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", hs.Addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(sctx)
	}
}
