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
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves documents over a JSON API. Each document is created on first access and
streams its commit diffs over Server-Sent Events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStack(cmd)
		if err != nil {
			return err
		}
		addr := s.cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		var opts []httpAdapter.Option
		opts = append(opts, httpAdapter.WithLogger(s.logger))
		if s.registry != nil {
			opts = append(opts, httpAdapter.WithMetrics(s.registry))
		}
		srv := &http.Server{
			Addr:    addr,
			Handler: httpAdapter.NewHandler(s.sessions(), opts...),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			s.logger.Info("Starting Arbor server", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown did not complete: %w", err)
			}
			s.logger.Info("Arbor server stopped gracefully")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides server.addr)")
}
