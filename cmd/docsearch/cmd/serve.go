package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docsearch-core/docsearch/cmd/docsearch/httpapi"
)

func newServeCmd() *cobra.Command {
	var bindAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compound search and suggestion HTTP contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(flagDataDir, flagDebug)
			if err != nil {
				return err
			}
			defer a.close()

			addr := bindAddr
			if addr == "" {
				addr = a.cfg.Server.BindAddr
			}

			srv := httpapi.New(addr, a.executor, a.suggest, a.pipeline, a.store, a.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				a.logger.Info("shutting down http server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&bindAddr, "bind-addr", "", "address to bind (default: config server.bind_addr)")

	return cmd
}
