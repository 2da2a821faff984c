package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/macaron-cli/internal/adapters/api"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pool over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The server always logs; --verbose adds pool activity.
			logger := log.New(cmd.ErrOrStderr(), logPrefix, log.LstdFlags)

			manager, err := app.poolManager(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if listen == "" {
				listen = app.cfg.Server.Listen
			}

			gin.SetMode(gin.ReleaseMode)
			router := api.NewRouter(manager, api.RouterOptions{
				RateLimit: app.cfg.Server.RateLimit,
				RateBurst: app.cfg.Server.RateBurst,
				Logger:    logger,
			})
			server := &http.Server{
				Addr:              listen,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
				// Event streams end with ctx so Shutdown does not wait on them.
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			serveErr := make(chan error, 1)
			go func() {
				logger.Printf("HTTP server listening on %s", listen)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err := <-serveErr:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Println("shutdown signal received, stopping server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown: %w", err)
			}

			logger.Println("server gracefully stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from server.listen)")

	return cmd
}
