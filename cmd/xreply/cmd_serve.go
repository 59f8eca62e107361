package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xreply/internal/api"
	"xreply/internal/config"
	"xreply/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts the HTTP API on server.addr (or --addr, or $PORT).

Selection keywords, the selection limit and reply templates are reloaded when
the config file changes; everything else needs a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reload settings when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	return withApp(func(a *app) error {
		srv := &http.Server{
			Addr:              addr,
			Handler:           api.NewServer(a.svc, logging.Get(logging.CategoryAPI), api.Options{Metrics: cfg.Metrics.Enabled}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if serveWatch {
			g.Go(func() error {
				err := config.Watch(gctx, configPath, logging.Get(logging.CategoryBoot), func(c *config.Config) {
					if err := c.Validate(); err != nil {
						logging.BootWarn("ignoring invalid config change", zap.Error(err))
						return
					}
					a.svc.Reload(c)
				})
				if err != nil {
					// A missing config file is not fatal for serving.
					logging.BootWarn("config watch stopped", zap.Error(err))
				}
				return nil
			})
		}
		return g.Wait()
	})
}
