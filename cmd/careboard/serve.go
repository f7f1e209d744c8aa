package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/careboard-ai/careboard/gateway"
)

func newServeCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			server := gateway.NewServer(application.controller, application.settings.ListenAddr, application.logger)

			group, ctx := errgroup.WithContext(ctx)
			group.Go(server.Start)
			group.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
			if watch {
				group.Go(func() error {
					err := gateway.WatchConfig(ctx, application.settings.AgentsConfigPath,
						application.logger, application.reloadAgents)
					if err == context.Canceled {
						return nil
					}
					return err
				})
			}
			return group.Wait()
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "reload agents config on change")
	return cmd
}
