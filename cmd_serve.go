package main

import (
	"log/slog"

	"govassist/app/service/api"
	"govassist/app/service/session"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	di, appCtx, shutdown, err := setup()
	if err != nil {
		return err
	}
	defer shutdown()

	sessions, err := do.Invoke[*session.Service](di)
	if err != nil {
		return err
	}
	server, err := do.Invoke[*api.Service](di)
	if err != nil {
		return err
	}

	slog.Info("Service started")

	group, ctx := errgroup.WithContext(appCtx)
	group.Go(func() error {
		sessions.Run(ctx)
		return nil
	})
	group.Go(func() error {
		return server.Run(ctx)
	})

	return group.Wait()
}
