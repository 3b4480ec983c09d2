package main

import (
	"context"
	"os"

	"govassist/app/service/mcptools"
	"govassist/app/service/session"

	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the assistant as MCP tools over stdio",
	Long: `Serve the Model Context Protocol over stdin and stdout.

Tools:
  ask              - Send a message, optionally continuing a session
  service_chain    - Steps needed to obtain a service
  related_services - Services related to a service
  session_summary  - What is known about a session`,
	RunE: runMCP,
}

func runMCP(_ *cobra.Command, _ []string) error {
	di, appCtx, shutdown, err := setup()
	if err != nil {
		return err
	}
	defer shutdown()

	sessions, err := do.Invoke[*session.Service](di)
	if err != nil {
		return err
	}
	tools, err := do.Invoke[*mcptools.Service](di)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(appCtx)
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		sessions.Run(ctx)
		return nil
	})
	group.Go(func() error {
		// the client closing stdin ends the session janitor too
		defer cancel()
		return tools.Serve(ctx, os.Stdin, os.Stdout)
	})

	return group.Wait()
}
