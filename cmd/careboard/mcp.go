package main

import (
	"github.com/spf13/cobra"

	"github.com/careboard-ai/careboard/mcpserver"
)

func newMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP protocol over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}
			return mcpserver.ServeStdio(mcpserver.New(application.controller, version, application.logger))
		},
	}
}
