package main

import (
	"govassist/app/util/mylog"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "govassist",
	Short: "City services assistant",
	Long: `govassist answers residents' questions about city departments and services.

Available subcommands:
  serve - Run the HTTP API
  chat  - Talk to the assistant in the terminal
  mcp   - Expose the assistant as MCP tools over stdio`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	mylog.Preinit()

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
