package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/theapemachine/mnemo/pkg/service"
)

var (
	sseFlag  bool
	addrFlag string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the memory plugin services",
		Long:  longServe,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	serveMCPCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the memory tools over MCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetReportCaller(true)
			log.SetLevel(log.InfoLevel)

			store, err := openStore()
			if err != nil {
				return err
			}

			broker, err := service.NewMCPBroker(store)
			if err != nil {
				return err
			}

			if sseFlag {
				log.Info("serving memory tools over sse", "addr", addrFlag, "root", store.Root())
				return broker.Start(addrFlag)
			}

			return broker.ServeStdio()
		},
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.AddCommand(serveMCPCmd)

	serveMCPCmd.Flags().BoolVar(&sseFlag, "sse", false, "serve over SSE instead of stdio")
	serveMCPCmd.Flags().StringVar(&addrFlag, "addr", "0.0.0.0:3210", "address for the SSE listener")
}

var longServe = `
Serve the memory tool suite to a host runtime.

Examples:
  # Serve over stdio (typical plugin wiring)
  mnemo serve mcp

  # Serve over SSE for remote clients
  mnemo serve mcp --sse --addr 0.0.0.0:3210
`
