package cmd

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/theapemachine/mnemo/pkg/logging"
	"github.com/theapemachine/mnemo/pkg/ui"
)

var (
	uiCmd = &cobra.Command{
		Use:   "ui",
		Short: "Show the live memory status card",
		Long:  longUI,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			// The TUI owns the terminal; diagnostics go to a file.
			path := os.Getenv("TEA_LOGFILE")
			if path != "" {
				if err := logging.Init(path); err != nil {
					log.Error("could not open logfile:", "error", err)
					os.Exit(1)
				}
				defer logging.Close()
			}

			watcher, err := ui.NewWatcher(store.Root())
			if err != nil {
				log.Warn("ledger watching unavailable", "error", err)
				watcher = nil
			} else {
				defer watcher.Close()
			}

			if _, err := tea.NewProgram(ui.New(store, watcher), tea.WithAltScreen()).Run(); err != nil {
				log.Error("Error while running program:", "error", err)
				os.Exit(1)
			}

			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(uiCmd)
}

var longUI = `
Show a terminal status card for the memory ledger: stream totals, recent
task outcomes, active rules, and on-disk sizes. The card refreshes itself
when the ledger files change; press r to refresh by hand.

Examples:
  # Watch the default ledger.
  mnemo ui

  # Watch a specific ledger directory, with TUI diagnostics in a file.
  TEA_LOGFILE=/tmp/mnemo-ui.log mnemo ui --root ./memory
`
