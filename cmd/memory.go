package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/theapemachine/mnemo/pkg/ledger"
	"github.com/theapemachine/mnemo/pkg/utils"
)

// listTextWidth keeps table rows on one terminal line.
const listTextWidth = 60

var (
	limitFlag int

	memoryCmd = &cobra.Command{
		Use:   "memory",
		Short: "Inspect and maintain the memory ledger",
		Long:  longMemory,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	memoryListCmd = &cobra.Command{
		Use:   "list",
		Short: "List every stored memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			entries, err := store.ListAll()
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("no memories stored yet")
				return nil
			}

			fmt.Println(renderEntries(entries))
			return nil
		},
	}

	memorySearchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "Rank stored memories against a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			entries, err := store.Search(strings.Join(args, " "), limitFlag)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("no matches")
				return nil
			}

			fmt.Println(renderEntries(entries))
			return nil
		},
	}

	memoryEvolveCmd = &cobra.Command{
		Use:   "evolve",
		Short: "Mine recent failures into operating rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			rules, err := store.Evolve()
			if err != nil {
				return err
			}

			if len(rules) == 0 {
				fmt.Println("no new rules mined")
				return nil
			}

			for _, rule := range rules {
				fmt.Printf("+ [%s] %s\n", rule.ID, rule.Rule)
			}
			return nil
		},
	}

	memoryStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Tally all three streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			stats, err := store.Stats()
			if err != nil {
				return err
			}

			statsTable := table.NewWriter()
			statsTable.AppendHeader(table.Row{"Stream", "Records", "Detail", "Bytes"})
			statsTable.AppendRow(table.Row{
				"memories", stats.Memories, categorySummary(stats.ByCategory), stats.MemoriesBytes,
			})
			statsTable.AppendRow(table.Row{
				"tasks", stats.Tasks,
				fmt.Sprintf("%d ok / %d failed", stats.TaskSuccesses, stats.TaskFailures),
				stats.TasksBytes,
			})
			statsTable.AppendRow(table.Row{
				"rules", stats.Rules,
				fmt.Sprintf("%d auto / %d manual", stats.AutoRules, stats.ManualRules),
				stats.RulesBytes,
			})

			fmt.Println(statsTable.Render())
			fmt.Println("root:", stats.Root)
			return nil
		},
	}

	memoryPathCmd = &cobra.Command{
		Use:   "path",
		Short: "Print the ledger file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			memories, tasks, rules := store.Paths()
			fmt.Println(memories)
			fmt.Println(tasks)
			fmt.Println(rules)
			return nil
		},
	}

	memoryRuleCmd = &cobra.Command{
		Use:   "rule <text>",
		Short: "Add a manual operating rule",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}

			rule, err := store.AddRule(strings.Join(args, " "), ledger.RuleSourceManual)
			if err != nil {
				return err
			}

			fmt.Printf("added rule [%s]\n", rule.ID)
			return nil
		},
	}
)

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryListCmd)
	memoryCmd.AddCommand(memorySearchCmd)
	memoryCmd.AddCommand(memoryEvolveCmd)
	memoryCmd.AddCommand(memoryStatsCmd)
	memoryCmd.AddCommand(memoryPathCmd)
	memoryCmd.AddCommand(memoryRuleCmd)

	memorySearchCmd.Flags().IntVar(&limitFlag, "limit", 10, "maximum matches to show")
}

func renderEntries(entries []ledger.MemoryEntry) string {
	entriesTable := table.NewWriter()
	entriesTable.AppendHeader(table.Row{"ID", "Category", "Text", "Tags", "Created"})

	for _, entry := range entries {
		entriesTable.AppendRow(table.Row{
			entry.ID,
			entry.Category,
			utils.TruncateRunes(entry.Text, listTextWidth),
			strings.Join(entry.Tags, ","),
			time.UnixMilli(entry.CreatedAt).Format("2006-01-02 15:04"),
		})
	}

	return entriesTable.Render()
}

func categorySummary(byCategory map[ledger.Category]int) string {
	if len(byCategory) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(byCategory))
	for _, category := range []ledger.Category{
		ledger.CategoryPreference,
		ledger.CategoryFact,
		ledger.CategoryDecision,
		ledger.CategoryEntity,
		ledger.CategoryOther,
	} {
		if count := byCategory[category]; count > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", category, count))
		}
	}

	return strings.Join(parts, ", ")
}

var longMemory = `
Inspect and maintain the Markdown memory ledger.

Examples:
  # Show everything the store remembers.
  mnemo memory list

  # Rank memories against a query.
  mnemo memory search dark mode

  # Turn repeated task failures into operating rules.
  mnemo memory evolve

  # Record an operating rule by hand.
  mnemo memory rule "check the staging cluster before deploying"
`
