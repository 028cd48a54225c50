package cmd

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/mnemo/pkg/dingtalk"
	"github.com/theapemachine/mnemo/pkg/hooks"
	"github.com/theapemachine/mnemo/pkg/service"
	"github.com/theapemachine/mnemo/pkg/utils"
)

var (
	textFlag     string
	markdownFlag string
	titleFlag    string

	dingtalkCmd = &cobra.Command{
		Use:   "dingtalk",
		Short: "Run the DingTalk integration",
		Long:  longDingTalk,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	dingtalkServeCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the DingTalk callback endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.SetReportCaller(true)
			log.SetLevel(log.InfoLevel)

			config := dingtalkConfig()

			if config.AppSecret == "" {
				return cmd.Help()
			}

			store, err := openStore()
			if err != nil {
				return err
			}

			srv, err := service.NewDingTalkService(store, config, hookOptions())
			if err != nil {
				return err
			}

			log.Info("serving dingtalk callbacks", "bind", config.Bind, "root", store.Root())
			return srv.Start()
		},
	}

	dingtalkSendCmd = &cobra.Command{
		Use:   "send",
		Short: "Send a one-shot message through the fixed webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFlag == "" && markdownFlag == "" {
				return cmd.Help()
			}

			client, err := dingtalk.NewClient(dingtalkConfig())
			if err != nil {
				return err
			}

			if markdownFlag != "" {
				return client.SendMarkdown(context.Background(), titleFlag, markdownFlag)
			}

			return client.SendText(context.Background(), textFlag)
		},
	}
)

func init() {
	rootCmd.AddCommand(dingtalkCmd)
	dingtalkCmd.AddCommand(dingtalkServeCmd)
	dingtalkCmd.AddCommand(dingtalkSendCmd)

	dingtalkSendCmd.Flags().StringVar(&textFlag, "text", "", "plain text message to send")
	dingtalkSendCmd.Flags().StringVar(&markdownFlag, "markdown", "", "markdown body to send instead of text")
	dingtalkSendCmd.Flags().StringVar(&titleFlag, "title", "mnemo", "title for markdown messages")
}

// dingtalkConfig assembles the adapter config, letting environment variables
// override the config file for the secret-bearing fields.
func dingtalkConfig() dingtalk.Config {
	v := viper.GetViper()

	return dingtalk.Config{
		OutboundWebhook: utils.FirstNonEmpty(os.Getenv("DINGTALK_WEBHOOK"), v.GetString("dingtalk.outbound_webhook")),
		OutboundSecret:  utils.FirstNonEmpty(os.Getenv("DINGTALK_SECRET"), v.GetString("dingtalk.outbound_secret")),
		AppSecret:       utils.FirstNonEmpty(os.Getenv("DINGTALK_APP_SECRET"), v.GetString("dingtalk.app_secret")),
		Bind:            v.GetString("dingtalk.bind"),
		AgentEndpoint:   v.GetString("dingtalk.agent_endpoint"),
		TimeoutSeconds:  v.GetInt("dingtalk.timeout_seconds"),
	}
}

// hookOptions reads the hook tuning from configuration.
func hookOptions() hooks.Options {
	v := viper.GetViper()

	return hooks.Options{
		RecallEnabled:   v.GetBool("memory.recall.enabled"),
		CaptureEnabled:  v.GetBool("memory.capture.enabled"),
		RecallLimit:     v.GetInt("memory.recall.limit"),
		MaxCaptureRunes: v.GetInt("memory.capture.max_chars"),
	}
}

var longDingTalk = `
Wire a DingTalk group robot to the memory store.

The callback endpoint verifies each request against the robot app secret,
recalls matching memories, answers (relaying to an agent endpoint when one
is configured), and logs the outcome back into the ledger.

Secrets come from DINGTALK_WEBHOOK, DINGTALK_SECRET and DINGTALK_APP_SECRET,
or from ~/.mnemo/config.yml.

Examples:
  # Serve the callback endpoint.
  DINGTALK_APP_SECRET=... mnemo dingtalk serve

  # Post a note to the group through the fixed webhook.
  DINGTALK_WEBHOOK=... DINGTALK_SECRET=... mnemo dingtalk send --text "backup finished"
`
