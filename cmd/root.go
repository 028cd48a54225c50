/*
Package cmd implements the command-line interface for the mnemo memory plugin.
It provides commands for serving the tool surface, running the DingTalk
adapter, and inspecting the ledger.
*/
package cmd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/theapemachine/mnemo/pkg/ledger"
)

/*
Embed a mini filesystem into the binary to hold the default config file.
This will be written to the home directory of the user running the service,
which allows any setting to be overridden in place.
*/
//go:embed cfg/*
var embedded embed.FS

/*
rootCmd represents the base command when called without any subcommands
*/
var (
	projectName = "mnemo"
	cfgFile     string
	rootFlag    string

	rootCmd = &cobra.Command{
		Use:   "mnemo",
		Short: "Markdown-backed persistent memory for agent runtimes",
		Long:  longRoot,
	}
)

/*
Execute is the main entry point for the mnemo CLI. It initializes the root
command and executes it.
*/
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yml",
		"config file (default is $HOME/."+projectName+"/config.yml)",
	)

	rootCmd.PersistentFlags().StringVar(
		&rootFlag,
		"root",
		"",
		"ledger directory (default from config, then the XDG data home)",
	)
}

/*
initConfig writes the default config file to the user's home directory if it
doesn't exist, then reads it back through viper. A .env in the working
directory is loaded first so secrets never need to live in the config file.
*/
func initConfig() {
	_ = godotenv.Load()

	if err := writeConfig(); err != nil {
		log.Fatal("could not write default config", "error", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	// Add user config directory (~/.mnemo)
	home, _ := os.UserHomeDir()
	viper.AddConfigPath(home + "/." + projectName)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatal("could not read config", "error", err)
	}
}

/*
writeConfig writes the default config file to the user's home directory.
*/
func writeConfig() (err error) {
	var (
		home, _ = os.UserHomeDir()
		fh      fs.File
		buf     bytes.Buffer
	)

	configDir := home + "/." + projectName
	if !CheckFileExists(configDir) {
		if err = os.MkdirAll(configDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	for _, file := range []string{cfgFile} {
		fullPath := configDir + "/" + file

		if CheckFileExists(fullPath) {
			continue
		}

		if fh, err = embedded.Open("cfg/" + file); err != nil {
			return fmt.Errorf("failed to open embedded config file: %w", err)
		}

		if _, err = io.Copy(&buf, fh); err != nil {
			fh.Close()
			return fmt.Errorf("failed to read embedded config file: %w", err)
		}

		if err = os.WriteFile(fullPath, buf.Bytes(), 0644); err != nil {
			fh.Close()
			return fmt.Errorf("failed to write config file: %w", err)
		}

		log.Info("wrote config file", "path", fullPath)
		buf.Reset()
		fh.Close()
	}

	return nil
}

func CheckFileExists(filePath string) bool {
	_, error := os.Stat(filePath)
	return !errors.Is(error, os.ErrNotExist)
}

// storageRoot resolves the ledger directory: the --root flag wins, then the
// config file, then the XDG data home.
func storageRoot() string {
	if rootFlag != "" {
		return rootFlag
	}
	if root := viper.GetString("memory.root"); root != "" {
		return root
	}
	return filepath.Join(xdg.DataHome, projectName)
}

// openStore opens the ledger at the resolved storage root.
func openStore() (*ledger.Store, error) {
	return ledger.NewStore(storageRoot())
}

/*
longRoot contains the detailed help text for the root command.
*/
var longRoot = `
mnemo keeps an agent's long-term memory in three plain Markdown files:
memories, task outcomes, and operating rules. The files stay hand-editable;
every command and tool call re-reads them from disk.

Serve the memory tools to a host runtime over MCP, wire a DingTalk group
robot to the same store, or inspect the ledger from the terminal.
`
