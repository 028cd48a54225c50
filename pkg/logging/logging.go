// Package logging redirects diagnostic output to a file for the stretches
// where the TUI owns the terminal. The package-global logger keeps working
// everywhere; its lines just land in the file instead of stderr.
package logging

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

var logFile *os.File

// Init points the global logger at the given file, creating it if needed.
func Init(logFilePath string) error {
	f, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	logFile = f
	log.SetOutput(f)
	log.Info("logging redirected", "path", logFilePath)
	return nil
}

// Close restores stderr logging and closes the file. Safe to call without a
// prior Init.
func Close() {
	if logFile == nil {
		return
	}

	log.SetOutput(os.Stderr)
	logFile.Close()
	logFile = nil
}
