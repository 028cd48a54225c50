package ui

import "github.com/theapemachine/mnemo/pkg/ledger"

// Message types for internal events
type snapshotMsg struct {
	stats ledger.Stats
	tasks []ledger.TaskLogEntry
	rules []ledger.EvolutionRule
}

type reloadMsg struct{}

type errorMsg struct{ err error }
