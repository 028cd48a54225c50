package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/mnemo/pkg/ledger"
)

func newTestModel(t *testing.T) (model, *ledger.Store) {
	t.Helper()

	store, err := ledger.NewStore(t.TempDir())
	require.NoError(t, err)

	return model{store: store}, store
}

func TestSnapshotReadsAllStreams(t *testing.T) {
	m, store := newTestModel(t)

	_, err := store.Store(ledger.CategoryPreference, "prefers dark mode in all editors")
	require.NoError(t, err)
	_, err = store.LogTask("refreshed the deployment manifests", true, 0)
	require.NoError(t, err)
	_, err = store.LogTask("docker push timed out", false, 0)
	require.NoError(t, err)
	_, err = store.AddRule("avoid deployments on fridays", ledger.RuleSourceManual)
	require.NoError(t, err)

	msg := m.snapshot()()
	snap, ok := msg.(snapshotMsg)
	require.True(t, ok, "expected snapshotMsg, got %T", msg)

	assert.Equal(t, 1, snap.stats.Memories)
	assert.Equal(t, 2, snap.stats.Tasks)
	assert.Equal(t, 1, snap.stats.TaskSuccesses)
	assert.Equal(t, 1, snap.stats.TaskFailures)
	assert.Equal(t, 1, snap.stats.ManualRules)
	require.Len(t, snap.tasks, 2)
	require.Len(t, snap.rules, 1)
}

func TestSnapshotKeepsOnlyRecentRules(t *testing.T) {
	m, store := newTestModel(t)

	for _, rule := range []string{"one", "two", "three", "four", "five", "six", "seven"} {
		_, err := store.AddRule("rule "+rule, ledger.RuleSourceManual)
		require.NoError(t, err)
	}

	snap := m.snapshot()().(snapshotMsg)
	require.Len(t, snap.rules, recentLines)
	assert.Equal(t, "rule three", snap.rules[0].Rule)
	assert.Equal(t, "rule seven", snap.rules[len(snap.rules)-1].Rule)
}

func TestViewRendersSections(t *testing.T) {
	m, _ := newTestModel(t)

	updated, _ := m.Update(snapshotMsg{
		stats: ledger.Stats{
			Root:          "/tmp/mnemo",
			Memories:      3,
			ByCategory:    map[ledger.Category]int{ledger.CategoryPreference: 2, ledger.CategoryFact: 1},
			Tasks:         2,
			TaskSuccesses: 1,
			TaskFailures:  1,
		},
		tasks: []ledger.TaskLogEntry{
			{Summary: "refreshed the deployment manifests", Success: true},
			{Summary: "docker push timed out", Success: false},
		},
		rules: []ledger.EvolutionRule{
			{Rule: "avoid deployments on fridays"},
		},
	})

	view := updated.View()

	assert.Contains(t, view, "mnemo — agent memory")
	assert.Contains(t, view, "/tmp/mnemo")
	assert.Contains(t, view, "Recent tasks")
	assert.Contains(t, view, "refreshed the deployment manifests")
	assert.Contains(t, view, "docker push timed out")
	assert.Contains(t, view, "Recent rules")
	assert.Contains(t, view, "avoid deployments on fridays")
	assert.Contains(t, view, "r refresh")
}

func TestQuitKeys(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "0 B", formatBytes(0))
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "2.0 KiB", formatBytes(2048))
	assert.Equal(t, "1.5 MiB", formatBytes(3*1<<20/2))
}
