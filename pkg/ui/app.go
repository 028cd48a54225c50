// Package ui renders the memory status card: stream totals, recent task
// outcomes, recent operating rules, and on-disk sizes, live-refreshed while
// the ledger changes underneath it.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theapemachine/mnemo/pkg/ledger"
)

// recentLines caps the recent-tasks and recent-rules sections.
const recentLines = 5

type model struct {
	store   *ledger.Store
	watcher *Watcher

	stats ledger.Stats
	tasks []ledger.TaskLogEntry
	rules []ledger.EvolutionRule

	width int
	err   error
}

/*
New builds the status card model. The watcher may be nil, in which case the
card refreshes on keypress only.
*/
func New(store *ledger.Store, watcher *Watcher) tea.Model {
	return model{
		store:   store,
		watcher: watcher,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.snapshot(), m.awaitReload())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case snapshotMsg:
		m.stats = msg.stats
		m.tasks = msg.tasks
		m.rules = msg.rules
		m.err = nil

	case errorMsg:
		m.err = msg.err

	case reloadMsg:
		return m, tea.Batch(m.snapshot(), m.awaitReload())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, defaultKeymap.quit):
			return m, tea.Quit
		case key.Matches(msg, defaultKeymap.refresh):
			return m, m.snapshot()
		}
	}

	return m, nil
}

// snapshot re-reads all three streams off the model's store.
func (m model) snapshot() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.store.Stats()
		if err != nil {
			return errorMsg{err: err}
		}

		tasks, err := m.store.ListTaskLog(recentLines)
		if err != nil {
			return errorMsg{err: err}
		}

		rules, err := m.store.ListRules()
		if err != nil {
			return errorMsg{err: err}
		}
		if len(rules) > recentLines {
			rules = rules[len(rules)-recentLines:]
		}

		return snapshotMsg{stats: stats, tasks: tasks, rules: rules}
	}
}

// awaitReload parks on the watcher channel until the ledger changes on disk.
func (m model) awaitReload() tea.Cmd {
	if m.watcher == nil {
		return nil
	}
	return func() tea.Msg {
		<-m.watcher.Reload()
		return reloadMsg{}
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("mnemo — agent memory"))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(m.stats.Root))
	b.WriteString("\n\n")

	b.WriteString(m.totalsView())
	b.WriteString("\n")
	b.WriteString(m.tasksView())
	b.WriteString("\n")
	b.WriteString(m.rulesView())
	b.WriteString("\n")
	b.WriteString(m.filesView())

	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("Error: ") + m.err.Error())
	}

	card := cardStyle.Render(b.String())
	bar := statusBarStyle.Render("r refresh • q quit")

	return lipgloss.JoinVertical(lipgloss.Left, card, bar)
}

func (m model) totalsView() string {
	categories := make([]string, 0, len(m.stats.ByCategory))
	for category := range m.stats.ByCategory {
		categories = append(categories, string(category))
	}
	sort.Strings(categories)

	parts := make([]string, 0, len(categories))
	for _, category := range categories {
		parts = append(parts, fmt.Sprintf("%s %d", category, m.stats.ByCategory[ledger.Category(category)]))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d", sectionStyle.Render("Memories"), m.stats.Memories)
	if len(parts) > 0 {
		b.WriteString(labelStyle.Render("  " + strings.Join(parts, " · ")))
	}

	fmt.Fprintf(&b, "\n%s %d  ", sectionStyle.Render("Tasks"), m.stats.Tasks)
	b.WriteString(okStyle.Render(fmt.Sprintf("%d ok", m.stats.TaskSuccesses)))
	b.WriteString(labelStyle.Render(" · "))
	b.WriteString(failStyle.Render(fmt.Sprintf("%d failed", m.stats.TaskFailures)))

	fmt.Fprintf(&b, "\n%s %d  ", sectionStyle.Render("Rules"), m.stats.Rules)
	b.WriteString(labelStyle.Render(fmt.Sprintf("%d auto · %d manual", m.stats.AutoRules, m.stats.ManualRules)))
	b.WriteString("\n")

	return b.String()
}

func (m model) tasksView() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Recent tasks"))

	if len(m.tasks) == 0 {
		b.WriteString("\n" + labelStyle.Render("  (none yet)"))
	}

	for _, task := range m.tasks {
		glyph := okStyle.Render("✅")
		if !task.Success {
			glyph = failStyle.Render("❌")
		}
		fmt.Fprintf(&b, "\n  %s %s", glyph, task.Summary)
	}

	b.WriteString("\n")
	return b.String()
}

func (m model) rulesView() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Recent rules"))

	if len(m.rules) == 0 {
		b.WriteString("\n" + labelStyle.Render("  (none yet)"))
	}

	for _, rule := range m.rules {
		fmt.Fprintf(&b, "\n  %s %s", ruleStyle.Render("•"), rule.Rule)
	}

	b.WriteString("\n")
	return b.String()
}

func (m model) filesView() string {
	return labelStyle.Render(fmt.Sprintf(
		"memories.md %s · tasks.md %s · rules.md %s",
		formatBytes(m.stats.MemoriesBytes),
		formatBytes(m.stats.TasksBytes),
		formatBytes(m.stats.RulesBytes),
	))
}

// formatBytes renders a size in the closest familiar unit.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
