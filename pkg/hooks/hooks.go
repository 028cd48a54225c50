// Package hooks is the embeddable lifecycle surface a host agent runtime
// calls around each of its runs: PreRun decides whether remembered context
// should be prepended to the prompt, PostRun records the outcome and quietly
// captures anything worth keeping. Both are best-effort; a broken memory file
// must never take the host's primary flow down with it.
package hooks

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/theapemachine/mnemo/pkg/capture"
	"github.com/theapemachine/mnemo/pkg/ledger"
	"github.com/theapemachine/mnemo/pkg/utils"
)

const (
	minRecallPromptRunes = 5
	defaultRecallLimit   = 5
	maxRulesInContext    = 5
	maxCapturePerRun     = 3
	taskSummaryMaxRunes  = 120
)

// Transcript roles, as the host reports them.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance of a host run's transcript.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

/*
Options tunes the two hooks. The zero value disables both; commands populate
it from configuration.
*/
type Options struct {
	RecallEnabled  bool
	CaptureEnabled bool

	// RecallLimit caps how many memories PreRun injects; <= 0 means 5.
	RecallLimit int

	// MaxCaptureRunes caps a capture candidate's length; <= 0 uses the
	// capture package default.
	MaxCaptureRunes int
}

/*
Report is PostRun's accounting. Failures land in Errs instead of aborting the
run; the caller logs them and moves on.
*/
type Report struct {
	TaskLogged        bool
	Stored            []ledger.MemoryEntry
	SkippedDuplicates int
	Errs              []error
}

/*
Manager binds the hooks to one store.
*/
type Manager struct {
	store *ledger.Store
	opts  Options
}

func NewManager(store *ledger.Store, opts Options) *Manager {
	if opts.RecallLimit <= 0 {
		opts.RecallLimit = defaultRecallLimit
	}
	return &Manager{store: store, opts: opts}
}

/*
PreRun searches memory for the prompt and, when recall is enabled and at
least one entry matches, returns the escaped context block (plus up to five
recent operating rules) to prepend. The boolean reports whether there is
anything to inject. Prompts shorter than five runes are too unspecific to
search on and return nothing.
*/
func (manager *Manager) PreRun(prompt string) (string, bool) {
	if !manager.opts.RecallEnabled {
		return "", false
	}

	prompt = strings.TrimSpace(prompt)
	if utf8.RuneCountInString(prompt) < minRecallPromptRunes {
		return "", false
	}

	entries, err := manager.store.Search(prompt, manager.opts.RecallLimit)
	if err != nil {
		log.Warn("memory recall failed", "error", err)
		return "", false
	}
	if len(entries) == 0 {
		return "", false
	}

	block := capture.FormatRelevantMemoriesContext(entries)

	if stanza := manager.rulesStanza(); stanza != "" {
		block += "\n\n" + stanza
	}
	return block, true
}

// rulesStanza renders the tail of the rule stream, oldest first, escaped like
// the memory block. Empty when there are no rules or the stream is unreadable.
func (manager *Manager) rulesStanza() string {
	rules, err := manager.store.ListRules()
	if err != nil {
		log.Warn("listing rules failed", "error", err)
		return ""
	}
	if len(rules) == 0 {
		return ""
	}
	if len(rules) > maxRulesInContext {
		rules = rules[len(rules)-maxRulesInContext:]
	}

	var b strings.Builder
	b.WriteString("Recent operating rules:")
	for _, rule := range rules {
		b.WriteString("\n- ")
		b.WriteString(capture.EscapeForPrompt(rule.Rule))
	}
	return b.String()
}

/*
PostRun logs exactly one task outcome for the finished run and, when capture
is enabled, stores up to three qualifying user-authored texts from the
transcript, each screened by the capture filters and the duplicate check.
Nothing here returns an error; everything that went wrong is in the report.
*/
func (manager *Manager) PostRun(success bool, transcript []Turn) Report {
	report := Report{}

	summary := manager.taskSummary(transcript)
	if _, err := manager.store.LogTask(summary, success, 0); err != nil {
		log.Warn("task logging failed", "error", err)
		report.Errs = append(report.Errs, err)
	} else {
		report.TaskLogged = true
	}

	if !manager.opts.CaptureEnabled {
		return report
	}

	for _, turn := range transcript {
		if len(report.Stored) >= maxCapturePerRun {
			break
		}
		if turn.Role != RoleUser {
			continue
		}
		text := strings.TrimSpace(turn.Text)
		if !capture.ShouldCapture(text, manager.opts.MaxCaptureRunes) {
			continue
		}

		dup, err := manager.store.HasDuplicate(text)
		if err != nil {
			report.Errs = append(report.Errs, err)
			continue
		}
		if dup {
			report.SkippedDuplicates++
			continue
		}

		entry, err := manager.store.Store(capture.DetectCategory(text), text)
		if err != nil {
			report.Errs = append(report.Errs, err)
			continue
		}
		log.Debug("captured memory", "id", entry.ID, "category", entry.Category)
		report.Stored = append(report.Stored, entry)
	}

	return report
}

// taskSummary is the first user turn, truncated; runs with no user turn get a
// fixed placeholder so the task still logs.
func (manager *Manager) taskSummary(transcript []Turn) string {
	for _, turn := range transcript {
		if turn.Role != RoleUser {
			continue
		}
		if text := strings.TrimSpace(turn.Text); text != "" {
			return utils.TruncateRunes(text, taskSummaryMaxRunes)
		}
	}
	return "(no user input)"
}
