package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

/*
Category classifies a memory entry. Unknown values decode to CategoryOther so
a hand-edited ledger line never breaks a read.
*/
type Category string

const (
	CategoryPreference Category = "preference"
	CategoryFact       Category = "fact"
	CategoryDecision   Category = "decision"
	CategoryEntity     Category = "entity"
	CategoryOther      Category = "other"
)

// ParseCategory maps free-form input onto a known category, falling back to
// CategoryOther.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryPreference:
		return CategoryPreference
	case CategoryFact:
		return CategoryFact
	case CategoryDecision:
		return CategoryDecision
	case CategoryEntity:
		return CategoryEntity
	default:
		return CategoryOther
	}
}

/*
RuleSource records whether an evolution rule was mined automatically or
supplied by an operator. Unknown values decode to RuleSourceAuto.
*/
type RuleSource string

const (
	RuleSourceAuto   RuleSource = "auto"
	RuleSourceManual RuleSource = "manual"
)

// ParseRuleSource maps free-form input onto a known source, falling back to
// RuleSourceAuto.
func ParseRuleSource(s string) RuleSource {
	if RuleSource(strings.ToLower(strings.TrimSpace(s))) == RuleSourceManual {
		return RuleSourceManual
	}
	return RuleSourceAuto
}

/*
MemoryEntry is a single remembered statement. Entries are immutable once
written; the only mutation the store supports is delete-by-id.
*/
type MemoryEntry struct {
	ID        string   `json:"id"`
	Category  Category `json:"category"`
	Text      string   `json:"text"`
	CreatedAt int64    `json:"created_at"` // epoch milliseconds
	Tags      []string `json:"tags,omitempty"`
}

/*
TaskLogEntry is one recorded task outcome. The task stream is append-only;
entries are never deleted or rewritten through the public surface.
*/
type TaskLogEntry struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	Success    bool   `json:"success"`
	CreatedAt  int64  `json:"created_at"`
	DurationMS int64  `json:"duration_ms,omitempty"` // 0 means not recorded
}

/*
EvolutionRule is a durable operating rule, either mined from repeated failures
(auto) or supplied by an operator (manual). Append-only.
*/
type EvolutionRule struct {
	ID        string     `json:"id"`
	Rule      string     `json:"rule"`
	Source    RuleSource `json:"source"`
	CreatedAt int64      `json:"created_at"`
}

// newRecordID returns the first eight hex characters of a v4 UUID. Short ids
// keep ledger lines readable; the space is large enough that collisions are
// negligible at the scale of a personal memory file, so there is no retry.
func newRecordID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Status glyphs used on task lines. Decorative on encode; decode keys off the
// SUCCESS/FAILURE word that follows them.
const (
	glyphSuccess = "✅"
	glyphFailure = "❌"
)

// Line grammars. One record per line: bracket-delimited fields followed by a
// trailing metadata comment. Free text is not escaped, so text containing the
// literal bracket or comment delimiter sequences is outside the round-trip
// contract (documented limitation inherited from the format).
var (
	memoryLineRe = regexp.MustCompile(`^- \[([^\]]+)\] \[([^\]]+)\] (.*?) <!-- meta:created=(\d+)(?: tags=(\S+))? -->$`)
	taskLineRe   = regexp.MustCompile(`^- \[([^\]]+)\] (?:✅|❌) (SUCCESS|FAILURE) (.*?) <!-- meta:created=(\d+)(?: duration=(\d+)ms)? -->$`)
	ruleLineRe   = regexp.MustCompile(`^- \[([^\]]+)\] \[([^\]]+)\] (.*?) <!-- meta:created=(\d+) -->$`)
)

// recordLinePrefix is the structural marker a line must carry to be considered
// a record at all. Header comments and blank lines never match it.
const recordLinePrefix = "- ["

// EncodeMemory renders a memory entry as one ledger line.
func EncodeMemory(e MemoryEntry) string {
	meta := fmt.Sprintf("created=%d", e.CreatedAt)
	if len(e.Tags) > 0 {
		meta += " tags=" + strings.Join(e.Tags, ",")
	}
	return fmt.Sprintf("- [%s] [%s] %s <!-- meta:%s -->", e.ID, e.Category, e.Text, meta)
}

// DecodeMemory parses one memory-stream line. The boolean reports whether the
// line is a record; a non-matching line is not an error, it is simply skipped.
func DecodeMemory(line string) (MemoryEntry, bool) {
	m := memoryLineRe.FindStringSubmatch(line)
	if m == nil {
		return MemoryEntry{}, false
	}
	created, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return MemoryEntry{}, false
	}
	entry := MemoryEntry{
		ID:        m[1],
		Category:  ParseCategory(m[2]),
		Text:      m[3],
		CreatedAt: created,
	}
	if m[5] != "" {
		entry.Tags = strings.Split(m[5], ",")
	}
	return entry, true
}

// EncodeTask renders a task outcome as one ledger line.
func EncodeTask(e TaskLogEntry) string {
	glyph, word := glyphSuccess, "SUCCESS"
	if !e.Success {
		glyph, word = glyphFailure, "FAILURE"
	}
	meta := fmt.Sprintf("created=%d", e.CreatedAt)
	if e.DurationMS > 0 {
		meta += fmt.Sprintf(" duration=%dms", e.DurationMS)
	}
	return fmt.Sprintf("- [%s] %s %s %s <!-- meta:%s -->", e.ID, glyph, word, e.Summary, meta)
}

// DecodeTask parses one task-stream line.
func DecodeTask(line string) (TaskLogEntry, bool) {
	m := taskLineRe.FindStringSubmatch(line)
	if m == nil {
		return TaskLogEntry{}, false
	}
	created, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return TaskLogEntry{}, false
	}
	entry := TaskLogEntry{
		ID:        m[1],
		Summary:   m[3],
		Success:   m[2] == "SUCCESS",
		CreatedAt: created,
	}
	if m[5] != "" {
		// Duration digits already validated by the pattern.
		entry.DurationMS, _ = strconv.ParseInt(m[5], 10, 64)
	}
	return entry, true
}

// EncodeRule renders an evolution rule as one ledger line.
func EncodeRule(e EvolutionRule) string {
	return fmt.Sprintf("- [%s] [%s] %s <!-- meta:created=%d -->", e.ID, e.Source, e.Rule, e.CreatedAt)
}

// DecodeRule parses one rule-stream line.
func DecodeRule(line string) (EvolutionRule, bool) {
	m := ruleLineRe.FindStringSubmatch(line)
	if m == nil {
		return EvolutionRule{}, false
	}
	created, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return EvolutionRule{}, false
	}
	return EvolutionRule{
		ID:        m[1],
		Rule:      m[3],
		Source:    ParseRuleSource(m[2]),
		CreatedAt: created,
	}, true
}

// normalizeText flattens a candidate record text onto a single line. The
// codec is strictly line-oriented, so embedded newlines would shear a record
// in two on the next read.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.TrimSpace(text)
}
