// Package capture holds the pure text heuristics around the memory store:
// which user-authored statements are worth keeping, how to classify them, and
// the guard that screens and escapes stored text before it re-enters a prompt.
// Everything here is stateless policy over strings; the regex tables are the
// tuning surface, and their misses are accepted tradeoffs rather than errors.
package capture

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/theapemachine/mnemo/pkg/ledger"
	"github.com/theapemachine/mnemo/pkg/utils"
)

// Capture bounds. Shorter text carries no durable fact; longer text is
// almost always pasted output rather than something said about oneself.
const (
	MinCaptureRunes        = 10
	DefaultMaxCaptureRunes = 500
	MaxCapturePictographs  = 3
)

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?\d[\d\s()-]{6,}\d`)

	htmlTagRe    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
	bulletLineRe = regexp.MustCompile(`(?m)^\s*(?:[-*]|\d+\.)\s`)
)

// Trigger cues: a candidate must read like a person stating something about
// themselves or their world. English and Chinese, matching the audiences the
// DingTalk adapter serves.
var triggerPatterns = []*regexp.Regexp{
	// Possessives over the things people actually state
	regexp.MustCompile(`(?i)\bmy\s+(name|email|phone|number|address|birthday|favorite|favourite|team|company|boss|manager|wife|husband|partner|son|daughter|dog|cat|project|stack|setup|timezone)\b`),
	// Preference statements
	regexp.MustCompile(`(?i)\bi\s+(?:really\s+)?(like|love|prefer|hate|dislike|enjoy|always|never|usually)\b`),
	// Identity
	regexp.MustCompile(`(?i)\bmy\s+name\s+is\b`),
	regexp.MustCompile(`(?i)\bcall\s+me\b`),
	regexp.MustCompile(`(?i)\bi\s*(?:am|['’]m)\s+(?:a|an|from)\b`),
	// Decisions and explicit asks to remember
	regexp.MustCompile(`(?i)\b(?:we|i)\s+(?:decided|agreed|chose)\b`),
	regexp.MustCompile(`(?i)\bremember\s+(?:that|this)\b`),
	// Chinese possessive / preference / identity cues
	regexp.MustCompile(`我叫|我是|我的|我喜欢|我讨厌|我不喜欢|我们决定|我决定|请叫我|记住|我住在|我在用`),
}

// Contact info counts as a trigger on its own.
var contactPatterns = []*regexp.Regexp{emailRe, phoneRe}

/*
ShouldCapture decides whether a piece of user-authored text qualifies for
automatic storage.  The rejection cascade runs before any trigger matching:
out-of-bounds length, the reserved context-block markers, markup, itemized
Markdown (a bold marker plus a bullet line), pictograph overload, and
prompt-injection shapes all disqualify.  What survives is stored only if at
least one trigger cue matches.  maxChars caps the rune length; values <= 0
fall back to DefaultMaxCaptureRunes.
*/
func ShouldCapture(text string, maxChars int) bool {
	if maxChars <= 0 {
		maxChars = DefaultMaxCaptureRunes
	}

	trimmed := strings.TrimSpace(text)
	length := utf8.RuneCountInString(trimmed)
	if length < MinCaptureRunes || length > maxChars {
		return false
	}
	if strings.Contains(trimmed, ContextBlockStart) || strings.Contains(trimmed, ContextBlockEnd) {
		return false
	}
	if htmlTagRe.MatchString(trimmed) {
		return false
	}
	if strings.Contains(trimmed, "**") && bulletLineRe.MatchString(trimmed) {
		return false
	}
	if utils.CountPictographs(trimmed) > MaxCapturePictographs {
		return false
	}
	if LooksLikePromptInjection(trimmed) {
		return false
	}

	for _, pattern := range triggerPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}
	for _, pattern := range contactPatterns {
		if pattern.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// Category cue tables, checked in DetectCategory's fixed order.
var (
	preferencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:prefer|like|love|hate|dislike|enjoy|favorite|favourite)\b`),
		regexp.MustCompile(`我喜欢|我讨厌|我不喜欢|最爱|偏好`),
	}
	decisionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:decided|decision|agreed|chose|choose|going\s+with|settled\s+on|will\s+use)\b`),
		regexp.MustCompile(`决定|选定|选择了`),
	}
	entityPatterns = []*regexp.Regexp{
		emailRe,
		phoneRe,
		regexp.MustCompile(`(?i)\bmy\s+name\s+is\b`),
		regexp.MustCompile(`(?i)\bcall\s+me\b`),
		regexp.MustCompile(`我叫|名字叫|请叫我`),
	}
	factPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:is|are|was|were|has|have|lives?|works?|runs?|means)\b`),
		regexp.MustCompile(`是|有|在`),
	}
)

// DetectCategory classifies text by cue tables in a fixed order, first match
// wins: preference, then decision, then entity, then the general factual
// copula, else other.
func DetectCategory(text string) ledger.Category {
	switch {
	case matchesAny(text, preferencePatterns):
		return ledger.CategoryPreference
	case matchesAny(text, decisionPatterns):
		return ledger.CategoryDecision
	case matchesAny(text, entityPatterns):
		return ledger.CategoryEntity
	case matchesAny(text, factPatterns):
		return ledger.CategoryFact
	default:
		return ledger.CategoryOther
	}
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}
