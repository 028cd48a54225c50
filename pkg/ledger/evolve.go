package ledger

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Evolution pass tuning. The window bounds how much history one pass
// considers; the threshold is how many distinct failures must mention a
// token before it becomes a rule.
const (
	evolveTaskWindow      = 50
	evolveFailureMinCount = 2
	evolveMinTokenRunes   = 5
)

/*
Evolve mines the recent task log for recurring failure vocabulary and turns
it into cautionary rules.  It reads the last 50 task entries, keeps the
failures, tokenizes their summaries (lowercased, whitespace split, tokens
shorter than five runes dropped) and counts for each token the number of
distinct failures mentioning it.  Every token mentioned by at least two
failures yields a rule

	caution advised for tasks involving "<token>" (<count> prior failures)

unless some existing rule's text already contains the token.  Candidates are
emitted in descending count order, ties lexicographic, and each rule written
during the pass immediately suppresses later candidates containing its
token.  Returns the rules added by this pass, possibly none.

The pass is composed of individually consistent reads and appends, not one
transaction: two concurrent passes over the same root may both see a token
as unsuppressed and write it twice.  The single-writer assumption makes
that acceptable.
*/
func (s *Store) Evolve() ([]EvolutionRule, error) {
	tasks, err := s.ListTaskLog(evolveTaskWindow)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, task := range tasks {
		if task.Success {
			continue
		}
		for token := range summaryTokens(task.Summary) {
			counts[token]++
		}
	}

	candidates := make([]string, 0, len(counts))
	for token, count := range counts {
		if count >= evolveFailureMinCount {
			candidates = append(candidates, token)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if counts[candidates[i]] != counts[candidates[j]] {
			return counts[candidates[i]] > counts[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	existing, err := s.ListRules()
	if err != nil {
		return nil, err
	}
	ruleTexts := make([]string, 0, len(existing))
	for _, rule := range existing {
		ruleTexts = append(ruleTexts, rule.Rule)
	}

	var added []EvolutionRule
	for _, token := range candidates {
		if ruleMentionsToken(ruleTexts, token) {
			continue
		}
		text := fmt.Sprintf("caution advised for tasks involving %q (%d prior failures)", token, counts[token])
		rule, err := s.AddRule(text, RuleSourceAuto)
		if err != nil {
			return added, err
		}
		added = append(added, rule)
		ruleTexts = append(ruleTexts, rule.Rule)
	}
	return added, nil
}

// ruleMentionsToken reports whether any rule text contains the token as a
// plain substring. Tokens are already lowercase; rule texts are matched
// as written, so a rule mentioning "Docker" does not suppress "docker".
func ruleMentionsToken(ruleTexts []string, token string) bool {
	for _, text := range ruleTexts {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

// summaryTokens returns the distinct significant tokens of one summary, so a
// summary repeating a word still counts as a single mention.
func summaryTokens(summary string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(summary)) {
		if utf8.RuneCountInString(field) < evolveMinTokenRunes {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}
