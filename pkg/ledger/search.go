package ledger

import (
	"sort"
	"strings"
	"unicode/utf8"
)

/*
RankLines is the lexical retrieval pass shared by Search and the recall tool:
no embeddings, no index, just token containment over the raw stream lines.
The query is lowercased and split on whitespace, single-rune tokens are
dropped, and each record line scores one point per distinct query token it
contains.  Lines that score zero or do not look like records are excluded.
The sort is stable so equal scores keep file order, which is creation order.
*/
func RankLines(lines []string, query string, limit int) []string {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil
	}

	type scored struct {
		line  string
		score int
	}

	var matches []scored
	for _, line := range lines {
		if !strings.HasPrefix(line, recordLinePrefix) {
			continue
		}
		haystack := strings.ToLower(line)
		score := 0
		for _, token := range tokens {
			if strings.Contains(haystack, token) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{line: line, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	ranked := make([]string, len(matches))
	for i, m := range matches {
		ranked[i] = m.line
	}
	return ranked
}

// queryTokens lowercases, splits on whitespace and deduplicates, dropping
// tokens of a single rune or less.
func queryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if utf8.RuneCountInString(field) <= 1 {
			continue
		}
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		tokens = append(tokens, field)
	}
	return tokens
}
