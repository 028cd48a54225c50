// Package ledger implements the Markdown-backed memory store: three
// independent append-mostly text streams (memories, task outcomes, evolution
// rules) living under one storage root, each a plain Markdown file a human can
// open and read.  One record serializes to one line; a line that does not
// match the stream's grammar is not a record and is skipped, never an error.
// The store's persistent identity is the filesystem location: every operation
// re-reads and re-parses its file, which keeps a CLI invocation coherent with
// a long-running service writing to the same root.  A single writer is
// assumed; the internal mutex only serializes callers within one process.
package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Stream file names under the storage root.
const (
	memoriesFile = "memories.md"
	tasksFile    = "tasks.md"
	rulesFile    = "rules.md"
)

// Header blocks written once when a stream file is first created. Existing
// files are never overwritten, only appended to (or rewritten wholesale on
// delete).
const (
	memoriesHeader = "# Memories\n<!-- mnemo ledger: one record per line, append-only -->\n\n"
	tasksHeader    = "# Task Log\n<!-- mnemo ledger: one record per line, append-only -->\n\n"
	rulesHeader    = "# Evolution Rules\n<!-- mnemo ledger: one record per line, append-only -->\n\n"
)

// ErrNotFound is returned by lookups for an id that has no record.
var ErrNotFound = errors.New("record not found")

/*
Store is the CRUD and query surface over the three ledger streams.  It is the
assumed-exclusive writer for its storage root; no cross-process locking is
attempted.
*/
type Store struct {
	mu   sync.RWMutex
	root string
}

// NewStore prepares a store rooted at the given directory, creating it if
// needed. The stream files themselves are created lazily on first write.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("ledger: storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("ledger: create storage root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the storage root directory.
func (s *Store) Root() string {
	return s.root
}

// Paths returns the absolute paths of the memory, task and rule streams, in
// that order. The files may not exist yet.
func (s *Store) Paths() (memories, tasks, rules string) {
	return filepath.Join(s.root, memoriesFile),
		filepath.Join(s.root, tasksFile),
		filepath.Join(s.root, rulesFile)
}

// Store appends a new memory entry with a fresh id and the current timestamp.
// It performs no duplicate detection of its own; callers that want the
// near-duplicate heuristic invoke HasDuplicate first.
func (s *Store) Store(category Category, text string, tags ...string) (MemoryEntry, error) {
	text = normalizeText(text)
	if text == "" {
		return MemoryEntry{}, fmt.Errorf("ledger: memory text must not be empty")
	}

	entry := MemoryEntry{
		ID:        newRecordID(),
		Category:  ParseCategory(string(category)),
		Text:      text,
		CreatedAt: time.Now().UnixMilli(),
		Tags:      tags,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, _, _ := s.Paths()
	if err := appendRecord(path, memoriesHeader, EncodeMemory(entry)); err != nil {
		return MemoryEntry{}, err
	}
	return entry, nil
}

// HasDuplicate reports whether stored text is a near-duplicate of the
// candidate under the NearDuplicate heuristic.
func (s *Store) HasDuplicate(text string) (bool, error) {
	entries, err := s.ListAll()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if NearDuplicate(entry.Text, text) {
			return true, nil
		}
	}
	return false, nil
}

/*
NearDuplicate is the fuzzy duplicate heuristic: both sides are normalized
(lowercased, trimmed) and considered duplicates when exactly equal, or when
one contains the other and the shorter side covers more than 80% of the
longer side's length.  It is policy, not architecture: false positives on
short overlapping phrases and false negatives on paraphrases are accepted.
*/
func NearDuplicate(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return a == b
	}
	if a == b {
		return true
	}

	shorter, longer := a, b
	if utf8.RuneCountInString(shorter) > utf8.RuneCountInString(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return false
	}
	ratio := float64(utf8.RuneCountInString(shorter)) / float64(utf8.RuneCountInString(longer))
	return ratio > 0.8
}

// Search ranks memory records against the query with the lexical search
// procedure and decodes the survivors. Results come back in descending
// token-hit order, ties in original line order.
func (s *Store) Search(query string, limit int) ([]MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, _, _ := s.Paths()
	lines, err := readStream(path)
	if err != nil {
		return nil, err
	}

	ranked := RankLines(lines, query, limit)
	results := make([]MemoryEntry, 0, len(ranked))
	for _, line := range ranked {
		if entry, ok := DecodeMemory(line); ok {
			results = append(results, entry)
		}
	}
	return results, nil
}

// ListAll decodes the full memory stream in file (creation) order.
func (s *Store) ListAll() ([]MemoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, _, _ := s.Paths()
	lines, err := readStream(path)
	if err != nil {
		return nil, err
	}

	var entries []MemoryEntry
	for _, line := range lines {
		if entry, ok := DecodeMemory(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// CandidatesFor returns up to limit entries matching the query, for callers
// that need to disambiguate a fuzzy reference before acting on an id.
// limit <= 0 applies a default of 5.
func (s *Store) CandidatesFor(query string, limit int) ([]MemoryEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.Search(query, limit)
}

// FindByID returns the memory entry with the given id, or ErrNotFound.
func (s *Store) FindByID(id string) (MemoryEntry, error) {
	entries, err := s.ListAll()
	if err != nil {
		return MemoryEntry{}, err
	}
	for _, entry := range entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return MemoryEntry{}, ErrNotFound
}

// Delete removes the unique memory line whose id matches and reports whether
// a removal occurred. Deleting an absent id is a no-op, not an error.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, _, _ := s.Paths()
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger: read memory stream: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	removed := false
	for _, line := range lines {
		if !removed {
			if entry, ok := DecodeMemory(line); ok && entry.ID == id {
				removed = true
				continue
			}
		}
		kept = append(kept, line)
	}
	if !removed {
		return false, nil
	}

	// Rewrite wholesale, preserving every other line (headers, hand-written
	// notes, records) exactly as it was.
	if err := writeFileAtomic(path, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		return false, fmt.Errorf("ledger: rewrite memory stream: %w", err)
	}
	return true, nil
}

// LogTask appends one task outcome to the task stream. durationMS <= 0 means
// the duration was not measured and is omitted from the line.
func (s *Store) LogTask(summary string, success bool, durationMS int64) (TaskLogEntry, error) {
	summary = normalizeText(summary)
	if summary == "" {
		return TaskLogEntry{}, fmt.Errorf("ledger: task summary must not be empty")
	}

	entry := TaskLogEntry{
		ID:        newRecordID(),
		Summary:   summary,
		Success:   success,
		CreatedAt: time.Now().UnixMilli(),
	}
	if durationMS > 0 {
		entry.DurationMS = durationMS
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, path, _ := s.Paths()
	if err := appendRecord(path, tasksHeader, EncodeTask(entry)); err != nil {
		return TaskLogEntry{}, err
	}
	return entry, nil
}

// ListTaskLog decodes the task stream and returns the most recent limit
// entries in creation order (the tail, not an arbitrary truncation).
// limit <= 0 returns everything.
func (s *Store) ListTaskLog(limit int) ([]TaskLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, path, _ := s.Paths()
	lines, err := readStream(path)
	if err != nil {
		return nil, err
	}

	var entries []TaskLogEntry
	for _, line := range lines {
		if entry, ok := DecodeTask(line); ok {
			entries = append(entries, entry)
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// AddRule appends one evolution rule to the rule stream.
func (s *Store) AddRule(rule string, source RuleSource) (EvolutionRule, error) {
	rule = normalizeText(rule)
	if rule == "" {
		return EvolutionRule{}, fmt.Errorf("ledger: rule text must not be empty")
	}

	entry := EvolutionRule{
		ID:        newRecordID(),
		Rule:      rule,
		Source:    ParseRuleSource(string(source)),
		CreatedAt: time.Now().UnixMilli(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _, path := s.Paths()
	if err := appendRecord(path, rulesHeader, EncodeRule(entry)); err != nil {
		return EvolutionRule{}, err
	}
	return entry, nil
}

// ListRules decodes the rule stream in creation order.
func (s *Store) ListRules() ([]EvolutionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, _, path := s.Paths()
	lines, err := readStream(path)
	if err != nil {
		return nil, err
	}

	var rules []EvolutionRule
	for _, line := range lines {
		if rule, ok := DecodeRule(line); ok {
			rules = append(rules, rule)
		}
	}
	return rules, nil
}

/*
Stats summarizes the three streams for the status card and the inspection
commands.
*/
type Stats struct {
	Root string

	Memories   int
	ByCategory map[Category]int

	Tasks         int
	TaskSuccesses int
	TaskFailures  int

	Rules       int
	AutoRules   int
	ManualRules int

	MemoriesBytes int64
	TasksBytes    int64
	RulesBytes    int64
}

// Stats walks all three streams and tallies them.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{Root: s.root, ByCategory: make(map[Category]int)}

	entries, err := s.ListAll()
	if err != nil {
		return Stats{}, err
	}
	stats.Memories = len(entries)
	for _, entry := range entries {
		stats.ByCategory[entry.Category]++
	}

	tasks, err := s.ListTaskLog(0)
	if err != nil {
		return Stats{}, err
	}
	stats.Tasks = len(tasks)
	for _, task := range tasks {
		if task.Success {
			stats.TaskSuccesses++
		} else {
			stats.TaskFailures++
		}
	}

	rules, err := s.ListRules()
	if err != nil {
		return Stats{}, err
	}
	stats.Rules = len(rules)
	for _, rule := range rules {
		if rule.Source == RuleSourceManual {
			stats.ManualRules++
		} else {
			stats.AutoRules++
		}
	}

	memPath, taskPath, rulePath := s.Paths()
	stats.MemoriesBytes = fileSize(memPath)
	stats.TasksBytes = fileSize(taskPath)
	stats.RulesBytes = fileSize(rulePath)

	return stats, nil
}

// ---------------------------------------------------------------------------
// File plumbing
// ---------------------------------------------------------------------------

// readStream returns the stream's lines. A missing file reads as empty: lazy
// creation means "no file yet" and "no records yet" are the same thing.
func readStream(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", filepath.Base(path), err)
	}
	return strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n"), nil
}

// appendRecord appends one line to a stream, writing the header block first
// when the file does not exist yet.
func appendRecord(path, header, line string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			return fmt.Errorf("ledger: initialize %s: %w", filepath.Base(path), err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("ledger: append to %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeFileAtomic writes via a temp file in the same directory plus rename,
// so a crash mid-rewrite never leaves a truncated stream behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mnemo-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
