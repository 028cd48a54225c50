package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	assert.Equal(t, CategoryPreference, ParseCategory("preference"))
	assert.Equal(t, CategoryFact, ParseCategory(" FACT "))
	assert.Equal(t, CategoryDecision, ParseCategory("Decision"))
	assert.Equal(t, CategoryEntity, ParseCategory("entity"))

	// Unknown values never fail, they land in the catch-all bucket
	assert.Equal(t, CategoryOther, ParseCategory("feeling"))
	assert.Equal(t, CategoryOther, ParseCategory(""))
}

func TestParseRuleSource(t *testing.T) {
	assert.Equal(t, RuleSourceManual, ParseRuleSource("manual"))
	assert.Equal(t, RuleSourceManual, ParseRuleSource(" Manual "))
	assert.Equal(t, RuleSourceAuto, ParseRuleSource("auto"))
	assert.Equal(t, RuleSourceAuto, ParseRuleSource("somewhere-else"))
}

func TestNewRecordID(t *testing.T) {
	id := newRecordID()
	assert.Len(t, id, 8)
	assert.NotContains(t, id, "-")

	// Fresh ids every call
	assert.NotEqual(t, id, newRecordID())
}

func TestMemoryRoundTrip(t *testing.T) {
	entry := MemoryEntry{
		ID:        "ab12cd34",
		Category:  CategoryPreference,
		Text:      "prefers dark mode in all editors",
		CreatedAt: 1755000000000,
	}

	line := EncodeMemory(entry)
	assert.Equal(t, "- [ab12cd34] [preference] prefers dark mode in all editors <!-- meta:created=1755000000000 -->", line)

	decoded, ok := DecodeMemory(line)
	assert.True(t, ok)
	assert.Equal(t, entry, decoded)
}

func TestMemoryRoundTripWithTags(t *testing.T) {
	entry := MemoryEntry{
		ID:        "ab12cd34",
		Category:  CategoryEntity,
		Text:      "the staging cluster lives in eu-west-1",
		CreatedAt: 1755000000000,
		Tags:      []string{"infra", "aws"},
	}

	line := EncodeMemory(entry)
	assert.Contains(t, line, "tags=infra,aws")

	decoded, ok := DecodeMemory(line)
	assert.True(t, ok)
	assert.Equal(t, entry, decoded)
}

func TestDecodeMemorySkipsNonRecords(t *testing.T) {
	for _, line := range []string{
		"",
		"# Memories",
		"<!-- mnemo ledger: one record per line, append-only -->",
		"just some prose a human typed into the file",
		"- a bullet without brackets",
		"- [deadbeef] missing the category bracket <!-- meta:created=1 -->",
	} {
		_, ok := DecodeMemory(line)
		assert.False(t, ok, "line should not decode: %q", line)
	}
}

func TestDecodeMemoryUnknownCategory(t *testing.T) {
	decoded, ok := DecodeMemory("- [ab12cd34] [mood] feeling adventurous today <!-- meta:created=42 -->")
	assert.True(t, ok)
	assert.Equal(t, CategoryOther, decoded.Category)
	assert.Equal(t, "feeling adventurous today", decoded.Text)
}

func TestTaskRoundTrip(t *testing.T) {
	success := TaskLogEntry{
		ID:        "11aa22bb",
		Summary:   "refreshed the deployment manifests",
		Success:   true,
		CreatedAt: 1755000000000,
	}
	line := EncodeTask(success)
	assert.Equal(t, "- [11aa22bb] ✅ SUCCESS refreshed the deployment manifests <!-- meta:created=1755000000000 -->", line)

	decoded, ok := DecodeTask(line)
	assert.True(t, ok)
	assert.Equal(t, success, decoded)

	failure := TaskLogEntry{
		ID:         "33cc44dd",
		Summary:    "docker build timed out",
		Success:    false,
		CreatedAt:  1755000000001,
		DurationMS: 90000,
	}
	line = EncodeTask(failure)
	assert.Contains(t, line, "❌ FAILURE")
	assert.Contains(t, line, "duration=90000ms")

	decoded, ok = DecodeTask(line)
	assert.True(t, ok)
	assert.Equal(t, failure, decoded)
}

func TestRuleRoundTrip(t *testing.T) {
	rule := EvolutionRule{
		ID:        "55ee66ff",
		Rule:      `caution advised for tasks involving "docker" (3 prior failures)`,
		Source:    RuleSourceAuto,
		CreatedAt: 1755000000000,
	}

	line := EncodeRule(rule)
	decoded, ok := DecodeRule(line)
	assert.True(t, ok)
	assert.Equal(t, rule, decoded)

	manual := EvolutionRule{
		ID:        "77aa88bb",
		Rule:      "always run the smoke suite before tagging a release",
		Source:    RuleSourceManual,
		CreatedAt: 1755000000001,
	}
	decoded, ok = DecodeRule(EncodeRule(manual))
	assert.True(t, ok)
	assert.Equal(t, manual, decoded)
}

func TestNormalizeTextFlattensNewlines(t *testing.T) {
	assert.Equal(t, "one two three", normalizeText("one\ntwo\r\nthree"))
	assert.Equal(t, "kept as is", normalizeText("  kept as is  "))
	assert.Equal(t, "", normalizeText(" \n "))
}
