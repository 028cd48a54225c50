package utils

// Pictograph blocks: emoji and symbol ranges that read as decoration rather
// than content. Text drowning in them is usually generated output, not
// something a person said about themselves.
var pictographRanges = [][2]rune{
	{0x1F300, 0x1FAFF}, // emoji, transport, supplemental symbols
	{0x2600, 0x27BF},   // misc symbols and dingbats
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x2B00, 0x2BFF},   // misc symbols and arrows
}

// CountPictographs counts the runes of s that fall in a pictograph block.
func CountPictographs(s string) int {
	count := 0
	for _, r := range s {
		for _, block := range pictographRanges {
			if r >= block[0] && r <= block[1] {
				count++
				break
			}
		}
	}
	return count
}
