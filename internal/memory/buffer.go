package memory

// Transcripts are bounded by an approximate token budget so the generation
// context stays a fixed size. Eviction drops oldest whole turns until the
// remaining turns fit; a turn is never truncated mid-record.

// estimateTokens approximates the token cost of a turn. Four characters per
// token is close enough for budgeting purposes.
func estimateTokens(t Turn) int {
	return len([]rune(t.Content))/4 + 1
}

// ClampToBudget returns the newest suffix of turns whose estimated token
// total fits within budget. A non-positive budget keeps everything.
func ClampToBudget(turns []Turn, budget int) []Turn {
	if budget <= 0 || len(turns) == 0 {
		return turns
	}
	total := 0
	for _, t := range turns {
		total += estimateTokens(t)
	}
	start := 0
	for total > budget && start < len(turns) {
		total -= estimateTokens(turns[start])
		start++
	}
	return turns[start:]
}
