package tokens

// EstimateTokens approximates the token count of text at ~4 chars per
// token. Good enough for context budgeting; exact counts come back from
// the API per call.
func EstimateTokens(text string) int {
	return len(text) / 4
}
