package workspace

// EstimateTokens approximates the token cost of a byte count as
// ceil(bytes * 0.75). The model tokenizer is never consulted; callers must
// treat the estimate as a soft limit, not a guarantee.
func EstimateTokens(byteSize int) int {
	if byteSize <= 0 {
		return 0
	}
	return (byteSize*3 + 3) / 4
}
