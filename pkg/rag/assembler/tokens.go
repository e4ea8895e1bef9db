package assembler

import "unicode/utf8"

type TokenCounter interface {
	Count(text string) int
}

// EstimateCounter approximates tokens as runes / CharsPerToken, rounded up.
// It overestimates English text and never undercounts an empty string.
type EstimateCounter struct {
	CharsPerToken int
}

func NewEstimateCounter() EstimateCounter {
	return EstimateCounter{CharsPerToken: 4}
}

func (c EstimateCounter) Count(text string) int {
	per := c.CharsPerToken
	if per <= 0 {
		per = 4
	}
	n := utf8.RuneCountInString(text)
	return (n + per - 1) / per
}
