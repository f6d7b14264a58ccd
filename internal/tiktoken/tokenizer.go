// Package tiktoken approximates token counts. The estimates feed Prometheus
// counters only; the API response usage field is never derived from them.
package tiktoken

import (
	"math"
	"unicode"
)

// EstimateTextTokens approximates tokens as roughly one per ASCII word or
// punctuation mark and 1.5 per non-ASCII rune (CJK-heavy text tokenizes
// denser than Latin).
func EstimateTextTokens(text string) int {
	if text == "" {
		return 0
	}

	var tokens float64
	inWord := false

	for _, r := range text {
		if r < 128 {
			if unicode.IsLetter(r) || unicode.IsNumber(r) {
				inWord = true
			} else {
				if inWord {
					tokens++
					inWord = false
				}
				if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
					tokens++
				}
			}
			continue
		}

		if inWord {
			tokens++
			inWord = false
		}
		tokens += 1.5
	}

	if inWord {
		tokens++
	}

	return int(math.Round(tokens))
}
