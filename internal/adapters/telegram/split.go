package telegram

import "strings"

const messageLimit = 4096

// SplitMessage breaks text into chunks of at most limit runes, preferring
// line boundaries. A non-positive limit means the Telegram message limit.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = messageLimit
	}
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		if nl := lastNewline(runes[:limit]); nl > 0 {
			cut = nl
		}
		if chunk := strings.Trim(string(runes[:cut]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		runes = trimLeadingNewlines(runes[cut:])
	}
	if chunk := strings.Trim(string(runes), "\n"); chunk != "" {
		parts = append(parts, chunk)
	}
	return parts
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i > 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

func trimLeadingNewlines(runes []rune) []rune {
	for len(runes) > 0 && runes[0] == '\n' {
		runes = runes[1:]
	}
	return runes
}
