package channels

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxMessageDiscord is Discord's per-message character limit.
	MaxMessageDiscord = 2000

	// MaxMessageTelegram is Telegram's per-message character limit.
	MaxMessageTelegram = 4096

	// MaxMessageDefault is used for channels without a declared limit.
	MaxMessageDefault = 4000
)

// SplitMessage splits text into chunks of at most maxLen characters (runes).
// Break points are chosen by priority: blank line, line end, word boundary,
// and only then a hard cut. Break points in the first half of a chunk are
// ignored so chunks do not get too small.
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = MaxMessageDefault
	}
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	remain := text
	for utf8.RuneCountInString(remain) > maxLen {
		segment := truncateRunes(remain, maxLen)
		cut := splitPoint(segment)
		if cut <= 0 {
			cut = len(segment)
		}
		if chunk := strings.TrimRight(remain[:cut], " \n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		remain = strings.TrimLeft(remain[cut:], " \n")
	}
	if remain != "" {
		chunks = append(chunks, remain)
	}
	return chunks
}

// splitPoint returns the byte offset just past the best break in segment, or
// -1 if none lies in its second half.
func splitPoint(segment string) int {
	half := len(segment) / 2
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(segment, sep); idx >= 0 && idx > half {
			return idx + len(sep)
		}
	}
	return -1
}

// truncateRunes returns the longest prefix of s holding at most n runes.
func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
