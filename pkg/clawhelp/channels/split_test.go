package channels

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitMessage_ShortText(t *testing.T) {
	t.Parallel()
	got := SplitMessage("hello", 100)
	if len(got) != 1 || got[0] != "hello" {
		t.Errorf("expected [hello], got %v", got)
	}
}

func TestSplitMessage_EmptyText(t *testing.T) {
	t.Parallel()
	if got := SplitMessage("", 100); got != nil {
		t.Errorf("expected nil for empty, got %v", got)
	}
}

func TestSplitMessage_DefaultMaxLen(t *testing.T) {
	t.Parallel()
	if got := SplitMessage("short", 0); len(got) != 1 {
		t.Errorf("maxLen 0 should use default, got %d chunks", len(got))
	}
	if got := SplitMessage("short", -1); len(got) != 1 {
		t.Errorf("maxLen -1 should use default, got %d chunks", len(got))
	}
}

func TestSplitMessage_ParagraphBoundary(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 30) + "\n\n" + strings.Repeat("b", 30)
	got := SplitMessage(text, 40)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(got), got)
	}
	if got[0] != strings.Repeat("a", 30) || got[1] != strings.Repeat("b", 30) {
		t.Errorf("unexpected chunks %q", got)
	}
}

func TestSplitMessage_LineBoundary(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("a", 30) + "\n" + strings.Repeat("b", 30)
	got := SplitMessage(text, 40)
	if len(got) != 2 {
		t.Errorf("expected split at line, got %d chunks", len(got))
	}
}

func TestSplitMessage_HardSplit(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 100)
	got := SplitMessage(text, 30)
	if len(got) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(got))
	}
	if strings.Join(got, "") != text {
		t.Error("hard split must not lose characters")
	}
}

func TestSplitMessage_RespectsRunes(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("命令", 50)
	got := SplitMessage(text, 30)
	for i, c := range got {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c); n > 30 {
			t.Errorf("chunk %d has %d runes, want <= 30", i, n)
		}
	}
	if strings.Join(got, "") != text {
		t.Error("split must not lose characters")
	}
}

func TestSplitMessage_HelpListKeepsLines(t *testing.T) {
	t.Parallel()
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "1. /command - some description")
	}
	got := SplitMessage(strings.Join(lines, "\n"), MaxMessageDiscord)
	if len(got) < 2 {
		t.Fatalf("expected several chunks, got %d", len(got))
	}
	for _, c := range got {
		for _, l := range strings.Split(c, "\n") {
			if l != "1. /command - some description" {
				t.Fatalf("line was cut: %q", l)
			}
		}
	}
}
