package parse

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// firstTag returns the first tag with the given name and at least one value.
func firstTag(tags [][]string, name string) ([]string, bool) {
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag, true
		}
	}
	return nil, false
}

// lastTag returns the last tag with the given name and at least one value.
func lastTag(tags [][]string, name string) ([]string, bool) {
	for i := len(tags) - 1; i >= 0; i-- {
		if tag := tags[i]; len(tag) >= 2 && tag[0] == name {
			return tag, true
		}
	}
	return nil, false
}

func tagValue(tags [][]string, name string) string {
	tag, ok := firstTag(tags, name)
	if !ok {
		return ""
	}
	return strings.TrimSpace(tag[1])
}

func hasTag(tags [][]string, name string) bool {
	for _, tag := range tags {
		if len(tag) >= 1 && tag[0] == name {
			return true
		}
	}
	return false
}

// rootReference picks the "e" tag marked root, falling back to the first "e" tag.
func rootReference(tags [][]string) string {
	for _, tag := range tags {
		if len(tag) >= 4 && tag[0] == "e" && tag[3] == "root" && tag[1] != "" {
			return tag[1]
		}
	}
	for _, tag := range tags {
		if len(tag) >= 2 && tag[0] == "e" && tag[1] != "" {
			return tag[1]
		}
	}
	return ""
}

// positiveInt parses a strictly positive base 10 integer.
func positiveInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
