// Package util provides small string helpers for scraped game pages.
package util

import (
	"fmt"
	"strings"
)

// ExtractJSVar returns the literal assigned to `var name = ...` inside a
// scraped script body. Object and array values are matched with a depth
// counter that honors string literals, so braces and semicolons inside
// strings do not end the scan early.
func ExtractJSVar(page, name string) (string, error) {
	marker := "var " + name
	search := page
	for {
		i := strings.Index(search, marker)
		if i < 0 {
			return "", fmt.Errorf("js var %q not found", name)
		}
		rest := search[i+len(marker):]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		if strings.HasPrefix(trimmed, "=") {
			value := strings.TrimLeft(trimmed[1:], " \t\r\n")
			return extractJSValue(value, name)
		}
		// Matched a longer identifier, keep looking.
		search = rest
	}
}

func extractJSValue(s, name string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("js var %q has no value", name)
	}

	open := s[0]
	var closer byte
	switch open {
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		end := strings.IndexByte(s, ';')
		if end < 0 {
			return "", fmt.Errorf("js var %q is not terminated", name)
		}
		return strings.TrimSpace(s[:end]), nil
	}

	depth := 0
	inString := byte(0)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString != 0 {
			switch c {
			case '\\':
				i++
			case inString:
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return s[:i+1], nil
			}
		}
	}
	return "", fmt.Errorf("js var %q is not terminated", name)
}

// Dedupe returns ids with duplicates removed, preserving first-seen order.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
