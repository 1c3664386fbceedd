// File path: internal/prompt/extract.go
package prompt

import "strings"

// ExtractSQL cleans raw oracle output into candidate query text: markdown
// fences and leading commentary lines are stripped, interior lines joined.
// The result is still untrusted; the safety validator is the enforcement
// point.
func ExtractSQL(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && isFenceTag(rest[:nl]) {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		text = strings.TrimSpace(rest)
	}
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, trimmed)
	}
	// Joined with newlines so a trailing inline -- comment only ends its own
	// line, never the rest of the statement.
	return strings.Join(kept, "\n")
}

func isFenceTag(tag string) bool {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "sql", "sqlite":
		return true
	}
	return false
}
