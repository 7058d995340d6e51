package markup

import (
	"regexp"
	"slices"
	"strings"
)

var propertyLineRe = regexp.MustCompile(`^[ \t]*([A-Za-z][A-Za-z0-9_-]*)::(?:[ \t]|$)`)

// PropertyKey returns the key of a `key:: value` property line, or empty
// string when the line is ordinary text.
func PropertyKey(line string) string {
	m := propertyLineRe.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

// StripProperties removes every `key:: value` line from raw.
func StripProperties(raw string) string {
	return stripLines(raw, func(key string) bool { return key != "" })
}

// StripKeys removes property lines whose key is one of keys.
func StripKeys(raw string, keys ...string) string {
	return stripLines(raw, func(key string) bool {
		return key != "" && slices.Contains(keys, key)
	})
}

func stripLines(raw string, drop func(key string) bool) string {
	lines := strings.Split(raw, "\n")
	out := lines[:0]
	for _, ln := range lines {
		if drop(PropertyKey(ln)) {
			continue
		}
		out = append(out, ln)
	}
	return strings.Join(out, "\n")
}

// GetProperty returns the value of the `key:: value` line in raw, or empty
// string when absent.
func GetProperty(raw, key string) string {
	for _, ln := range strings.Split(raw, "\n") {
		if PropertyKey(ln) == key {
			_, value, _ := strings.Cut(ln, "::")
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// SetProperty replaces the value of an existing `key:: value` line, or
// appends one when absent.
func SetProperty(raw, key, value string) string {
	lines := strings.Split(raw, "\n")
	for i, ln := range lines {
		if PropertyKey(ln) == key {
			lines[i] = key + ":: " + value
			return strings.Join(lines, "\n")
		}
	}
	if raw == "" {
		return key + ":: " + value
	}
	return strings.TrimRight(raw, "\n") + "\n" + key + ":: " + value
}

// IsContentful reports whether raw still carries text once every property
// line is stripped. Blocks that fail this check are excluded from the
// shared document.
func IsContentful(raw string) bool {
	return strings.TrimSpace(StripProperties(raw)) != ""
}
