package filter

import "strings"

// Combine merges the global filter with a source's own filter text into the
// criteria handed to discovery and scoring. Each non-empty part is labelled;
// when both are empty the result is empty.
func Combine(global, source string) string {
	global = strings.TrimSpace(global)
	source = strings.TrimSpace(source)

	switch {
	case global == "" && source == "":
		return ""
	case source == "":
		return "General criteria:\n" + global
	case global == "":
		return "Source-specific criteria:\n" + source
	}
	return "General criteria:\n" + global + "\n\nSource-specific criteria:\n" + source
}
