package guardrail

import "strings"

// Match reports whether path matches a shell-style glob pattern. Both are
// interpreted as slash-separated relative paths. `*` and `?` match within a
// single path segment; a `**` segment matches zero or more whole segments.
// Matching is case-sensitive regardless of the host filesystem.
func Match(pattern, path string) bool {
	return matchSegments(splitPath(pattern), splitPath(path))
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}

	if pattern[0] == "**" {
		// Zero segments consumed, or one segment consumed and retry.
		if matchSegments(pattern[1:], path) {
			return true
		}
		return len(path) > 0 && matchSegments(pattern, path[1:])
	}

	if len(path) == 0 {
		return false
	}
	if !matchSegment(pattern[0], path[0]) {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}

// matchSegment matches a single segment with `*` and `?` wildcards.
// Character classes are not supported; a malformed pattern simply fails to
// match rather than erroring, keeping Validate total.
func matchSegment(pattern, segment string) bool {
	// Iterative wildcard matching with backtracking on the last `*`.
	pi, si := 0, 0
	starPi, starSi := -1, 0

	for si < len(segment) {
		switch {
		case pi < len(pattern) && (pattern[pi] == byte(segment[si]) || pattern[pi] == '?'):
			pi++
			si++
		case pi < len(pattern) && pattern[pi] == '*':
			starPi, starSi = pi, si
			pi++
		case starPi >= 0:
			pi = starPi + 1
			starSi++
			si = starSi
		default:
			return false
		}
	}

	for pi < len(pattern) && pattern[pi] == '*' {
		pi++
	}
	return pi == len(pattern)
}
