package metaapi

import "strings"

func toSet(nodes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		set[n] = struct{}{}
	}
	return set
}

// dedup returns the distinct members of nodes, preserving order.
func dedup(nodes []string) []string {
	seen := make(map[string]struct{}, len(nodes))
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// filterToSet returns the members of nodes present in set, preserving
// order, as a non-nil slice (an empty locations list is a legal
// response, not a missing one).
func filterToSet(nodes []string, set map[string]struct{}) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := set[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// distinct returns the distinct fingerprints in chunks, preserving
// first-occurrence order, so repair runs once per distinct fingerprint
// even when a file repeats a chunk.
func distinct(chunks []string) []string {
	return dedup(chunks)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinStrings(items []string, sep string) string {
	return strings.Join(items, sep)
}
