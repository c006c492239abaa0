package domain

// WorkList is the deduplicated, ordered set of item identifiers one run (or
// one healed generation) still has to process. Immutable once captured; the
// loop consumes it through an advancing cursor.
type WorkList struct {
	RunID string   `json:"run_id"`
	Items []string `json:"items"`
}

// DedupeItems returns items with duplicates removed, preserving first-seen
// order.
func DedupeItems(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
