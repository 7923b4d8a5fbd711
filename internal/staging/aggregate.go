// Package staging holds the per-session table of recognized entries between analysis and
// commit, and the review file the operator edits in between.
package staging

import (
	"sort"

	"github.com/joseph-ayodele/fan-ledger/internal/extract"
)

// Aggregate keeps the highest fan count seen for each nickname. The result is ordered by
// fan count descending; equal counts keep their input order.
func Aggregate(entries []extract.Entry) []extract.Entry {
	sorted := make([]extract.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].FanCount > sorted[j].FanCount })

	seen := make(map[string]struct{}, len(sorted))
	out := make([]extract.Entry, 0, len(sorted))
	for _, e := range sorted {
		if _, dup := seen[e.Nickname]; dup {
			continue
		}
		seen[e.Nickname] = struct{}{}
		out = append(out, e)
	}
	return out
}
