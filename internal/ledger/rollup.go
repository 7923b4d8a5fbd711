package ledger

import "sort"

// Weekly keeps the date columns whose day of month is one of days ("01", "08", ...), in
// ledger order. Columns that are not dates are ignored.
func Weekly(l Ledger, days []string) Ledger {
	want := make(map[string]bool, len(days))
	for _, d := range days {
		want[d] = true
	}
	var keep []string
	for _, d := range l.Dates {
		if _, ok := parseDate(d); ok && want[d[8:10]] {
			keep = append(keep, d)
		}
	}
	return l.Select(keep)
}

// Monthly keeps the latest date column of each month, oldest month first.
func Monthly(l Ledger) Ledger {
	latest := make(map[string]string)
	for _, d := range l.Dates {
		if _, ok := parseDate(d); !ok {
			continue
		}
		m := d[:7]
		if cur, ok := latest[m]; !ok || d > cur {
			latest[m] = d
		}
	}
	keep := make([]string, 0, len(latest))
	for _, d := range latest {
		keep = append(keep, d)
	}
	sort.Strings(keep)
	return l.Select(keep)
}
