package ledger

import (
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/fan-ledger/constants"
)

// SummaryRow is one line of the main summary tab.
type SummaryRow struct {
	Nickname string `json:"nickname"`
	Current  int64  `json:"current"`
	Month    int64  `json:"month"`
}

// Summarize derives each member's latest count and gain within today's month. The gain is
// measured from the last reading before the month, or from the first reading inside it
// when the member has no earlier reading.
func Summarize(l Ledger, today string) []SummaryRow {
	month := ""
	if len(today) >= 7 {
		month = today[:7]
	}
	type col struct {
		date string
		idx  int
	}
	var cols []col
	for i, d := range l.Dates {
		if _, ok := parseDate(d); ok {
			cols = append(cols, col{d, i})
		}
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].date < cols[j].date })

	out := make([]SummaryRow, 0, len(l.Rows))
	for _, r := range l.Rows {
		var (
			current           int64
			baseline, inMonth *int64
		)
		for _, c := range cols {
			if c.idx >= len(r.Readings) || !r.Readings[c.idx].Set {
				continue
			}
			v := r.Readings[c.idx].Count
			current = v
			switch {
			case c.date[:7] < month:
				baseline = &v
			case c.date[:7] == month:
				if baseline == nil {
					baseline = &v
				}
				inMonth = &v
			}
		}
		row := SummaryRow{Nickname: r.Nickname, Current: current}
		if inMonth != nil {
			row.Month = *inMonth - *baseline
		}
		out = append(out, row)
	}
	return out
}

// SummaryTable renders summary rows with the main summary header.
func SummaryTable(rows []SummaryRow) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, []string{constants.NicknameHeader, constants.HeaderCurrentFans, constants.HeaderMonthFans})
	for _, r := range rows {
		out = append(out, []string{r.Nickname, strconv.FormatInt(r.Current, 10), strconv.FormatInt(r.Month, 10)})
	}
	return out
}

// ParseSummary reads the main summary tab by header name. Missing or unparseable counts
// read as 0.
func ParseSummary(table [][]string) []SummaryRow {
	if len(table) == 0 {
		return nil
	}
	nameCol, curCol, monthCol := 0, -1, -1
	for i, h := range table[0] {
		switch strings.TrimSpace(h) {
		case constants.NicknameHeader:
			nameCol = i
		case constants.HeaderCurrentFans:
			curCol = i
		case constants.HeaderMonthFans:
			monthCol = i
		}
	}
	cell := func(cells []string, i int) int64 {
		if i < 0 || i >= len(cells) {
			return 0
		}
		r := ParseReading(cells[i])
		if !r.Set {
			return 0
		}
		return r.Count
	}
	out := make([]SummaryRow, 0, len(table)-1)
	for _, cells := range table[1:] {
		if nameCol >= len(cells) {
			continue
		}
		out = append(out, SummaryRow{
			Nickname: cells[nameCol],
			Current:  cell(cells, curCol),
			Month:    cell(cells, monthCol),
		})
	}
	return out
}

// Progress is a member's monthly gain against the quota.
type Progress struct {
	Percent   float64 `json:"percent"`
	Done      bool    `json:"done"`
	Remaining float64 `json:"remaining_percent"`
	Shortfall int64   `json:"shortfall"`
}

func QuotaProgress(month, target int64) Progress {
	if target <= 0 {
		return Progress{Percent: 100, Done: true}
	}
	pct := float64(month) / float64(target) * 100
	p := Progress{Percent: pct, Done: pct >= 100}
	if !p.Done {
		p.Remaining = 100 - pct
		p.Shortfall = target - month
	}
	return p
}
