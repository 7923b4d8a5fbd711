// Package ledger models the per-date fan-count ledger and derives everything written
// from it: the merged daily table with its audit trail, the weekly and monthly rollups and
// the main summary.
package ledger

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/fan-ledger/constants"
)

// DateLayout is the ledger's date column format.
const DateLayout = "2006-01-02"

// Reading is one cell of the ledger. An unset reading is blank, which is distinct from a
// count of zero. Raw keeps a stored cell that did not parse as a count.
type Reading struct {
	Count int64
	Set   bool
	Raw   string
}

func Count(n int64) Reading { return Reading{Count: n, Set: true} }

// String renders the cell as stored.
func (r Reading) String() string {
	if r.Set {
		return strconv.FormatInt(r.Count, 10)
	}
	return r.Raw
}

// ParseReading accepts thousands separators and integral floats; anything else is kept raw.
func ParseReading(cell string) Reading {
	s := strings.TrimSpace(cell)
	if s == "" {
		return Reading{}
	}
	clean := strings.ReplaceAll(s, ",", "")
	if n, err := strconv.ParseInt(clean, 10, 64); err == nil {
		return Count(n)
	}
	if f, err := strconv.ParseFloat(clean, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		return Count(int64(f))
	}
	return Reading{Raw: cell}
}

// Row is one member's readings aligned to Ledger.Dates.
type Row struct {
	Nickname string
	Readings []Reading
}

// Ledger is the daily table: a nickname column followed by one column per date.
type Ledger struct {
	Dates []string
	Rows  []Row
}

// Empty reports whether the stored table had no header at all.
func (l Ledger) Empty() bool { return len(l.Dates) == 0 && len(l.Rows) == 0 }

// FromTable builds a ledger from header+rows cell values. The first header cell is always
// treated as the nickname column; short rows are padded with blanks.
func FromTable(table [][]string) Ledger {
	if len(table) == 0 {
		return Ledger{}
	}
	var l Ledger
	if len(table[0]) > 1 {
		l.Dates = make([]string, len(table[0])-1)
		for i, h := range table[0][1:] {
			l.Dates[i] = strings.TrimSpace(h)
		}
	}
	for _, cells := range table[1:] {
		if len(cells) == 0 {
			continue
		}
		row := Row{Nickname: strings.TrimSpace(cells[0]), Readings: make([]Reading, len(l.Dates))}
		for i := range l.Dates {
			if i+1 < len(cells) {
				row.Readings[i] = ParseReading(cells[i+1])
			}
		}
		l.Rows = append(l.Rows, row)
	}
	return l
}

// Table renders the ledger as header+rows cell values.
func (l Ledger) Table() [][]string {
	out := make([][]string, 0, len(l.Rows)+1)
	header := append([]string{constants.NicknameHeader}, l.Dates...)
	out = append(out, header)
	for _, r := range l.Rows {
		cells := make([]string, len(l.Dates)+1)
		cells[0] = r.Nickname
		for i, rd := range r.Readings {
			if i < len(l.Dates) {
				cells[i+1] = rd.String()
			}
		}
		out = append(out, cells)
	}
	return out
}

// Nicknames returns the nickname column in row order.
func (l Ledger) Nicknames() []string {
	names := make([]string, len(l.Rows))
	for i, r := range l.Rows {
		names[i] = r.Nickname
	}
	return names
}

// DateIndex returns the column index of date, or -1.
func (l Ledger) DateIndex(date string) int {
	for i, d := range l.Dates {
		if d == date {
			return i
		}
	}
	return -1
}

// Clone deep-copies the ledger.
func (l Ledger) Clone() Ledger {
	c := Ledger{Dates: append([]string(nil), l.Dates...)}
	if l.Rows != nil {
		c.Rows = make([]Row, len(l.Rows))
		for i, r := range l.Rows {
			c.Rows[i] = Row{Nickname: r.Nickname, Readings: append([]Reading(nil), r.Readings...)}
		}
	}
	return c
}

// Select keeps the given date columns in the order given.
func (l Ledger) Select(dates []string) Ledger {
	idx := make([]int, 0, len(dates))
	out := Ledger{Dates: make([]string, 0, len(dates))}
	for _, d := range dates {
		if i := l.DateIndex(d); i >= 0 {
			idx = append(idx, i)
			out.Dates = append(out.Dates, d)
		}
	}
	out.Rows = make([]Row, len(l.Rows))
	for r, row := range l.Rows {
		readings := make([]Reading, len(idx))
		for j, i := range idx {
			readings[j] = row.Readings[i]
		}
		out.Rows[r] = Row{Nickname: row.Nickname, Readings: readings}
	}
	return out
}

func parseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	return t, err == nil
}

// Today formats now in loc as a ledger date.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DateLayout)
}
