package ledger

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/fan-ledger/internal/extract"
)

// AuditKind tells whether a merge added a member or changed a reading.
type AuditKind string

const (
	AuditCreated AuditKind = "created"
	AuditUpdated AuditKind = "updated"
)

// AuditEntry records one change a merge made to the ledger.
type AuditEntry struct {
	Nickname string
	Date     string
	Previous *int64
	New      int64
	Kind     AuditKind
}

func (a AuditEntry) String() string {
	newVal := humanize.Comma(a.New)
	if a.Kind == AuditCreated {
		return fmt.Sprintf("created %s: %s (new) -> %s", a.Nickname, a.Date, newVal)
	}
	prev := "(none)"
	if a.Previous != nil {
		prev = humanize.Comma(*a.Previous)
	}
	return fmt.Sprintf("updated %s: %s %s -> %s", a.Nickname, a.Date, prev, newVal)
}

// Resolver maps a staged nickname onto one already in the ledger.
type Resolver interface {
	Resolve(name string, existing []string) (string, bool)
}

// Merge writes the staged entries into the today column and returns the new ledger with
// one audit entry per actual change. Names are resolved against the nicknames l held
// before the merge. The input ledger is not modified.
func Merge(l Ledger, staged []extract.Entry, today string, resolver Resolver) (Ledger, []AuditEntry) {
	var audit []AuditEntry

	if l.Empty() {
		out := Ledger{Dates: []string{today}}
		for _, e := range staged {
			out.Rows = append(out.Rows, Row{Nickname: e.Nickname, Readings: []Reading{Count(e.FanCount)}})
			audit = append(audit, AuditEntry{Nickname: e.Nickname, Date: today, New: e.FanCount, Kind: AuditCreated})
		}
		return out, audit
	}

	out := l.Clone()
	col := out.DateIndex(today)
	if col < 0 {
		out.Dates = append(out.Dates, today)
		col = len(out.Dates) - 1
	}
	for i := range out.Rows {
		for len(out.Rows[i].Readings) < len(out.Dates) {
			out.Rows[i].Readings = append(out.Rows[i].Readings, Reading{})
		}
	}

	// Rows appended below are never match candidates, so two new near-identical names
	// each get their own row.
	existing := l.Nicknames()
	for _, e := range staged {
		target, ok := resolver.Resolve(e.Nickname, existing)
		row := -1
		if ok {
			row = rowIndex(out, target)
		}
		if row < 0 {
			readings := make([]Reading, len(out.Dates))
			readings[col] = Count(e.FanCount)
			out.Rows = append(out.Rows, Row{Nickname: e.Nickname, Readings: readings})
			audit = append(audit, AuditEntry{Nickname: e.Nickname, Date: today, New: e.FanCount, Kind: AuditCreated})
			continue
		}

		prev := out.Rows[row].Readings[col]
		out.Rows[row].Readings[col] = Count(e.FanCount)
		if prev.Set && prev.Count == e.FanCount {
			continue
		}
		entry := AuditEntry{Nickname: target, Date: today, New: e.FanCount, Kind: AuditUpdated}
		if prev.Set {
			p := prev.Count
			entry.Previous = &p
		}
		audit = append(audit, entry)
	}
	return out, audit
}

func rowIndex(l Ledger, nickname string) int {
	for i, r := range l.Rows {
		if r.Nickname == nickname {
			return i
		}
	}
	return -1
}
