package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/ledger"
)

// RollupSource yields the daily ledger and its derived views as header-first tables.
type RollupSource interface {
	Rollup(ctx context.Context, kind string) ([][]string, error)
}

// Service produces standalone XLSX snapshots of the ledger, whatever store backs it.
type Service struct {
	source RollupSource
	cfg    common.LedgerConfig
	logger *slog.Logger
}

func NewService(source RollupSource, cfg common.LedgerConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cfg: cfg, logger: logger}
}

// ExportLedgerXLSX returns a workbook (as bytes) holding the summary, daily, weekly and
// monthly tabs. The daily tab is limited to the date window:
// If only from is provided -> from..today (inclusive).
// If only to is provided   -> beginning..to (inclusive).
// If neither is provided   -> every date.
func (s *Service) ExportLedgerXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate string
	if from != nil {
		fromDate = from.Format(ledger.DateLayout)
	}
	if to != nil {
		toDate = to.Format(ledger.DateLayout)
	}

	sheets := []struct {
		tab  string
		kind string
	}{
		{s.cfg.SummaryTab, "summary"},
		{s.cfg.DailyTab, "daily"},
		{s.cfg.WeeklyTab, "weekly"},
		{s.cfg.MonthlyTab, "monthly"},
	}

	f := excelize.NewFile()
	defer f.Close()
	rows := 0
	for i, sh := range sheets {
		table, err := s.source.Rollup(ctx, sh.kind)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", sh.kind, err)
		}
		if sh.kind == "daily" {
			table = window(table, fromDate, toDate)
			rows = len(table) - 1
		}
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.tab); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.tab); err != nil {
			return nil, err
		}
		if err := writeTable(f, sh.tab, table); err != nil {
			return nil, fmt.Errorf("write %s: %w", sh.tab, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"from", fromDate,
		"to", toDate,
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// window keeps the nickname column and the date columns within [from, to]. Empty bounds
// are open.
func window(table [][]string, from, to string) [][]string {
	if len(table) == 0 || (from == "" && to == "") {
		return table
	}
	l := ledger.FromTable(table)
	var dates []string
	for _, d := range l.Dates {
		if (from == "" || d >= from) && (to == "" || d <= to) {
			dates = append(dates, d)
		}
	}
	return l.Select(dates).Table()
}

// writeTable stores counts as numbers so the workbook sorts and sums them.
func writeTable(f *excelize.File, sheet string, table [][]string) error {
	for r, cells := range table {
		for c, v := range cells {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			var value any = v
			if r > 0 && c > 0 {
				if reading := ledger.ParseReading(v); reading.Set {
					value = reading.Count
				}
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 22) // nickname
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, XSplit: 1, YSplit: 1, TopLeftCell: "B2", ActivePane: "bottomRight"})
	return nil
}
