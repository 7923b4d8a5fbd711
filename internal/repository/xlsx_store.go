package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

const defaultSheet = "Sheet1"

// XLSXStore keeps each tab as a worksheet of one workbook file. Every call reopens the
// file so edits made by other processes between commits are seen.
type XLSXStore struct {
	path   string
	mu     sync.Mutex
	lock   *commitLock
	logger *slog.Logger
}

func NewXLSXStore(path string, logger *slog.Logger) *XLSXStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXStore{path: path, lock: newCommitLock(path + ".lock"), logger: logger}
}

func (s *XLSXStore) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		return f, false, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	return nil, false, fmt.Errorf("open workbook %s: %w", s.path, err)
}

// view runs fn on a read-only copy of the workbook.
func (s *XLSXStore) view(fn func(f *excelize.File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, fresh, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()
	if fresh {
		return fn(nil)
	}
	return fn(f)
}

// update runs fn and saves the workbook when fn succeeds.
func (s *XLSXStore) update(fn func(f *excelize.File) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, _, err := s.open()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return err
	}
	if err := f.SaveAs(s.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", s.path, err)
	}
	return nil
}

func hasSheet(f *excelize.File, tab string) bool {
	if f == nil {
		return false
	}
	idx, err := f.GetSheetIndex(tab)
	return err == nil && idx >= 0
}

func (s *XLSXStore) Tabs(ctx context.Context) ([]string, error) {
	var tabs []string
	err := s.view(func(f *excelize.File) error {
		if f == nil {
			return nil
		}
		for _, name := range f.GetSheetList() {
			if name == defaultSheet && isBlankSheet(f, name) {
				continue
			}
			tabs = append(tabs, name)
		}
		return nil
	})
	return tabs, err
}

func isBlankSheet(f *excelize.File, tab string) bool {
	rows, err := f.GetRows(tab)
	return err == nil && len(rows) == 0
}

func (s *XLSXStore) EnsureTab(ctx context.Context, tab string) (bool, error) {
	created := false
	err := s.update(func(f *excelize.File) error {
		var err error
		created, err = ensureSheet(f, tab)
		return err
	})
	if created {
		s.logger.Info("repository.xlsx.tab_created", "tab", tab, "path", s.path)
	}
	return created, err
}

// ensureSheet reuses the blank default sheet of a new workbook for the first tab.
func ensureSheet(f *excelize.File, tab string) (bool, error) {
	if hasSheet(f, tab) {
		return false, nil
	}
	list := f.GetSheetList()
	if len(list) == 1 && list[0] == defaultSheet && isBlankSheet(f, defaultSheet) {
		if err := f.SetSheetName(defaultSheet, tab); err != nil {
			return false, fmt.Errorf("rename default sheet: %w", err)
		}
		return true, nil
	}
	if _, err := f.NewSheet(tab); err != nil {
		return false, fmt.Errorf("create sheet %s: %w", tab, err)
	}
	return true, nil
}

func (s *XLSXStore) ReadAll(ctx context.Context, tab string) ([][]string, error) {
	var rows [][]string
	err := s.view(func(f *excelize.File) error {
		if !hasSheet(f, tab) {
			return common.TabMissing(tab)
		}
		var err error
		rows, err = f.GetRows(tab)
		if err != nil {
			return fmt.Errorf("read %s: %w", tab, err)
		}
		return nil
	})
	return rows, err
}

func (s *XLSXStore) ReadColumn(ctx context.Context, tab string, col int) ([]string, error) {
	if err := validPos(1, col); err != nil {
		return nil, err
	}
	rows, err := s.ReadAll(ctx, tab)
	if err != nil {
		return nil, err
	}
	return column(rows, col), nil
}

func column(rows [][]string, col int) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		if col-1 < len(r) {
			out[i] = r[col-1]
		}
	}
	return out
}

func (s *XLSXStore) Clear(ctx context.Context, tab string) error {
	return s.update(func(f *excelize.File) error {
		if _, err := ensureSheet(f, tab); err != nil {
			return err
		}
		rows, err := f.GetRows(tab)
		if err != nil {
			return fmt.Errorf("read %s: %w", tab, err)
		}
		for r := len(rows); r >= 1; r-- {
			if err := f.RemoveRow(tab, r); err != nil {
				return fmt.Errorf("clear %s row %d: %w", tab, r, err)
			}
		}
		return nil
	})
}

func (s *XLSXStore) Write(ctx context.Context, tab string, rows [][]string) error {
	return s.update(func(f *excelize.File) error {
		if _, err := ensureSheet(f, tab); err != nil {
			return err
		}
		for i, r := range rows {
			if err := setRow(f, tab, i+1, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func setRow(f *excelize.File, tab string, rowNo int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = cellValue(c)
	}
	if err := f.SetSheetRow(tab, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", tab, rowNo, err)
	}
	return nil
}

func (s *XLSXStore) AppendRow(ctx context.Context, tab string, row []string) error {
	return s.update(func(f *excelize.File) error {
		if !hasSheet(f, tab) {
			return common.TabMissing(tab)
		}
		rows, err := f.GetRows(tab)
		if err != nil {
			return fmt.Errorf("read %s: %w", tab, err)
		}
		return setRow(f, tab, len(rows)+1, row)
	})
}

func (s *XLSXStore) UpdateCell(ctx context.Context, tab string, row, col int, value string) error {
	if err := validPos(row, col); err != nil {
		return err
	}
	return s.update(func(f *excelize.File) error {
		if !hasSheet(f, tab) {
			return common.TabMissing(tab)
		}
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(tab, cell, cellValue(value))
	})
}

func (s *XLSXStore) DeleteRows(ctx context.Context, tab string, rows ...int) error {
	if len(rows) == 0 {
		return nil
	}
	ordered := append([]int(nil), rows...)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))
	return s.update(func(f *excelize.File) error {
		if !hasSheet(f, tab) {
			return common.TabMissing(tab)
		}
		for i, r := range ordered {
			if i > 0 && ordered[i-1] == r {
				continue
			}
			if err := validPos(r, 1); err != nil {
				return err
			}
			if err := f.RemoveRow(tab, r); err != nil {
				return fmt.Errorf("delete %s row %d: %w", tab, r, err)
			}
		}
		return nil
	})
}

func (s *XLSXStore) Lock(ctx context.Context) (func() error, error) {
	return s.lock.acquire(ctx)
}

func (s *XLSXStore) Close() error { return nil }
