package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

// Sheets is a workbook of named tabs holding string cells. Rows and columns are 1-based.
// Reads of a tab that does not exist fail with common.ErrTabMissing.
type Sheets interface {
	Tabs(ctx context.Context) ([]string, error)
	// EnsureTab creates tab when absent and reports whether it did.
	EnsureTab(ctx context.Context, tab string) (bool, error)
	ReadAll(ctx context.Context, tab string) ([][]string, error)
	ReadColumn(ctx context.Context, tab string, col int) ([]string, error)
	Clear(ctx context.Context, tab string) error
	// Write stores rows starting at A1 over whatever is there.
	Write(ctx context.Context, tab string, rows [][]string) error
	AppendRow(ctx context.Context, tab string, row []string) error
	UpdateCell(ctx context.Context, tab string, row, col int, value string) error
	DeleteRows(ctx context.Context, tab string, rows ...int) error
	// Lock serializes ledger commits across goroutines and processes.
	Lock(ctx context.Context) (func() error, error)
	Close() error
}

// Replace clears tab and writes rows into it.
func Replace(ctx context.Context, s Sheets, tab string, rows [][]string) error {
	if err := s.Clear(ctx, tab); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	if err := s.Write(ctx, tab, rows); err != nil {
		return fmt.Errorf("write %s: %w", tab, err)
	}
	return nil
}

// commitLock pairs an in-process semaphore with an optional cross-process file lock;
// a single flock.Flock is re-entrant within one process.
type commitLock struct {
	sem  chan struct{}
	file *flock.Flock
}

func newCommitLock(path string) *commitLock {
	l := &commitLock{sem: make(chan struct{}, 1)}
	if path != "" {
		l.file = flock.New(path)
	}
	return l
}

func (l *commitLock) acquire(ctx context.Context) (func() error, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire commit lock: %w", ctx.Err())
	}
	if l.file == nil {
		return func() error { <-l.sem; return nil }, nil
	}
	ok, err := l.file.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !ok {
		<-l.sem
		if err == nil {
			err = common.ErrConflict
		}
		return nil, fmt.Errorf("acquire lock file %s: %w", l.file.Path(), err)
	}
	return func() error {
		defer func() { <-l.sem }()
		return l.file.Unlock()
	}, nil
}

// cellValue stores integer-looking strings as numbers so spreadsheets can sum them;
// leading zeros stay text.
func cellValue(s string) any {
	if s == "" {
		return ""
	}
	if len(s) > 1 && s[0] == '0' {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func validPos(row, col int) error {
	if row < 1 || col < 1 {
		return common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("cell position %d,%d", row, col), common.ErrInvalidInput)
	}
	return nil
}
