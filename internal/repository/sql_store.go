package repository

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

const (
	tabsTable  = "sheet_tabs"
	cellsTable = "sheet_cells"

	// cells per INSERT statement, well under the bind-parameter limits of both backends
	insertBatch = 500
)

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS sheet_tabs (
		name VARCHAR(255) NOT NULL PRIMARY KEY,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sheet_cells (
		tab VARCHAR(255) NOT NULL,
		row_no INTEGER NOT NULL,
		col_no INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (tab, row_no, col_no)
	)`,
}

// SQLStore keeps tabs as sparse cell rows in a SQL database, SQLite or Postgres.
type SQLStore struct {
	drv    *entsql.Driver
	pool   *pgxpool.Pool
	lock   *commitLock
	logger *slog.Logger
}

type cell struct {
	row, col int
	value    string
}

// NewSQLStore creates the schema when needed. pool is only set for Postgres and is used
// for advisory locking; lockPath adds a file lock for SQLite files.
func NewSQLStore(ctx context.Context, drv *entsql.Driver, pool *pgxpool.Pool, lockPath string, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLStore{drv: drv, pool: pool, lock: newCommitLock(lockPath), logger: logger}
	for _, ddl := range schemaDDL {
		if err := s.exec(ctx, drv, ddl, []any{}); err != nil {
			return nil, fmt.Errorf("init schema: %w", err)
		}
	}
	return s, nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder { return entsql.Dialect(s.drv.Dialect()) }

func (s *SQLStore) exec(ctx context.Context, q dialect.ExecQuerier, query string, args []any) error {
	return retryOnBusy(ctx, func() error {
		return q.Exec(ctx, query, args, nil)
	})
}

// inTx runs fn in a transaction, rolling back on error.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("repository.sql.rollback_failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLStore) tabExists(ctx context.Context, q dialect.ExecQuerier, tab string) (bool, error) {
	b := s.builder()
	query, args := b.Select("name").From(b.Table(tabsTable)).Where(entsql.EQ("name", tab)).Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return false, fmt.Errorf("lookup tab %s: %w", tab, err)
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

func (s *SQLStore) Tabs(ctx context.Context) ([]string, error) {
	b := s.builder()
	query, args := b.Select("name").From(b.Table(tabsTable)).OrderBy("position").Query()
	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("list tabs: %w", err)
	}
	defer rows.Close()
	var tabs []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tabs = append(tabs, name)
	}
	return tabs, rows.Err()
}

func (s *SQLStore) EnsureTab(ctx context.Context, tab string) (bool, error) {
	created := false
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		var err error
		created, err = s.ensureTab(ctx, tx, tab)
		return err
	})
	if created {
		s.logger.Info("repository.sql.tab_created", "tab", tab)
	}
	return created, err
}

func (s *SQLStore) ensureTab(ctx context.Context, q dialect.ExecQuerier, tab string) (bool, error) {
	ok, err := s.tabExists(ctx, q, tab)
	if err != nil || ok {
		return false, err
	}
	pos, err := s.nextPosition(ctx, q)
	if err != nil {
		return false, err
	}
	query, args := s.builder().Insert(tabsTable).
		Columns("name", "position").
		Values(tab, pos).
		OnConflict(entsql.ConflictColumns("name"), entsql.DoNothing()).
		Query()
	if err := s.exec(ctx, q, query, args); err != nil {
		return false, fmt.Errorf("create tab %s: %w", tab, err)
	}
	return true, nil
}

func (s *SQLStore) nextPosition(ctx context.Context, q dialect.ExecQuerier) (int, error) {
	b := s.builder()
	query, args := b.Select(entsql.Max("position")).From(b.Table(tabsTable)).Query()
	return s.scanMax(ctx, q, query, args)
}

func (s *SQLStore) scanMax(ctx context.Context, q dialect.ExecQuerier, query string, args []any) (int, error) {
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return 0, err
	}
	defer rows.Close()
	var n entsql.NullInt64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return int(n.Int64) + 1, nil
}

func (s *SQLStore) readCells(ctx context.Context, q dialect.ExecQuerier, tab string) ([]cell, error) {
	b := s.builder()
	query, args := b.Select("row_no", "col_no", "value").
		From(b.Table(cellsTable)).
		Where(entsql.EQ("tab", tab)).
		OrderBy("row_no", "col_no").
		Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("read %s: %w", tab, err)
	}
	defer rows.Close()
	var cells []cell
	for rows.Next() {
		var c cell
		if err := rows.Scan(&c.row, &c.col, &c.value); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// gridOf lays cells out as rows, trimming trailing blanks the way spreadsheet reads do.
func gridOf(cells []cell) [][]string {
	var grid [][]string
	for _, c := range cells {
		if c.value == "" {
			continue
		}
		for len(grid) < c.row {
			grid = append(grid, nil)
		}
		r := grid[c.row-1]
		for len(r) < c.col {
			r = append(r, "")
		}
		r[c.col-1] = c.value
		grid[c.row-1] = r
	}
	return grid
}

func (s *SQLStore) ReadAll(ctx context.Context, tab string) ([][]string, error) {
	ok, err := s.tabExists(ctx, s.drv, tab)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.TabMissing(tab)
	}
	cells, err := s.readCells(ctx, s.drv, tab)
	if err != nil {
		return nil, err
	}
	return gridOf(cells), nil
}

func (s *SQLStore) ReadColumn(ctx context.Context, tab string, col int) ([]string, error) {
	if err := validPos(1, col); err != nil {
		return nil, err
	}
	rows, err := s.ReadAll(ctx, tab)
	if err != nil {
		return nil, err
	}
	return column(rows, col), nil
}

func (s *SQLStore) Clear(ctx context.Context, tab string) error {
	return s.inTx(ctx, func(tx dialect.Tx) error {
		if _, err := s.ensureTab(ctx, tx, tab); err != nil {
			return err
		}
		return s.deleteCells(ctx, tx, tab)
	})
}

func (s *SQLStore) deleteCells(ctx context.Context, q dialect.ExecQuerier, tab string) error {
	query, args := s.builder().Delete(cellsTable).Where(entsql.EQ("tab", tab)).Query()
	if err := s.exec(ctx, q, query, args); err != nil {
		return fmt.Errorf("clear %s: %w", tab, err)
	}
	return nil
}

// upsertCells writes cells in batches, replacing existing values.
func (s *SQLStore) upsertCells(ctx context.Context, q dialect.ExecQuerier, tab string, cells []cell) error {
	for start := 0; start < len(cells); start += insertBatch {
		end := min(start+insertBatch, len(cells))
		ins := s.builder().Insert(cellsTable).Columns("tab", "row_no", "col_no", "value")
		for _, c := range cells[start:end] {
			ins.Values(tab, c.row, c.col, c.value)
		}
		query, args := ins.
			OnConflict(entsql.ConflictColumns("tab", "row_no", "col_no"), entsql.ResolveWithNewValues()).
			Query()
		if err := s.exec(ctx, q, query, args); err != nil {
			return fmt.Errorf("write %s: %w", tab, err)
		}
	}
	return nil
}

func rowCells(rowNo int, values []string) []cell {
	cells := make([]cell, len(values))
	for i, v := range values {
		cells[i] = cell{row: rowNo, col: i + 1, value: v}
	}
	return cells
}

func (s *SQLStore) Write(ctx context.Context, tab string, rows [][]string) error {
	var cells []cell
	for i, r := range rows {
		cells = append(cells, rowCells(i+1, r)...)
	}
	return s.inTx(ctx, func(tx dialect.Tx) error {
		if _, err := s.ensureTab(ctx, tx, tab); err != nil {
			return err
		}
		return s.upsertCells(ctx, tx, tab, cells)
	})
}

func (s *SQLStore) AppendRow(ctx context.Context, tab string, row []string) error {
	return s.inTx(ctx, func(tx dialect.Tx) error {
		ok, err := s.tabExists(ctx, tx, tab)
		if err != nil {
			return err
		}
		if !ok {
			return common.TabMissing(tab)
		}
		b := s.builder()
		query, args := b.Select(entsql.Max("row_no")).
			From(b.Table(cellsTable)).
			Where(entsql.And(entsql.EQ("tab", tab), entsql.NEQ("value", ""))).
			Query()
		next, err := s.scanMax(ctx, tx, query, args)
		if err != nil {
			return fmt.Errorf("append %s: %w", tab, err)
		}
		return s.upsertCells(ctx, tx, tab, rowCells(next, row))
	})
}

func (s *SQLStore) UpdateCell(ctx context.Context, tab string, row, col int, value string) error {
	if err := validPos(row, col); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx dialect.Tx) error {
		ok, err := s.tabExists(ctx, tx, tab)
		if err != nil {
			return err
		}
		if !ok {
			return common.TabMissing(tab)
		}
		return s.upsertCells(ctx, tx, tab, []cell{{row: row, col: col, value: value}})
	})
}

// DeleteRows removes rows and shifts the ones below up, rewriting the tab in one
// transaction.
func (s *SQLStore) DeleteRows(ctx context.Context, tab string, rows ...int) error {
	if len(rows) == 0 {
		return nil
	}
	drop := make(map[int]bool, len(rows))
	for _, r := range rows {
		if err := validPos(r, 1); err != nil {
			return err
		}
		drop[r] = true
	}
	return s.inTx(ctx, func(tx dialect.Tx) error {
		ok, err := s.tabExists(ctx, tx, tab)
		if err != nil {
			return err
		}
		if !ok {
			return common.TabMissing(tab)
		}
		cells, err := s.readCells(ctx, tx, tab)
		if err != nil {
			return err
		}
		kept := cells[:0]
		for _, c := range cells {
			if drop[c.row] {
				continue
			}
			shift := 0
			for r := range drop {
				if r < c.row {
					shift++
				}
			}
			c.row -= shift
			kept = append(kept, c)
		}
		if err := s.deleteCells(ctx, tx, tab); err != nil {
			return err
		}
		return s.upsertCells(ctx, tx, tab, kept)
	})
}

// Lock takes a session-level advisory lock on Postgres; SQLite falls back to the
// semaphore and lock file.
func (s *SQLStore) Lock(ctx context.Context) (func() error, error) {
	if s.pool == nil || s.drv.Dialect() != dialect.Postgres {
		return s.lock.acquire(ctx)
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, common.NetworkFailure("acquire lock connection", err)
	}
	key := advisoryKey("fan-ledger/commit")
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("pg_advisory_lock: %w", err)
	}
	return func() error {
		defer conn.Release()
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", key)
		return err
	}, nil
}

func advisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

func (s *SQLStore) Close() error {
	Close(s.drv, s.pool, s.logger)
	return nil
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
