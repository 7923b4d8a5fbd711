package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
	"github.com/joseph-ayodele/fan-ledger/internal/fuzzy"
	"github.com/joseph-ayodele/fan-ledger/internal/ledger"
	"github.com/joseph-ayodele/fan-ledger/internal/repository"
)

// CommitResult reports what a commit changed.
type CommitResult struct {
	Date    string
	Audit   []ledger.AuditEntry
	Members int
}

type Committer struct {
	store   repository.Sheets
	matcher *fuzzy.Matcher
	cfg     common.LedgerConfig
	loc     *time.Location
	now     func() time.Time
	mu      sync.Mutex
	logger  *slog.Logger
}

func NewCommitter(store repository.Sheets, matcher *fuzzy.Matcher, cfg common.LedgerConfig, loc *time.Location, logger *slog.Logger) *Committer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Committer{
		store:   store,
		matcher: matcher,
		cfg:     cfg,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}
}

func (c *Committer) tabs() []string {
	return []string{c.cfg.SummaryTab, c.cfg.DailyTab, c.cfg.WeeklyTab, c.cfg.MonthlyTab}
}

// Commit merges entries into today's column of the daily tab and rewrites the weekly,
// monthly and summary tabs from the result. Commits are serialized within the process
// and through the store lock. A failed write is returned as is; tabs already written
// stay written.
func (c *Committer) Commit(ctx context.Context, entries []extract.Entry) (CommitResult, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, c.logger)

	c.mu.Lock()
	defer c.mu.Unlock()
	unlock, err := c.store.Lock(ctx)
	if err != nil {
		return CommitResult{}, fmt.Errorf("lock ledger: %w", err)
	}
	defer func() {
		if err := unlock(); err != nil {
			logger.Error("pipeline.commit.unlock_failed", "error", err)
		}
	}()

	for _, tab := range c.tabs() {
		if _, err := c.store.EnsureTab(ctx, tab); err != nil {
			return CommitResult{}, fmt.Errorf("ensure tab %s: %w", tab, err)
		}
	}

	current, err := c.readLedger(ctx)
	if err != nil {
		return CommitResult{}, err
	}

	today := ledger.Today(c.now(), c.loc)
	merged, audit := ledger.Merge(current, entries, today, c.matcher)

	writes := []struct {
		tab   string
		table [][]string
	}{
		{c.cfg.DailyTab, merged.Table()},
		{c.cfg.WeeklyTab, ledger.Weekly(merged, c.cfg.WeeklyDays).Table()},
		{c.cfg.MonthlyTab, ledger.Monthly(merged).Table()},
		{c.cfg.SummaryTab, ledger.SummaryTable(ledger.Summarize(merged, today))},
	}
	for _, w := range writes {
		if err := repository.Replace(ctx, c.store, w.tab, w.table); err != nil {
			logger.Error("pipeline.commit.write_failed", "tab", w.tab, "error", err)
			return CommitResult{Date: today, Audit: audit}, err
		}
	}

	for _, a := range audit {
		logger.Info("pipeline.commit.audit", "entry", a.String())
	}
	logger.Info("pipeline.commit.ok",
		"date", today,
		"entries", len(entries),
		"changes", len(audit),
		"members", len(merged.Rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return CommitResult{Date: today, Audit: audit, Members: len(merged.Rows)}, nil
}

// readLedger treats a missing daily tab as an empty ledger.
func (c *Committer) readLedger(ctx context.Context) (ledger.Ledger, error) {
	rows, err := c.store.ReadAll(ctx, c.cfg.DailyTab)
	if errors.Is(err, common.ErrTabMissing) {
		return ledger.Ledger{}, nil
	}
	if err != nil {
		return ledger.Ledger{}, fmt.Errorf("read %s: %w", c.cfg.DailyTab, err)
	}
	return ledger.FromTable(rows), nil
}

// Rollup reads the daily tab and returns the named derived table without writing it.
func (c *Committer) Rollup(ctx context.Context, kind string) ([][]string, error) {
	l, err := c.readLedger(ctx)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "weekly":
		return ledger.Weekly(l, c.cfg.WeeklyDays).Table(), nil
	case "monthly":
		return ledger.Monthly(l).Table(), nil
	case "summary":
		return ledger.SummaryTable(ledger.Summarize(l, ledger.Today(c.now(), c.loc))), nil
	case "daily":
		return l.Table(), nil
	default:
		return nil, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("unknown rollup %q", kind), common.ErrInvalidInput)
	}
}
