// Package pipeline runs the two operator steps: Analyze turns screenshots into a staged
// session, Commit merges a reviewed table into the ledger and refreshes the rollup tabs.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/fan-ledger/internal/async"
	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
	"github.com/joseph-ayodele/fan-ledger/internal/fuzzy"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
	"github.com/joseph-ayodele/fan-ledger/internal/staging"
)

// ErrNothingRecognized is returned when no screenshot yielded a single entry.
var ErrNothingRecognized = errors.New("no leaderboard entries recognized")

// PageReader produces the OCR page of one screenshot.
type PageReader interface {
	Read(ctx context.Context, src ocr.Source) (ocr.Page, error)
}

// RosterSource lists the official nicknames used to correct OCR output.
type RosterSource interface {
	List(ctx context.Context) ([]string, error)
}

type Analyzer struct {
	reader    PageReader
	extractor *extract.Extractor
	matcher   *fuzzy.Matcher
	roster    RosterSource
	pool      *async.Pool
	now       func() time.Time
	logger    *slog.Logger
}

func NewAnalyzer(reader PageReader, extractor *extract.Extractor, matcher *fuzzy.Matcher, roster RosterSource, pool *async.Pool, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if pool == nil {
		pool = async.NewPool(logger)
	}
	return &Analyzer{
		reader:    reader,
		extractor: extractor,
		matcher:   matcher,
		roster:    roster,
		pool:      pool,
		now:       time.Now,
		logger:    logger,
	}
}

type pageResult struct {
	entries []extract.Entry
	preview []byte
}

// Analyze reads every screenshot, extracts and roster-corrects its entries and stages
// the max-wins aggregate. A screenshot that fails to decode or recognize contributes
// nothing; the run only fails when no screenshot contributed anything.
func (a *Analyzer) Analyze(ctx context.Context, sources []ocr.Source) (*staging.Session, error) {
	start := time.Now()
	logger := common.LoggerFrom(ctx, a.logger)

	roster := a.loadRoster(ctx, logger)
	corrector := a.matcher.Corrector(roster)

	results := async.Run(ctx, a.pool, sources, func(ctx context.Context, src ocr.Source) (pageResult, error) {
		page, err := a.reader.Read(ctx, src)
		res := pageResult{preview: page.Preview}
		if err != nil {
			return res, err
		}
		res.entries = a.extractor.Extract(page, corrector)
		return res, nil
	})

	var all []extract.Entry
	var previews []staging.Preview
	var failures []staging.Failure
	for i, r := range results {
		name := sources[i].Name
		if r.Value.preview != nil {
			previews = append(previews, staging.Preview{Source: name, JPEG: r.Value.preview})
		}
		if r.Err != nil {
			logger.Warn("pipeline.analyze.image_failed", "source", name, "error", r.Err)
			failures = append(failures, staging.Failure{Source: name, Reason: r.Err.Error()})
			continue
		}
		logger.Debug("pipeline.analyze.image_ok", "source", name, "entries", len(r.Value.entries))
		all = append(all, r.Value.entries...)
	}

	sess := staging.NewSession(all, a.now())
	sess.Previews = previews
	sess.Failures = failures
	if len(sess.Entries) == 0 {
		logger.Warn("pipeline.analyze.empty", "images", len(sources), "failed", len(failures))
		return sess, ErrNothingRecognized
	}
	logger.Info("pipeline.analyze.ok",
		"session_id", sess.ID,
		"images", len(sources),
		"failed", len(failures),
		"entries", len(sess.Entries),
		"roster", len(roster),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return sess, nil
}

func (a *Analyzer) loadRoster(ctx context.Context, logger *slog.Logger) []string {
	if a.roster == nil {
		return nil
	}
	names, err := a.roster.List(ctx)
	if err != nil {
		logger.Warn("pipeline.analyze.roster_unavailable", "error", err)
		return nil
	}
	return names
}

// ExtractEntries runs extraction and roster correction over one already recognized page.
func ExtractEntries(extractor *extract.Extractor, matcher *fuzzy.Matcher, page ocr.Page, roster []string) []extract.Entry {
	return extractor.Extract(page, matcher.Corrector(roster))
}
