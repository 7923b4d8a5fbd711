package extract

import (
	"log/slog"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
)

// Entry is one recognized leaderboard row.
type Entry struct {
	Nickname string `json:"nickname"`
	FanCount int64  `json:"fan_count"`
}

// Corrector maps a normalized nickname onto the roster spelling when one is close enough.
type Corrector interface {
	CorrectOCR(name string) string
}

// Extractor runs anchor detection, clustering, normalization and roster correction over
// one page.
type Extractor struct {
	detector *Detector
	logger   *slog.Logger
}

func NewExtractor(cfg common.ExtractionConfig, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{detector: NewDetector(cfg), logger: logger}
}

// Extract returns entries in anchor order. A nil corrector leaves names as normalized.
func (e *Extractor) Extract(page ocr.Page, corrector Corrector) []Entry {
	rows := RowTokens(page.Tokens)
	anchors := e.detector.Anchors(rows)

	entries := make([]Entry, 0, len(anchors))
	for _, a := range anchors {
		raw, ok := e.detector.ClusterName(a, rows, page.Width)
		if !ok {
			e.logger.Debug("extract.anchor.no_name", "value", a.Value, "top", a.Top)
			continue
		}
		name := NormalizeNickname(raw)
		if name == "" {
			e.logger.Debug("extract.anchor.empty_name", "raw", raw, "value", a.Value)
			continue
		}
		if corrector != nil {
			name = corrector.CorrectOCR(name)
		}
		entries = append(entries, Entry{Nickname: name, FanCount: a.Value})
	}
	e.logger.Debug("extract.page.done", "anchors", len(anchors), "entries", len(entries))
	return entries
}
