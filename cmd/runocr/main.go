package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/extract"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
)

// runocr recognizes one screenshot and logs every anchor with the name clustered
// beside it, for tuning the extraction constants against real captures.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <screenshot>")
		os.Exit(2)
	}
	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read screenshot", "path", path, "error", err)
		os.Exit(2)
	}

	cfg, err := common.LoadConfig(os.Getenv("FANLEDGER_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	recognizer, err := ocr.NewRecognizer(cfg.OCR, nil, logger)
	if err != nil {
		logger.Error("ocr unavailable", "provider", cfg.OCR.Provider, "error", err)
		os.Exit(1)
	}
	reader := ocr.NewReader(cfg.OCR, recognizer, nil, logger)

	start := time.Now()
	page, err := reader.Read(ctx, ocr.Source{Name: filepath.Base(path), Data: data})
	dur := time.Since(start)
	if err != nil {
		logger.Error("text recognition failed", "error", err, "duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	detector := extract.NewDetector(cfg.Extraction)
	rows := extract.RowTokens(page.Tokens)
	for _, a := range detector.Anchors(rows) {
		raw, ok := detector.ClusterName(a, rows, page.Width)
		logger.Info("anchor",
			"value", a.Value,
			"left", a.Left,
			"top", a.Top,
			"raw_name", raw,
			"clustered", ok,
			"nickname", extract.NormalizeNickname(raw),
		)
	}

	logger.Info("text recognition OK",
		"tokens", len(page.Tokens),
		"width", page.Width,
		"entries", len(extract.NewExtractor(cfg.Extraction, logger).Extract(page, nil)),
		"duration_ms", dur.Milliseconds(),
	)
}
