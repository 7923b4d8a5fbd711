// Package ocr wraps the external text recognizers (Cloud Vision, tesseract) and the image
// conditioning done before a screenshot is sent to them.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/fan-ledger/constants"
	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

// Source is one uploaded screenshot.
type Source struct {
	Name string // file name or client label; its extension selects HEIC conversion
	Data []byte
}

// Reader conditions screenshots and runs them through a Recognizer.
type Reader struct {
	cfg        common.OCRConfig
	recognizer Recognizer
	runner     Runner
	logger     *slog.Logger
}

// NewRecognizer builds the configured recognizer. Missing Vision credentials yield
// common.ErrAuthMissing so callers can disable the feature instead of failing.
func NewRecognizer(cfg common.OCRConfig, runner Runner, logger *slog.Logger) (Recognizer, error) {
	switch cfg.Provider {
	case "tesseract":
		return NewTesseractRecognizer(TesseractConfig{
			Binary:      cfg.Tesseract,
			Lang:        cfg.TesseractLang,
			TessdataDir: cfg.TessdataDir,
			WorkDir:     cfg.ArtifactCacheDir,
		}, runner, logger), nil
	case "vision", "":
		return NewVisionClient(cfg.VisionEndpoint, cfg.VisionAPIKey, cfg.VisionToken, common.Seconds(cfg.Timeout), logger)
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.Provider)
	}
}

func NewReader(cfg common.OCRConfig, recognizer Recognizer, runner Runner, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Reader{cfg: cfg, recognizer: recognizer, runner: runner, logger: logger}
}

// Page is what the extraction stage needs from one screenshot.
type Page struct {
	Tokens  []Token
	Width   int
	Preview []byte
}

// Read converts, conditions and recognizes one screenshot.
func (r *Reader) Read(ctx context.Context, src Source) (Page, error) {
	data := src.Data
	if constants.IsHEICExt(filepath.Ext(src.Name)) {
		png, err := ConvertHEIC(ctx, r.runner, r.logger, r.cfg.HeicConverter, data, r.cfg.ArtifactCacheDir)
		if err != nil {
			return Page{}, err
		}
		data = png
	}
	prep, err := Prepare(data, PrepareOptions{
		UpscaleBelow: r.cfg.UpscaleBelow,
		PreviewFrom:  r.cfg.PreviewFrom,
	})
	if err != nil {
		return Page{}, err
	}
	page := Page{Width: prep.Width, Preview: prep.Preview}
	tokens, err := r.recognizer.Recognize(ctx, prep.OCRImage)
	if err != nil {
		return page, err
	}
	page.Tokens = tokens
	return page, nil
}
