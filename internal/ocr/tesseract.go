package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TesseractConfig configures the local tesseract fallback.
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "kor+eng"
	TessdataDir string
	PSM         int // e.g. 11 for sparse text; 0 keeps tesseract's default
	WorkDir     string
}

// TesseractRecognizer runs tesseract in TSV mode and maps word rows to tokens.
type TesseractRecognizer struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractRecognizer(cfg TesseractConfig, runner Runner, logger *slog.Logger) *TesseractRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "kor+eng"
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &TesseractRecognizer{cfg: cfg, runner: runner, logger: logger}
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) ([]Token, error) {
	if t.cfg.WorkDir != "" {
		if err := os.MkdirAll(t.cfg.WorkDir, 0o755); err != nil {
			return nil, err
		}
	}
	tmpDir, err := os.MkdirTemp(t.cfg.WorkDir, "fl-ocr-*")
	if err != nil {
		return nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			t.logger.Warn("failed to remove temp dir", "path", path, "error", err)
		}
	}(tmpDir)

	path := filepath.Join(tmpDir, "page.img")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return nil, err
	}

	// tesseract <file> stdout -l <lang> [--tessdata-dir d] [--psm n] tsv
	args := []string{path, "stdout", "-l", t.cfg.Lang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract TSV: %w: %s", err, truncate(string(errb), 512))
	}
	tokens := parseTSV(string(out))
	t.logger.Debug("ocr.tesseract.ok", "tokens", len(tokens))
	return tokens, nil
}

// parseTSV converts tesseract TSV output into a page token followed by word tokens.
// Columns: level page block par line word left top width height conf text.
func parseTSV(out string) []Token {
	var (
		page     Token
		words    []Token
		text     strings.Builder
		lastLine string
	)
	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue
		} // skip header
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		left, err1 := strconv.Atoi(cols[6])
		top, err2 := strconv.Atoi(cols[7])
		width, err3 := strconv.Atoi(cols[8])
		height, err4 := strconv.Atoi(cols[9])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		switch cols[0] {
		case "1":
			page = Rect("", left, top, width, height)
		case "5":
			word := strings.TrimSpace(strings.Join(cols[11:], "\t"))
			if word == "" {
				continue
			}
			lineKey := cols[2] + "/" + cols[3] + "/" + cols[4]
			if text.Len() > 0 {
				if lineKey != lastLine {
					text.WriteByte('\n')
				} else {
					text.WriteByte(' ')
				}
			}
			lastLine = lineKey
			text.WriteString(word)
			words = append(words, Rect(word, left, top, width, height))
		}
	}
	page.Text = text.String()
	return append([]Token{page}, words...)
}
