package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
)

// Anchor is a detected fan-count value with the position of its leaderboard row.
type Anchor struct {
	Value  int64
	Left   int
	Top    int
	Bottom int
}

// RowTokens drops the whole-page summary that recognizers return first.
func RowTokens(tokens []ocr.Token) []ocr.Token {
	if len(tokens) <= 1 {
		return nil
	}
	return tokens[1:]
}

// Detector finds anchors. It is safe for concurrent use.
type Detector struct {
	cfg     common.ExtractionConfig
	countRe *regexp.Regexp
}

func NewDetector(cfg common.ExtractionConfig) *Detector {
	if cfg.MinDigits <= 0 {
		cfg.MinDigits = 4
	}
	return &Detector{
		cfg:     cfg,
		countRe: regexp.MustCompile(fmt.Sprintf(`\d{%d,}`, cfg.MinDigits)),
	}
}

// Anchors scans tokens in order and keeps one anchor per vertical band; the first
// candidate seen in a band wins regardless of its value.
func (d *Detector) Anchors(tokens []ocr.Token) []Anchor {
	var kept []Anchor
	for _, t := range tokens {
		v, ok := d.parseCount(t.Text)
		if !ok {
			continue
		}
		a := Anchor{Value: v, Left: t.Left(), Top: t.Top(), Bottom: t.Bottom()}
		if d.inKeptBand(kept, a) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func (d *Detector) inKeptBand(kept []Anchor, a Anchor) bool {
	for _, k := range kept {
		diff := a.Top - k.Top
		if diff < 0 {
			diff = -diff
		}
		if diff < d.cfg.AnchorBand {
			return true
		}
	}
	return false
}

// parseCount extracts the first run of MinDigits+ digits after dropping thousands
// separators. Values above OverflowLimit lose their leading digit once: OCR tends to glue
// a rank digit onto the count.
func (d *Detector) parseCount(text string) (int64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	m := d.countRe.FindString(raw)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	if d.cfg.OverflowLimit > 0 && v > d.cfg.OverflowLimit {
		v, err = strconv.ParseInt(strconv.FormatInt(v, 10)[1:], 10, 64)
		if err != nil {
			return 0, false
		}
	}
	return v, true
}
