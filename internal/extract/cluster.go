package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
)

var reDigitsOnly = regexp.MustCompile(`^\d+$`)

type fragment struct {
	x    int
	text string
}

// ClusterName gathers the name fragments that sit left of the anchor within its
// vertical window, ordered left to right. It reports false when nothing survives.
func (d *Detector) ClusterName(a Anchor, tokens []ocr.Token, imageWidth int) (string, bool) {
	window := float64(d.cfg.FragmentWindow)
	edge := float64(imageWidth) * d.cfg.EdgeMargin

	var frags []fragment
	for _, t := range tokens {
		cy := t.CenterY()
		if !(float64(a.Top)-window < cy && cy < float64(a.Bottom)+window) {
			continue
		}
		cx := t.CenterX()
		if cx >= float64(a.Left) || cx < edge {
			continue
		}
		if reDigitsOnly.MatchString(strings.TrimSpace(strings.ReplaceAll(t.Text, ",", ""))) {
			continue
		}
		frags = append(frags, fragment{x: t.Left(), text: strings.TrimSpace(t.Text)})
	}
	if len(frags) == 0 {
		return "", false
	}
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].x < frags[j].x })
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = f.text
	}
	return strings.Join(parts, " "), true
}
