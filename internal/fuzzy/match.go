package fuzzy

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

var reBracketGroup = regexp.MustCompile(`\[.*?\]`)

// Match is the best candidate for a query.
type Match struct {
	Choice string
	Score  int
	Index  int
}

// BestMatch returns the highest scoring non-empty choice; ties go to the earliest one.
func BestMatch(query string, choices []string, scorer Scorer) (Match, bool) {
	if scorer == nil {
		scorer = Default
	}
	best := Match{Index: -1, Score: -1}
	for i, c := range choices {
		if c == "" {
			continue
		}
		if s := scorer.Score(query, c); s > best.Score {
			best = Match{Choice: c, Score: s, Index: i}
		}
	}
	return best, best.Index >= 0
}

// Matcher applies the roster and ledger acceptance thresholds.
type Matcher struct {
	scorer          Scorer
	rosterThreshold int
	ledgerThreshold int
}

// NewMatcher uses scorer when given, otherwise the one named by cfg.Scorer. An unknown
// name falls back to Default; Config.Validate rejects it earlier.
func NewMatcher(cfg common.MatchingConfig, scorer Scorer) *Matcher {
	if scorer == nil {
		var err error
		if scorer, err = ScorerByName(cfg.Scorer); err != nil {
			scorer = Default
		}
	}
	return &Matcher{
		scorer:          scorer,
		rosterThreshold: cfg.RosterThreshold,
		ledgerThreshold: cfg.LedgerThreshold,
	}
}

// Corrector binds the matcher to one roster snapshot.
func (m *Matcher) Corrector(roster []string) *Corrector {
	return &Corrector{m: m, roster: roster}
}

// Resolve maps a staged name onto an existing ledger nickname. An exact hit wins outright;
// otherwise the best candidate must reach the ledger threshold.
func (m *Matcher) Resolve(name string, existing []string) (string, bool) {
	for _, e := range existing {
		if e == name {
			return e, true
		}
	}
	best, ok := BestMatch(name, existing, m.scorer)
	if !ok || best.Score < m.ledgerThreshold {
		return "", false
	}
	return best.Choice, true
}

// Corrector snaps OCR output onto roster spellings.
type Corrector struct {
	m      *Matcher
	roster []string
}

// CorrectOCR ignores bracketed clan tags when comparing, and returns the input unchanged
// when the roster is empty or no entry reaches the roster threshold.
func (c *Corrector) CorrectOCR(name string) string {
	if len(c.roster) == 0 || name == "" {
		return name
	}
	query := strings.TrimSpace(reBracketGroup.ReplaceAllString(name, ""))
	if query == "" {
		return name
	}
	best, ok := BestMatch(query, c.roster, c.m.scorer)
	if !ok || best.Score < c.m.rosterThreshold {
		return name
	}
	return best.Choice
}
