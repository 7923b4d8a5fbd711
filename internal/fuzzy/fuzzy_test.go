package fuzzy

import (
	"testing"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
)

func TestProcess(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Hello,  WORLD!! 별빛 ", "hello   world   별빛"},
		{"snake_case", "snake_case"},
		{"Café", "caf"},
		{"[길드] 달빛", "길드  달빛"},
	}
	for _, tt := range tests {
		if got := Process(tt.in); got != tt.want {
			t.Errorf("Process(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"별빛기사", "별빛기사", 100},
		{"Alpha", "alpha!", 100},
		{"별빛기사", "별빚기사", 75},
		{"StarKnlght", "StarKnight", 90},
		{"new york mets", "mets new york", 95},
		{"kim", "kimchi stew lover", 90},
		{"Momoko", "Momo", 90},
		{"fuzzy was a bear", "wuzzy fuzzy was a bear", 95},
		{"달빛", "햇빛", 50},
		{"P2", "P1", 50},
		{"StarKnlght", "moon", 22},
		{"", "anything", 0},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			if got := WRatio(tt.a, tt.b); got != tt.want {
				t.Fatalf("WRatio(%q,%q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestComponentRatios(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b string) int
		a, b string
		want int
	}{
		{"ratio", Ratio, "starknlght", "starknight", 90},
		{"ratio both empty", Ratio, "", "", 100},
		{"ratio one empty", Ratio, "", "a", 0},
		{"partial", PartialRatio, "kim", "kimchi stew lover", 100},
		{"partial near", PartialRatio, "별빛기사", "별빚기사", 75},
		{"token sort", TokenSortRatio, "new york mets", "mets new york", 100},
		{"token set", TokenSetRatio, "mets new york", "new york mets new", 100},
		{"levenshtein", LevenshteinRatio, "StarKnlght", "StarKnight", 90},
		{"levenshtein disjoint", LevenshteinRatio, "abc", "xyz", 0},
	}
	for _, tt := range tests {
		if got := tt.fn(tt.a, tt.b); got != tt.want {
			t.Errorf("%s(%q,%q) = %d, want %d", tt.name, tt.a, tt.b, got, tt.want)
		}
	}
}

func TestScorerByName(t *testing.T) {
	for _, name := range []string{"", "wratio", "levenshtein"} {
		if _, err := ScorerByName(name); err != nil {
			t.Errorf("ScorerByName(%q): %v", name, err)
		}
	}
	if _, err := ScorerByName("jaro"); err == nil {
		t.Fatal("unknown scorer accepted")
	}

	m := NewMatcher(common.MatchingConfig{Scorer: "levenshtein", LedgerThreshold: 80}, nil)
	if got, ok := m.Resolve("StarKnlght", []string{"StarKnight"}); !ok || got != "StarKnight" {
		t.Fatalf("levenshtein resolve = %q,%v", got, ok)
	}
}

func TestBestMatchTieGoesToFirst(t *testing.T) {
	flat := ScorerFunc(func(a, b string) int { return 70 })
	got, ok := BestMatch("x", []string{"", "first", "second"}, flat)
	if !ok || got.Choice != "first" || got.Index != 1 {
		t.Fatalf("BestMatch = %+v, %v", got, ok)
	}
	if _, ok := BestMatch("x", nil, flat); ok {
		t.Fatal("empty choices must not match")
	}
}

// fixedScorer returns a set score for known pairs and 0 otherwise.
type fixedScorer map[[2]string]int

func (f fixedScorer) Score(a, b string) int { return f[[2]string{a, b}] }

func TestCorrectOCRThreshold(t *testing.T) {
	scorer := fixedScorer{
		{"almost", "Roster49"}: 49,
		{"barely", "Roster50"}: 50,
		{"tag", "Tagged"}:      90,
	}
	m := NewMatcher(common.MatchingConfig{RosterThreshold: 50, LedgerThreshold: 80}, scorer)
	c := m.Corrector([]string{"Roster49", "Roster50", "Tagged"})

	tests := []struct{ in, want string }{
		{"almost", "almost"},
		{"barely", "Roster50"},
		{"[clan] tag", "Tagged"},
		{"[clan]", "[clan]"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := c.CorrectOCR(tt.in); got != tt.want {
			t.Errorf("CorrectOCR(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := m.Corrector(nil).CorrectOCR("almost"); got != "almost" {
		t.Fatalf("empty roster changed name to %q", got)
	}
}

func TestResolveThreshold(t *testing.T) {
	scorer := fixedScorer{
		{"close", "Known79"}:  79,
		{"closer", "Known80"}: 80,
	}
	m := NewMatcher(common.MatchingConfig{RosterThreshold: 50, LedgerThreshold: 80}, scorer)
	existing := []string{"Known79", "Known80", "Exact"}

	if got, ok := m.Resolve("Exact", existing); !ok || got != "Exact" {
		t.Fatalf("exact resolve = %q,%v", got, ok)
	}
	if _, ok := m.Resolve("close", existing); ok {
		t.Fatal("score 79 must not resolve")
	}
	if got, ok := m.Resolve("closer", existing); !ok || got != "Known80" {
		t.Fatalf("score 80 resolve = %q,%v", got, ok)
	}
	if _, ok := m.Resolve("anyone", nil); ok {
		t.Fatal("empty ledger must not resolve")
	}
}
