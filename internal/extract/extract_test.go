package extract

import (
	"strings"
	"testing"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/ocr"
)

func testDetector() *Detector {
	return NewDetector(common.Default().Extraction)
}

func TestAnchorsOverflowDropsLeadingDigit(t *testing.T) {
	got := testDetector().Anchors([]ocr.Token{ocr.Rect("12,000,000,001", 600, 100, 200, 40)})
	if len(got) != 1 {
		t.Fatalf("anchors = %d, want 1", len(got))
	}
	if got[0].Value != 2_000_000_001 {
		t.Fatalf("value = %d, want 2000000001", got[0].Value)
	}
}

func TestAnchorsParsing(t *testing.T) {
	tests := []struct {
		text string
		want int64
		ok   bool
	}{
		{"1,234,567", 1234567, true},
		{"팬 수 98,765", 98765, true},
		{"123", 0, false},
		{"Rank 12", 0, false},
		{"10,000,000,000", 10_000_000_000, true},
	}
	d := testDetector()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, ok := d.parseCount(tt.text)
			if ok != tt.ok || v != tt.want {
				t.Fatalf("parseCount(%q) = %d,%v want %d,%v", tt.text, v, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestAnchorsBandDedup(t *testing.T) {
	d := testDetector()
	got := d.Anchors([]ocr.Token{
		ocr.Rect("1,234,567", 600, 100, 200, 40),
		ocr.Rect("9,999,999", 600, 120, 200, 40),
		ocr.Rect("5,555,555", 600, 130, 200, 40),
	})
	if len(got) != 2 {
		t.Fatalf("anchors = %d, want 2", len(got))
	}
	if got[0].Value != 1234567 {
		t.Fatalf("first band kept %d, want the first candidate", got[0].Value)
	}
	if got[1].Value != 5555555 || got[1].Top != 130 {
		t.Fatalf("second anchor = %+v", got[1])
	}
}

func TestClusterName(t *testing.T) {
	d := testDetector()
	a := Anchor{Value: 1234567, Left: 600, Top: 300, Bottom: 340}
	tokens := []ocr.Token{
		ocr.Rect("기사", 300, 305, 80, 30),
		ocr.Rect("[클랜]", 150, 305, 100, 30),
		ocr.Rect("7", 60, 305, 20, 30),           // rank number
		ocr.Rect("edge", 0, 305, 30, 30),         // centre inside the left margin
		ocr.Rect("오른쪽", 700, 305, 80, 30),        // right of the anchor
		ocr.Rect("아래줄", 300, 460, 80, 30),        // outside the vertical window
		ocr.Rect("1,234,567", 600, 300, 200, 40), // the anchor itself
	}
	got, ok := d.ClusterName(a, tokens, 1000)
	if !ok {
		t.Fatal("expected a cluster")
	}
	if got != "[클랜] 기사" {
		t.Fatalf("cluster = %q", got)
	}
}

func TestClusterNameEmpty(t *testing.T) {
	d := testDetector()
	a := Anchor{Value: 1234567, Left: 600, Top: 300, Bottom: 340}
	if _, ok := d.ClusterName(a, []ocr.Token{ocr.Rect("12", 100, 305, 20, 30)}, 1000); ok {
		t.Fatal("numeric-only fragments must not form a cluster")
	}
}

func TestNormalizeNickname(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"총 닉네임1 RANK", "닉네임"},
		{"[ 클랜 ] 기사★", "[클랜] 기사"},
		{"①  별빛 :", "별빛"},
		{"ＡＢ팬", "AB"},
		{"1234", ""},
		{"리더 (멤버)", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeNickname(tt.in); got != tt.want {
				t.Fatalf("NormalizeNickname(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type upperCorrector struct{}

func (upperCorrector) CorrectOCR(name string) string { return strings.ToUpper(name) }

func TestExtractorPage(t *testing.T) {
	page := ocr.Page{
		Width: 1000,
		Tokens: []ocr.Token{
			ocr.Rect("page summary 1,000,000", 0, 0, 1000, 1000),
			ocr.Rect("1", 40, 105, 10, 30),
			ocr.Rect("abc", 200, 105, 80, 30),
			ocr.Rect("1,500,000", 600, 100, 200, 40),
			ocr.Rect("2", 40, 405, 10, 30),
			ocr.Rect("xyz", 200, 405, 80, 30),
			ocr.Rect("900,000", 600, 400, 200, 40),
			ocr.Rect("777,777", 600, 700, 200, 40), // no name to its left
		},
	}
	got := NewExtractor(common.Default().Extraction, nil).Extract(page, upperCorrector{})
	want := []Entry{{"ABC", 1_500_000}, {"XYZ", 900_000}}
	if len(got) != len(want) {
		t.Fatalf("entries = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
