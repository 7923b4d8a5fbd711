package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"

	"github.com/joseph-ayodele/fan-ledger/constants"
)

var (
	reBracketOpen  = regexp.MustCompile(`\[\s+`)
	reBracketClose = regexp.MustCompile(`\s+\]`)
	// parentheses, braces, pipes, digit look-alikes (i I l 1 C), angle brackets,
	// circled numbers, stars, hyphens, colons, digits, periods, commas
	reConfusables = regexp.MustCompile(`[(){}iIl|1C<>①②③★\-:0-9.,]+`)
)

// NormalizeNickname isolates a nickname from a raw cluster. A clan tag in brackets
// survives; everything else listed above is removed.
func NormalizeNickname(s string) string {
	s = width.Fold.String(s)
	for _, w := range constants.NoiseWords {
		s = strings.ReplaceAll(s, w, "")
	}
	s = reBracketOpen.ReplaceAllString(s, "[")
	s = reBracketClose.ReplaceAllString(s, "]")
	s = reConfusables.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
