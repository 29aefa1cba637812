package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/corpuslab/quantang-cli/internal/config"
)

// Cleaner post-processes extracted body text: normalizes it, collapses
// whitespace runs, and drops boilerplate and junk lines.
type Cleaner struct {
	boilerplate map[string]struct{}
	minLine     int
}

// NewCleaner builds a cleaner from the configured boilerplate blocklist
// and minimum line length.
func NewCleaner(cfg config.ExtractConfig) *Cleaner {
	bl := make(map[string]struct{}, len(cfg.BoilerplatePhrases))
	for _, p := range cfg.BoilerplatePhrases {
		bl[strings.TrimSpace(p)] = struct{}{}
	}
	return &Cleaner{boilerplate: bl, minLine: cfg.MinLineLength}
}

var (
	spaceRunRe = regexp.MustCompile(`[ \t\x{3000}]+`)
	// Lines of only digits, punctuation, and separators carry no verse
	// text (page numbers, rule lines, "1." style counters).
	junkLineRe = regexp.MustCompile(`^[\d\pP\pS\s]+$`)
)

// Clean normalizes to NFC, collapses whitespace runs within lines, and
// drops boilerplate lines, digit/punctuation-only lines, and lines below
// the minimum length that contain no Han character.
func (c *Cleaner) Clean(text string) string {
	text = norm.NFC.String(text)

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(spaceRunRe.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		if _, drop := c.boilerplate[line]; drop {
			continue
		}
		if junkLineRe.MatchString(line) {
			continue
		}
		if len([]rune(line)) < c.minLine && !containsHan(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func containsHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
