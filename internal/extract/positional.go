package extract

import (
	"regexp"
	"strings"

	"github.com/corpuslab/quantang-cli/internal/model"
)

// PositionalStrategy is the documented last resort: pair ordered
// title/author matches with ordered content-block matches by index. It
// works on the raw markup, so it survives HTML the DOM parser mangles.
// Length mismatches are tolerated; unmatched pairs are skipped.
type PositionalStrategy struct{}

func (s *PositionalStrategy) Name() string { return "positional" }

var (
	titleAuthorRe = regexp.MustCompile(`(?s)<table width='100%'>.*?<h2>《<a[^>]*>([^<]+)</a>》</h2>.*?<span[^>]*><b>\s*([^<]+)</b></span>.*?</table>`)
	contentAreaRe = regexp.MustCompile(`(?s)<table border="0">.*?</table>`)
	verseLineRe   = regexp.MustCompile(`(?s)<div id="comm[^"]*"></div>([^<]+)<p class="ctext"></p>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
)

func (s *PositionalStrategy) Extract(page Page) []model.Record {
	raw := page.Raw
	titleAuthors := titleAuthorRe.FindAllStringSubmatch(raw, -1)
	contentBlocks := contentAreaRe.FindAllString(raw, -1)

	var records []model.Record
	for i, m := range titleAuthors {
		if i >= len(contentBlocks) {
			break
		}
		title := strings.TrimSpace(m[1])
		author := cleanAuthor(m[2])

		var parts []string
		for _, vm := range verseLineRe.FindAllStringSubmatch(contentBlocks[i], -1) {
			line := strings.TrimSpace(tagRe.ReplaceAllString(vm[1], ""))
			if line != "" {
				parts = append(parts, line)
			}
		}
		if title == "" || len(parts) == 0 {
			continue
		}
		records = append(records, model.Record{
			Volume: page.Volume,
			Title:  title,
			Author: author,
			Body:   strings.Join(parts, "\n"),
		})
	}
	return records
}
