package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/corpuslab/quantang-cli/internal/model"
)

// ContainerStrategy reads the stable container signature of a volume
// page: each poem's header table carries an author span and a 《title》
// heading, and the next sibling table holds the verse cells.
type ContainerStrategy struct{}

func (s *ContainerStrategy) Name() string { return "container" }

// libraryLabel appears in the same span class as authors and must not be
// mistaken for one.
const libraryLabel = "電子圖書館"

func (s *ContainerStrategy) Extract(page Page) []model.Record {
	if page.Doc == nil {
		return nil
	}

	var records []model.Record
	page.Doc.Find("span.etext.opt").Each(func(_ int, span *goquery.Selection) {
		author := cleanAuthor(span.Text())
		if author == "" || author == libraryLabel {
			return
		}

		headerTable := span.Closest("table")
		if headerTable.Length() == 0 {
			return
		}

		heading := headerTable.Find("h2").First()
		if heading.Length() == 0 || !isDelimitedTitle(heading.Text()) {
			return
		}
		title := stripTitleDelimiters(heading.Text())

		body := contentAfter(headerTable)
		if title == "" || body == "" {
			return
		}
		records = append(records, model.Record{
			Volume: page.Volume,
			Title:  title,
			Author: author,
			Body:   body,
		})
	})
	return records
}

// contentAfter collects the verse text from the table following a poem's
// header table. Dictionary-link cells are skipped.
func contentAfter(headerTable *goquery.Selection) string {
	contentTable := headerTable.NextAllFiltered("table").First()
	if contentTable.Length() == 0 {
		return ""
	}

	var parts []string
	contentTable.Find("td.ctext").Each(func(_ int, cell *goquery.Selection) {
		text := strings.TrimSpace(cell.Text())
		if text == "" || strings.HasPrefix(text, "打開字典") {
			return
		}
		parts = append(parts, text)
	})
	return strings.Join(parts, "\n")
}
