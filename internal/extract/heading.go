package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/corpuslab/quantang-cli/internal/model"
)

// HeadingStrategy handles pages without the container signature:
// anonymous poems (ritual hymns, court music lyrics) appear as bare
// 《title》 headings with the verse in the following sibling block. The
// author defaults to the sentinel.
type HeadingStrategy struct{}

func (s *HeadingStrategy) Name() string { return "heading" }

func (s *HeadingStrategy) Extract(page Page) []model.Record {
	if page.Doc == nil {
		return nil
	}

	var records []model.Record
	page.Doc.Find("h2").Each(func(_ int, heading *goquery.Selection) {
		if !isDelimitedTitle(heading.Text()) {
			return
		}
		title := stripTitleDelimiters(heading.Text())

		body := ""
		if headerTable := heading.Closest("table"); headerTable.Length() > 0 {
			body = contentAfter(headerTable)
		}
		if body == "" {
			body = siblingText(heading)
		}
		if title == "" || body == "" {
			return
		}
		records = append(records, model.Record{
			Volume: page.Volume,
			Title:  title,
			Author: model.AuthorUnknown,
			Body:   body,
		})
	})
	return records
}

// siblingText returns the text of the first non-empty element following
// the heading.
func siblingText(heading *goquery.Selection) string {
	var body string
	heading.NextAll().EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			body = text
			return false
		}
		return true
	})
	return body
}
