// Package extract turns validated volume HTML into poem records via a
// ranked chain of parsing strategies: structured containers first, then a
// heading fallback, then a last-resort positional regex pass.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/corpuslab/quantang-cli/internal/config"
	"github.com/corpuslab/quantang-cli/internal/model"
)

// Page is the parsed input handed to each strategy. Doc is nil when the
// HTML could not be parsed; the regex strategy still works off Raw.
type Page struct {
	Doc    *goquery.Document
	Raw    string
	Volume int
}

// Strategy is one parsing method in the ranked fallback chain. A strategy
// returns however many records it can find; it never fails.
type Strategy interface {
	Name() string
	Extract(page Page) []model.Record
}

// Chain runs strategies in priority order; the first strategy yielding at
// least one record wins. All records pass post-processing before being
// returned. Extract never errors; worst case it returns an empty slice.
type Chain struct {
	strategies []Strategy
	cleaner    *Cleaner
}

// NewChain builds the default strategy chain: container, heading,
// positional regex.
func NewChain(cfg config.ExtractConfig) *Chain {
	return &Chain{
		strategies: []Strategy{
			&ContainerStrategy{},
			&HeadingStrategy{},
			&PositionalStrategy{},
		},
		cleaner: NewCleaner(cfg),
	}
}

// Extract parses the HTML once and runs the chain over it.
func (c *Chain) Extract(html string, volume int) []model.Record {
	page := Page{Raw: html, Volume: volume}
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		page.Doc = doc
	} else {
		zap.L().Debug("extract: html parse failed, dom strategies skipped",
			zap.Int("volume", volume),
			zap.Error(err),
		)
	}

	for _, s := range c.strategies {
		records := c.finalize(s.Extract(page))
		if len(records) > 0 {
			zap.L().Debug("extract: strategy matched",
				zap.String("strategy", s.Name()),
				zap.Int("volume", volume),
				zap.Int("records", len(records)),
			)
			return records
		}
	}
	return nil
}

// finalize cleans each record's text and drops records whose title or
// body ends up empty.
func (c *Chain) finalize(records []model.Record) []model.Record {
	var out []model.Record
	for _, r := range records {
		r.Title = strings.TrimSpace(r.Title)
		r.Author = strings.TrimSpace(r.Author)
		if r.Author == "" {
			r.Author = model.AuthorUnknown
		}
		r.Body = c.cleaner.Clean(r.Body)
		if r.Title == "" || r.Body == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// stripTitleDelimiters removes the enclosing 《》 bracket pair (and plain
// ASCII variants) from a heading title.
func stripTitleDelimiters(title string) string {
	title = strings.TrimSpace(title)
	for _, pair := range [][2]string{{"《", "》"}, {"«", "»"}, {"<", ">"}} {
		if strings.HasPrefix(title, pair[0]) && strings.HasSuffix(title, pair[1]) {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(title, pair[0]), pair[1]))
		}
	}
	return title
}

// isDelimitedTitle reports whether a heading's text is a 《…》 delimited
// title with non-empty content.
func isDelimitedTitle(text string) bool {
	text = strings.TrimSpace(text)
	return strings.HasPrefix(text, "《") && strings.HasSuffix(text, "》") &&
		len(text) > len("《")+len("》")
}

// cleanAuthor strips the trailing attribution particle and whitespace
// from an author cell (e.g. "李白著" → "李白").
func cleanAuthor(author string) string {
	author = strings.TrimSpace(author)
	author = strings.TrimSuffix(author, "著")
	return strings.TrimSpace(author)
}
