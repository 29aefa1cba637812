package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpuslab/quantang-cli/internal/config"
	"github.com/corpuslab/quantang-cli/internal/model"
)

func testChain() *Chain {
	return NewChain(config.ExtractConfig{
		BoilerplatePhrases: []string{"打開字典", "電子圖書館"},
		MinLineLength:      4,
	})
}

const containerHTML = `<html><body>
<table width='100%'><tr><td><span class="etext opt">李白著</span></td></tr>
<tr><td><h2>《靜夜思》</h2></td></tr></table>
<table border="0">
<tr><td class="ctext">打開字典 顯示相似段落</td></tr>
<tr><td class="ctext">床前明月光，疑是地上霜。</td></tr>
<tr><td class="ctext">舉頭望明月，低頭思故鄉。</td></tr>
</table>
</body></html>`

func TestChain_ContainerStrategy(t *testing.T) {
	records := testChain().Extract(containerHTML, 165)

	require.Len(t, records, 1)
	assert.Equal(t, 165, records[0].Volume)
	assert.Equal(t, "靜夜思", records[0].Title)
	assert.Equal(t, "李白", records[0].Author)
	assert.Contains(t, records[0].Body, "床前明月光，疑是地上霜。")
	assert.Contains(t, records[0].Body, "舉頭望明月，低頭思故鄉。")
	assert.NotContains(t, records[0].Body, "打開字典")
}

func TestChain_ContainerStrategy_SkipsLibraryLabel(t *testing.T) {
	html := `<html><body>
<table><tr><td><span class="etext opt">電子圖書館</span><h2>《凡例》</h2></td></tr></table>
<table><tr><td class="ctext">此非詩文。</td></tr></table>
</body></html>`

	var s ContainerStrategy
	page := parsePage(t, html)
	assert.Empty(t, s.Extract(page))
}

func TestChain_HeadingFallback(t *testing.T) {
	html := `<html><body>
<div><h2>《郊廟歌辭·祀圜丘樂章》</h2><p>肅肅清廟，巍巍盛唐。</p></div>
</body></html>`

	records := testChain().Extract(html, 10)

	require.Len(t, records, 1)
	assert.Equal(t, "郊廟歌辭·祀圜丘樂章", records[0].Title)
	assert.Equal(t, model.AuthorUnknown, records[0].Author)
	assert.Equal(t, "肅肅清廟，巍巍盛唐。", records[0].Body)
}

func TestChain_HeadingSiblingBlock(t *testing.T) {
	html := `<div><h2>《Title》</h2><p>敕勒川，陰山下。</p></div>`

	records := testChain().Extract(html, 1)

	require.Len(t, records, 1)
	assert.Equal(t, "Title", records[0].Title)
	assert.Equal(t, model.AuthorUnknown, records[0].Author)
}

const positionalHTML = `<table width='100%'><tr>
<td><h2>《<a href="/poem/1">月下獨酌</a>》</h2></td>
<td><span class="etext"><b> 李白</b></span></td>
</tr></table>
<table border="0"><tr><td>
<div id="comm1"></div>花間一壺酒，獨酌無相親。<p class="ctext"></p>
<div id="comm2"></div>舉杯邀明月，對影成三人。<p class="ctext"></p>
</td></tr></table>`

func TestChain_PositionalFallback(t *testing.T) {
	records := testChain().Extract(positionalHTML, 182)

	require.Len(t, records, 1)
	assert.Equal(t, "月下獨酌", records[0].Title)
	assert.Equal(t, "李白", records[0].Author)
	assert.Contains(t, records[0].Body, "花間一壺酒，獨酌無相親。")
	assert.Contains(t, records[0].Body, "舉杯邀明月，對影成三人。")
}

func TestChain_NoRecords(t *testing.T) {
	assert.Empty(t, testChain().Extract("<html><body><p>nothing here</p></body></html>", 1))
}

func TestStripTitleDelimiters(t *testing.T) {
	assert.Equal(t, "靜夜思", stripTitleDelimiters("《靜夜思》"))
	assert.Equal(t, "靜夜思", stripTitleDelimiters("  《 靜夜思 》 "))
	assert.Equal(t, "plain", stripTitleDelimiters("plain"))
}

func TestCleanAuthor(t *testing.T) {
	assert.Equal(t, "李白", cleanAuthor(" 李白著 "))
	assert.Equal(t, "杜甫", cleanAuthor("杜甫"))
}

func parsePage(t *testing.T, html string) Page {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return Page{Doc: doc, Raw: html, Volume: 1}
}
