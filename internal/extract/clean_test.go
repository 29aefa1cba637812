package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corpuslab/quantang-cli/internal/config"
)

func testCleaner() *Cleaner {
	return NewCleaner(config.ExtractConfig{
		BoilerplatePhrases: []string{"打開字典", "電子圖書館"},
		MinLineLength:      4,
	})
}

func TestClean_DropsBoilerplateAndJunk(t *testing.T) {
	in := "打開字典\n床前明月光，疑是地上霜。\n123456\n----\n1.\nab\n舉頭望明月，低頭思故鄉。"

	out := testCleaner().Clean(in)

	assert.Equal(t, "床前明月光，疑是地上霜。\n舉頭望明月，低頭思故鄉。", out)
}

func TestClean_KeepsShortHanLines(t *testing.T) {
	// Two-character verse fragments are real text even below the length
	// threshold.
	out := testCleaner().Clean("雲山\nab")

	assert.Equal(t, "雲山", out)
}

func TestClean_CollapsesWhitespaceRuns(t *testing.T) {
	out := testCleaner().Clean("床前　　明月光  \t 疑是地上霜")

	assert.Equal(t, "床前 明月光 疑是地上霜", out)
}

func TestClean_DropsBlankLines(t *testing.T) {
	out := testCleaner().Clean("\n\n床前明月光，疑是地上霜。\n\n\n")

	assert.Equal(t, "床前明月光，疑是地上霜。", out)
}
