package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpuslab/quantang-cli/internal/model"
)

func testRecords() []model.Record {
	return []model.Record{
		{Volume: 5, Title: "靜夜思", Author: "李白", Body: "床前明月光，疑是地上霜。\n舉頭望明月，低頭思故鄉。"},
		{Volume: 5, Title: "怨情", Author: "李白", Body: "美人捲珠簾，深坐蹙蛾眉。"},
	}
}

func TestWriter_WriteAndExists(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	assert.False(t, w.Exists(5))

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.Write(5, testRecords(), now))

	assert.True(t, w.Exists(5))
	assert.Equal(t, filepath.Join(dir, "全唐詩_第005卷.txt"), w.Path(5))

	data, err := os.ReadFile(w.Path(5))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "全唐詩 第5卷 (2026-08-26 12:00:00)")
	assert.Contains(t, content, "1. 靜夜思")
	assert.Contains(t, content, "   作者: 李白")
	assert.Contains(t, content, "床前明月光，疑是地上霜。")
	assert.Contains(t, content, "2. 怨情")
}

func TestWriter_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.Write(7, testRecords(), time.Now()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "全唐詩_第007卷.txt", entries[0].Name())
}

func TestWriter_OverwriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.Write(9, testRecords()[:1], time.Now()))
	require.NoError(t, w.Write(9, testRecords(), time.Now()))

	data, err := os.ReadFile(w.Path(9))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2. 怨情")
}

func TestNewWriter_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "volumes")

	_, err := NewWriter(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
