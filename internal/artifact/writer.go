// Package artifact persists one text file per successfully crawled
// volume. Files are written whole via a temp-file rename so a partially
// written artifact can never be observed. Artifact existence is the
// resumability signal.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/corpuslab/quantang-cli/internal/model"
)

const (
	headerRule = "=================================================="
	recordRule = "------------------------------"
)

// Writer persists volume artifacts under a single output directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "artifact: create output dir %s", dir)
	}
	return &Writer{dir: dir}, nil
}

// Path returns the deterministic artifact path for a volume.
func (w *Writer) Path(volume int) string {
	return filepath.Join(w.dir, fmt.Sprintf("全唐詩_第%03d卷.txt", volume))
}

// Exists reports whether an artifact has already been written for the
// volume. The orchestrator skips such targets without a network call.
func (w *Writer) Exists(volume int) bool {
	info, err := os.Stat(w.Path(volume))
	return err == nil && !info.IsDir()
}

// Write renders the volume's records and commits the file atomically.
func (w *Writer) Write(volume int, records []model.Record, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "全唐詩 第%d卷 (%s)\n", volume, now.Format("2006-01-02 15:04:05"))
	b.WriteString(headerRule + "\n\n")

	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "   作者: %s\n", r.Author)
		fmt.Fprintf(&b, "   內容:\n%s\n", r.Body)
		b.WriteString(recordRule + "\n\n")
	}

	tmp, err := os.CreateTemp(w.dir, ".volume-*.tmp")
	if err != nil {
		return eris.Wrap(err, "artifact: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrapf(err, "artifact: write volume %d", volume)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "artifact: close volume %d", volume)
	}
	if err := os.Rename(tmpName, w.Path(volume)); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "artifact: commit volume %d", volume)
	}
	return nil
}
