// Package ledger persists the failure ledger: the volumes that exhausted
// their retry budget, kept for a later idempotent retry pass.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// Entry is one exhausted target.
type Entry struct {
	Volume      int       `json:"volume"`
	LastOutcome string    `json:"last_outcome"`
	Retries     int       `json:"retries"`
	FailedAt    time.Time `json:"failed_at"`
}

type fileFormat struct {
	FailedVolumes []Entry   `json:"failed_volumes"`
	UpdatedAt     time.Time `json:"last_updated"`
}

// Ledger is an in-memory view of the failure ledger file. Not safe for
// concurrent use; the orchestrator is the only writer.
type Ledger struct {
	path    string
	entries map[int]Entry
}

// Load reads the ledger file. A missing file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	l := &Ledger{path: path, entries: map[int]Entry{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, eris.Wrapf(err, "ledger: read %s", path)
	}

	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, eris.Wrapf(err, "ledger: parse %s", path)
	}
	for _, e := range ff.FailedVolumes {
		l.entries[e.Volume] = e
	}
	return l, nil
}

// Record adds or replaces the entry for a volume.
func (l *Ledger) Record(e Entry) {
	l.entries[e.Volume] = e
}

// Remove deletes a volume's entry, typically after a retry pass
// succeeds.
func (l *Ledger) Remove(volume int) {
	delete(l.entries, volume)
}

// Volumes returns the ledgered volume numbers in ascending order.
func (l *Ledger) Volumes() []int {
	vols := make([]int, 0, len(l.entries))
	for v := range l.entries {
		vols = append(vols, v)
	}
	sort.Ints(vols)
	return vols
}

// Entries returns all entries ordered by volume.
func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, 0, len(l.entries))
	for _, v := range l.Volumes() {
		entries = append(entries, l.entries[v])
	}
	return entries
}

// Len returns the number of ledgered volumes.
func (l *Ledger) Len() int { return len(l.entries) }

// Save writes the ledger atomically (temp file + rename).
func (l *Ledger) Save() error {
	ff := fileFormat{FailedVolumes: l.Entries(), UpdatedAt: time.Now()}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return eris.Wrap(err, "ledger: marshal")
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return eris.Wrap(err, "ledger: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "ledger: write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "ledger: close")
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "ledger: commit %s", l.path)
	}
	return nil
}
