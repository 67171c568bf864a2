package vault

import (
	"fmt"
	"log/slog"

	"github.com/halvard/skriva/internal/checksum"
	"github.com/halvard/skriva/internal/entry"
	"github.com/halvard/skriva/internal/layout"
)

// ReconcileResult summarizes one reconcile pass.
type ReconcileResult struct {
	Scanned int `json:"scanned"`
	Indexed int `json:"indexed"`
	Removed int `json:"removed"`
}

// Reconcile walks the entries tree and converges the index on it: files
// whose body hash differs from the stored row are re-indexed, and rows
// whose file no longer exists are dropped. Files are authoritative
// throughout; per-file failures are logged and skipped so one bad file
// cannot wedge the pass.
func (v *Vault) Reconcile() (ReconcileResult, error) {
	var res ReconcileResult

	metas, err := v.fs.List(layout.EntriesDir)
	if err != nil {
		return res, fmt.Errorf("vault: reconcile: %w", err)
	}
	known, err := v.idx.AllHashes()
	if err != nil {
		return res, fmt.Errorf("vault: reconcile: %w", err)
	}

	onDisk := make(map[entry.Date]struct{}, len(metas))
	for _, m := range metas {
		d, ok := layout.DateFor(m.Path)
		if !ok {
			continue
		}
		res.Scanned++
		onDisk[d] = struct{}{}

		data, err := v.fs.Read(m.Path)
		if err != nil {
			v.logger.Warn("vault: reconcile: read failed",
				slog.String("path", m.Path), slog.Any("error", err))
			continue
		}
		if hash, ok := known[d]; ok && hash == bodyHash(data, d) {
			continue
		}
		if err := v.store.Reindex(d, data); err != nil {
			v.logger.Warn("vault: reconcile: index failed",
				slog.String("date", d.String()), slog.Any("error", err))
			continue
		}
		res.Indexed++
	}

	for d := range known {
		if _, ok := onDisk[d]; ok {
			continue
		}
		if err := v.idx.Delete(d); err != nil {
			v.logger.Warn("vault: reconcile: stale row delete failed",
				slog.String("date", d.String()), slog.Any("error", err))
			continue
		}
		res.Removed++
	}
	return res, nil
}

// bodyHash returns the checksum of the entry body carried in data,
// falling back to the raw bytes when the header does not parse. It must
// agree with what Save and Reindex record as content_hash.
func bodyHash(data []byte, d entry.Date) string {
	e, err := entry.Decode(data, d)
	if err != nil {
		return checksum.Sum(data)
	}
	return checksum.Sum([]byte(e.Body))
}
