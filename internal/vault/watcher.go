package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halvard/skriva/internal/entry"
	"github.com/halvard/skriva/internal/layout"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, d entry.Date)

// renameSettle is how long the watcher waits after a rename burst before
// running a full reconcile pass.
const renameSettle = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the entries tree and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each index mutation caused by an on-disk change.
//
// Events for files whose body already matches the indexed row are dropped,
// so the vault's own saves do not echo back as external changes. New
// month and year directories created at runtime are added to the watch
// list. Rename events trigger a debounced reconcile pass that removes
// stale rows whose files no longer exist.
func (v *Vault) Watch(ctx context.Context, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	entriesRoot := filepath.Join(v.root, layout.EntriesDir)
	if err := addDirsRecursive(w, entriesRoot); err != nil {
		return err
	}

	v.logger.Info("watcher: started", slog.String("root", entriesRoot))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(renameSettle)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(renameSettle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			v.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			v.reconcileAfterRename(cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			// New directories (year or month buckets) join the watch list.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						v.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						v.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					v.indexNewDir(absPath, cb)
					continue
				}
			}

			d, ok := v.dateOf(absPath)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				v.handleChanged(d, kind, cb)

			case ev.Op&fsnotify.Remove != 0:
				if delErr := v.idx.Delete(d); delErr != nil {
					v.logger.Warn("watcher: delete failed", slog.String("date", d.String()), slog.String("error", delErr.Error()))
					continue
				}
				v.logger.Debug("watcher: deleted", slog.String("date", d.String()))
				if cb != nil {
					cb("deleted", d)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new path
				// arrives as a separate Create event if it lands inside the
				// entries tree. Drop the old row now and let a short
				// reconcile pass catch stragglers.
				if delErr := v.idx.Delete(d); delErr != nil {
					v.logger.Warn("watcher: rename delete failed", slog.String("date", d.String()), slog.String("error", delErr.Error()))
				} else {
					v.logger.Debug("watcher: rename old deleted", slog.String("date", d.String()))
					if cb != nil {
						cb("deleted", d)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			v.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// dateOf maps an absolute event path to the entry date it stores, or
// reports false for anything outside the entries layout (temp files,
// metadata, stray content).
func (v *Vault) dateOf(absPath string) (entry.Date, bool) {
	if !strings.HasSuffix(absPath, layout.Ext) {
		return entry.Date{}, false
	}
	rel, err := filepath.Rel(v.root, absPath)
	if err != nil {
		return entry.Date{}, false
	}
	return layout.DateFor(filepath.ToSlash(rel))
}

// handleChanged re-indexes a created or modified entry file, skipping
// changes whose body already matches the indexed row.
func (v *Vault) handleChanged(d entry.Date, kind string, cb EventCallback) {
	data, err := v.fs.Read(layout.PathFor(d))
	if err != nil {
		v.logger.Warn("watcher: read failed", slog.String("date", d.String()), slog.String("error", err.Error()))
		return
	}
	if row, err := v.idx.Get(d); err == nil && row != nil && row.ContentHash == bodyHash(data, d) {
		return
	}
	if err := v.store.Reindex(d, data); err != nil {
		v.logger.Warn("watcher: index failed", slog.String("date", d.String()), slog.String("error", err.Error()))
		return
	}
	v.logger.Debug("watcher: indexed", slog.String("date", d.String()), slog.String("op", kind))
	if cb != nil {
		cb(kind, d)
	}
}

// reconcileAfterRename runs a full reconcile and reports its mutations
// through the callback as synthetic deleted/updated events.
func (v *Vault) reconcileAfterRename(cb EventCallback) {
	before, err := v.idx.Dates()
	if err != nil {
		v.logger.Warn("watcher: reconcile: dates failed", slog.String("error", err.Error()))
		return
	}
	res, err := v.Reconcile()
	if err != nil {
		v.logger.Warn("watcher: reconcile failed", slog.String("error", err.Error()))
		return
	}
	if res.Indexed == 0 && res.Removed == 0 {
		return
	}
	v.logger.Debug("watcher: reconciled after rename",
		slog.Int("indexed", res.Indexed), slog.Int("removed", res.Removed))
	if cb == nil {
		return
	}
	after, err := v.idx.Dates()
	if err != nil {
		return
	}
	for d := range before {
		if _, ok := after[d]; !ok {
			cb("deleted", d)
		}
	}
	for d := range after {
		if _, ok := before[d]; !ok {
			cb("created", d)
		}
	}
}

// indexNewDir indexes any entry files found in a newly created directory.
func (v *Vault) indexNewDir(dirPath string, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, de fs.DirEntry, err error) error {
		if err != nil || de.IsDir() {
			return nil
		}
		if d, ok := v.dateOf(path); ok {
			v.handleChanged(d, "created", cb)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
