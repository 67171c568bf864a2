// Package vault classifies, initializes, and repairs journal vault
// directories, and owns the wiring between the storage provider, the
// content index, and the entry store.
package vault

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/halvard/skriva/internal/apperr"
	"github.com/halvard/skriva/internal/index"
	"github.com/halvard/skriva/internal/layout"
	"github.com/halvard/skriva/internal/storage"
	"github.com/halvard/skriva/internal/store"
)

// Reserved names inside a vault root. The metadata directory doubles as
// the initialization marker: a directory is a confirmed vault exactly
// when it is present.
const (
	MetadataDir = ".vault-metadata"
	ConfigFile  = "config.json"
	IndexFile   = "index.db"
	AICacheDir  = "ai-cache"
)

// State classifies a candidate directory.
type State int

const (
	// StateEmpty: no vault marker, no entries tree — eligible for fresh
	// vault creation only.
	StateEmpty State = iota
	// StateCompatible: a date-partitioned entries tree without vault
	// metadata; migration synthesizes the metadata and builds the index.
	StateCompatible
	// StateConfirmed: the metadata directory exists — use as-is.
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateCompatible:
		return "compatible"
	default:
		return "empty"
	}
}

// Metadata is the per-vault singleton stored in config.json.
type Metadata struct {
	App           string    `json:"app"`
	SchemaVersion int       `json:"schema_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// Classify inspects a directory and reports whether it is a confirmed
// vault, a compatible entries tree, or empty. A directory that exists but
// holds unrelated content (or cannot be read) yields apperr.ErrVaultState
// so onboarding can distinguish "unusable" from "just empty".
func Classify(path string) (State, error) {
	info, err := os.Stat(path)
	if err != nil {
		return StateEmpty, fmt.Errorf("vault: %w: %v", apperr.ErrVaultState, err)
	}
	if !info.IsDir() {
		return StateEmpty, fmt.Errorf("vault: %w: %s is not a directory", apperr.ErrVaultState, path)
	}

	if fi, err := os.Stat(filepath.Join(path, MetadataDir)); err == nil && fi.IsDir() {
		return StateConfirmed, nil
	}

	if hasEntriesTree(path) {
		return StateCompatible, nil
	}

	names, err := os.ReadDir(path)
	if err != nil {
		return StateEmpty, fmt.Errorf("vault: %w: %v", apperr.ErrVaultState, err)
	}
	if len(names) == 0 {
		return StateEmpty, nil
	}
	return StateEmpty, fmt.Errorf("vault: %w: %s holds unrelated content", apperr.ErrVaultState, path)
}

// hasEntriesTree reports whether path contains at least one entry file at
// the conventional entries/YYYY/MM/YYYY-MM-DD.md location.
func hasEntriesTree(path string) bool {
	entriesDir := filepath.Join(path, layout.EntriesDir)
	years, err := os.ReadDir(entriesDir)
	if err != nil {
		return false
	}
	for _, y := range years {
		if !y.IsDir() {
			continue
		}
		months, err := os.ReadDir(filepath.Join(entriesDir, y.Name()))
		if err != nil {
			continue
		}
		for _, m := range months {
			if !m.IsDir() {
				continue
			}
			files, err := os.ReadDir(filepath.Join(entriesDir, y.Name(), m.Name()))
			if err != nil {
				continue
			}
			for _, f := range files {
				if f.IsDir() || !strings.HasSuffix(f.Name(), layout.Ext) {
					continue
				}
				rel := strings.Join([]string{layout.EntriesDir, y.Name(), m.Name(), f.Name()}, "/")
				if _, ok := layout.DateFor(rel); ok {
					return true
				}
			}
		}
	}
	return false
}

// Initialize creates the metadata subtree and vault config. Idempotent:
// existing directories and config are left untouched.
func Initialize(path string) error {
	for _, dir := range []string{
		filepath.Join(path, MetadataDir),
		filepath.Join(path, MetadataDir, AICacheDir),
		filepath.Join(path, layout.EntriesDir),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("vault: initialize: %w", err)
		}
	}

	cfgPath := filepath.Join(path, MetadataDir, ConfigFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return nil
	}
	meta := Metadata{App: "skriva", SchemaVersion: 1, CreatedAt: time.Now().UTC()}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: initialize: %w", err)
	}
	if err := os.WriteFile(cfgPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("vault: initialize: %w", err)
	}
	return nil
}

// Vault is an opened journal vault: provider, index, and store wired
// together over one root directory.
type Vault struct {
	root   string
	fs     storage.Provider
	idx    *index.DB
	store  *store.Store
	logger *slog.Logger
}

// Open brings a directory to a usable state and opens it. A missing
// directory is created (fresh vault). A compatible tree is migrated: the
// metadata is synthesized and the index built by a reconcile pass.
func Open(path string, logger *slog.Logger) (*Vault, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("vault: open: %w", err)
	}

	state, err := Classify(path)
	if err != nil {
		return nil, err
	}
	migrating := state == StateCompatible

	if err := Initialize(path); err != nil {
		return nil, err
	}

	fs, err := storage.NewFS(path)
	if err != nil {
		return nil, err
	}
	idx, err := index.Open(filepath.Join(path, MetadataDir, IndexFile))
	if err != nil {
		return nil, err
	}

	v := &Vault{
		root:   fs.Root(),
		fs:     fs,
		idx:    idx,
		store:  store.New(fs, idx, logger),
		logger: logger,
	}

	if migrating {
		res, err := v.Reconcile()
		if err != nil {
			v.Close()
			return nil, err
		}
		logger.Info("vault: migrated compatible directory",
			slog.String("path", path), slog.Int("indexed", res.Indexed))
	}
	return v, nil
}

// Store returns the entry store for this vault.
func (v *Vault) Store() *store.Store { return v.store }

// Index returns the content index for this vault.
func (v *Vault) Index() index.EntryIndex { return v.idx }

// Root returns the absolute vault root.
func (v *Vault) Root() string { return v.root }

// Close releases the index database.
func (v *Vault) Close() error {
	return v.idx.Close()
}
