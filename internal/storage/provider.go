// Package storage defines the vault file-system abstraction.
package storage

import "time"

// FileMeta describes one entry file found by List.
type FileMeta struct {
	// Path is vault-relative with forward slashes.
	Path     string
	Checksum string
	ModTime  time.Time
}

// Provider is the interface for vault file operations. All paths are
// relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir, skipping
	// dot-directories (the metadata subtree is never scanned).
	List(dir string) ([]FileMeta, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically replaces the file at path, creating parent
	// directories as needed.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Root returns the absolute vault root.
	Root() string
}
