package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f, dir
}

func TestWriteRead(t *testing.T) {
	f, _ := testFS(t)
	if err := f.Write("entries/2025/01/2025-01-15.md", []byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := f.Read("entries/2025/01/2025-01-15.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

func TestWrite_Overwrite(t *testing.T) {
	f, dir := testFS(t)
	_ = f.Write("a.md", []byte("one"))
	_ = f.Write("a.md", []byte("two"))
	data, _ := f.Read("a.md")
	if string(data) != "two" {
		t.Errorf("data = %q, want last write", data)
	}
	// No temp files left behind.
	matches, _ := filepath.Glob(filepath.Join(dir, ".skriva-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestRead_NotExist(t *testing.T) {
	f, _ := testFS(t)
	_, err := f.Read("entries/2025/01/2025-01-15.md")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestSafePath_Traversal(t *testing.T) {
	f, _ := testFS(t)
	if err := f.Write("../outside.md", []byte("x")); err == nil {
		t.Error("traversal write allowed")
	}
	if _, err := f.Read("/etc/passwd"); err == nil {
		t.Error("absolute read allowed")
	}
}

func TestList_SkipsDotDirsAndForeignFiles(t *testing.T) {
	f, dir := testFS(t)
	_ = f.Write("entries/2025/01/2025-01-15.md", []byte("a"))
	_ = f.Write("entries/2025/01/notes.txt", []byte("b"))
	_ = os.MkdirAll(filepath.Join(dir, ".vault-metadata"), 0o755)
	_ = os.WriteFile(filepath.Join(dir, ".vault-metadata", "stray.md"), []byte("c"), 0o644)

	metas, err := f.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 1 || metas[0].Path != "entries/2025/01/2025-01-15.md" {
		t.Errorf("metas = %+v", metas)
	}
	if metas[0].Checksum == "" {
		t.Error("checksum empty")
	}
}

func TestList_MissingDir(t *testing.T) {
	f, _ := testFS(t)
	metas, err := f.List("entries")
	if err != nil {
		t.Fatalf("List on missing dir: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("metas = %+v", metas)
	}
}

func TestMove(t *testing.T) {
	f, _ := testFS(t)
	_ = f.Write("entries/2025/01/2025-01-15.md", []byte("x"))
	if err := f.Move("entries/2025/01/2025-01-15.md", "entries/2025/02/2025-02-01.md"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := f.Read("entries/2025/01/2025-01-15.md"); err == nil {
		t.Error("old path still readable")
	}
	if _, err := f.Read("entries/2025/02/2025-02-01.md"); err != nil {
		t.Errorf("new path unreadable: %v", err)
	}
}
