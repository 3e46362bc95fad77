package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMoveFilePreservesModTime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "sub", "dst.jpg")
	if err := os.WriteFile(src, []byte("image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatal(err)
	}

	mtime := time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := MoveFile(src, dst); err != nil {
		t.Fatalf("MoveFile() error = %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after move: %v", err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("destination missing: %v", err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("ModTime() = %v, want %v", info.ModTime(), mtime)
	}
}

func TestCopyAndRemovePreservesContentAndModTime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src.png")
	dst := filepath.Join(dir, "dst.png")
	if err := os.WriteFile(src, []byte("png bytes"), 0o640); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2023, 7, 4, 8, 0, 0, 0, time.Local)
	os.Chtimes(src, mtime, mtime)

	if err := copyAndRemove(src, dst); err != nil {
		t.Fatalf("copyAndRemove() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "png bytes" {
		t.Errorf("content = %q", data)
	}
	info, _ := os.Stat(dst)
	if !info.ModTime().Equal(mtime) {
		t.Errorf("ModTime() = %v, want %v", info.ModTime(), mtime)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("Mode() = %v, want 0640", info.Mode().Perm())
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be removed")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := MoveFile(filepath.Join(dir, "gone.jpg"), filepath.Join(dir, "x.jpg"))
	if !os.IsNotExist(err) {
		t.Errorf("MoveFile() error = %v, want not-exist", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "images_log.json")

	if err := WriteFileAtomic(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic() overwrite error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != `{"a":1}` {
		t.Errorf("content = %q", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o644 {
		t.Errorf("Mode() = %v, want 0644", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	t.Parallel()

	err := WriteFileAtomic(filepath.Join(t.TempDir(), "nope", "f.json"), []byte("x"), 0o644)
	if err == nil {
		t.Error("WriteFileAtomic() into missing directory should fail")
	}
}

func TestExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "a.jpg")
	os.WriteFile(file, nil, 0o644)

	if ok, err := Exists(file); err != nil || !ok {
		t.Errorf("Exists(file) = %v, %v", ok, err)
	}
	if ok, err := Exists(filepath.Join(dir, "b.jpg")); err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}
