package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomic_Overwrite(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(final, []byte("original"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := WriteAtomic(final, []byte("newcontent")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	got, err := os.ReadFile(final)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "newcontent" {
		t.Fatalf("content = %q", got)
	}
	assertNoTempFiles(t, dir)
}

func TestWriteAtomic_CreatesDirectory(t *testing.T) {
	final := filepath.Join(t.TempDir(), "a", "b", "out.txt")
	if err := WriteAtomic(final, []byte("x")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	info, err := os.Stat(final)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

func TestWriteAtomic_FailureLeavesTargetAlone(t *testing.T) {
	dir := t.TempDir()
	// a non-empty directory cannot be replaced by a file
	final := filepath.Join(dir, "out")
	if err := os.MkdirAll(filepath.Join(final, "keep"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := WriteAtomic(final, []byte("should-not-write")); err == nil {
		t.Fatal("expected WriteAtomic to fail")
	}
	if _, err := os.Stat(filepath.Join(final, "keep")); err != nil {
		t.Fatalf("existing target was disturbed: %v", err)
	}
	assertNoTempFiles(t, dir)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".netsweep-*.tmp"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}
