package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guide.md", "hello")
	writeFile(t, dir, "notes.txt", "hello")
	writeFile(t, dir, "image.png", "binary")
	writeFile(t, dir, "sub/deep.md", "hello")
	writeFile(t, dir, ".git/config.md", "ignore me")

	w := NewWalker([]string{"**/*.md", "**/*.txt"}, []string{"**/.git/**"})
	files, err := w.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d: %+v", len(files), files)
	}

	names := make(map[string]bool)
	for _, f := range files {
		rel, _ := filepath.Rel(dir, f.Path)
		names[filepath.ToSlash(rel)] = true
	}
	for _, want := range []string{"guide.md", "notes.txt", "sub/deep.md"} {
		if !names[want] {
			t.Errorf("missing %s in walk results", want)
		}
	}
	if names["image.png"] {
		t.Error("png should not match include patterns")
	}
}

func TestWalkerDeterministicOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "b")
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "c.md", "c")

	w := NewWalker([]string{"**/*.md"}, nil)
	files, err := w.Walk(dir)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i < len(files); i++ {
		if files[i-1].Path > files[i].Path {
			t.Errorf("files out of order: %s before %s", files[i-1].Path, files[i].Path)
		}
	}
}

func TestWalkerMissingRoot(t *testing.T) {
	w := NewWalker(nil, nil)
	if _, err := w.Walk(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.txt", "content here")

	got, err := ReadFile(filepath.Join(dir, "doc.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "content here" {
		t.Errorf("got %q", got)
	}
}
