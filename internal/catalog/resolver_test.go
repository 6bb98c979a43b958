package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vectortube/internal/errs"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestPathResolver_Resolve_CreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads", "nested")
	r := NewPathResolver(root, fixedClock(1700000000000))

	got, err := r.Resolve("cat.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	info, err := os.Stat(got.Dir)
	if err != nil {
		t.Fatalf("directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", got.Dir)
	}
	if !filepath.IsAbs(got.Dir) {
		t.Errorf("expected absolute dir, got %s", got.Dir)
	}
	if got.Name != "1700000000000-cat.png" {
		t.Errorf("expected name 1700000000000-cat.png, got %s", got.Name)
	}
}

func TestPathResolver_Resolve_ExistingDirectory(t *testing.T) {
	root := t.TempDir()
	r := NewPathResolver(root, fixedClock(1))

	for i := 0; i < 2; i++ {
		if _, err := r.Resolve("a.jpg"); err != nil {
			t.Fatalf("resolve %d: unexpected error: %v", i, err)
		}
	}
}

func TestPathResolver_Resolve_RootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(root, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewPathResolver(root, nil)

	_, err := r.Resolve("a.png")
	if !errs.Is(err, errs.IO) {
		t.Fatalf("expected io failure, got %v", err)
	}
}

func TestPathResolver_Resolve_SameMillisecondSameName(t *testing.T) {
	r := NewPathResolver(t.TempDir(), fixedClock(42))

	a, _ := r.Resolve("dup.png")
	b, _ := r.Resolve("dup.png")
	if a.Name != b.Name {
		t.Errorf("expected identical names within one millisecond, got %s and %s", a.Name, b.Name)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cat.png", "cat.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\photo.jpg`, "photo.jpg"},
		{"/abs/path/x.png", "x.png"},
		{".hidden.png", "hidden.png"},
		{"..", "upload"},
		{"", "upload"},
		{"a\x00b.png", "a_b.png"},
		{"with space.png", "with space.png"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := sanitizeName(tt.in); got != tt.want {
				t.Errorf("sanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
