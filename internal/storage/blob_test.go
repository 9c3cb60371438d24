package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDirStoreStoreAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewDirStore(root, "/files/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	att, err := store.Store(ctx, "../../report final.pdf", strings.NewReader("content"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if att.FileName != "report final.pdf" {
		t.Fatalf("unexpected file name %q", att.FileName)
	}
	if !strings.HasPrefix(att.FileURL, "/files/") {
		t.Fatalf("unexpected url %q", att.FileURL)
	}
	onDisk := filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(att.FileURL, "/files")))
	data, err := os.ReadFile(onDisk)
	if err != nil {
		t.Fatalf("read stored blob: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("unexpected blob content %q", data)
	}

	ok, err := store.Delete(ctx, att.FileURL)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Fatalf("blob still on disk: %v", err)
	}

	ok, err = store.Delete(ctx, att.FileURL)
	if err != nil || ok {
		t.Fatalf("second delete: ok=%v err=%v", ok, err)
	}
}

func TestDirStoreIgnoresForeignURL(t *testing.T) {
	store, err := NewDirStore(t.TempDir(), "/files")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ok, err := store.Delete(context.Background(), "https://elsewhere.example/a.pdf")
	if err != nil || ok {
		t.Fatalf("expected foreign url to be ignored, ok=%v err=%v", ok, err)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"a.pdf", "a.pdf"},
		{"dir/b.txt", "b.txt"},
		{"..\\win\\c.docx", "c.docx"},
		{"what?.md", "what_.md"},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := sanitizeName(tc.in); got != tc.want {
			t.Errorf("sanitizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
