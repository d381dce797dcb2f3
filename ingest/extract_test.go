package ingest

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
)

func buildZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
}

func buildTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "frames.zip")
	buildZip(t, archive, map[string]string{
		"frame1.png":        "one",
		"nested/frame2.png": "two",
	})

	dest := filepath.Join(dir, "out")
	if err := ExtractArchive(archive, dest); err != nil {
		t.Fatalf("ExtractArchive: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dest, "frame1.png"))
	if err != nil || string(got) != "one" {
		t.Errorf("frame1.png = %q, %v; want %q", got, err, "one")
	}
	got, err = os.ReadFile(filepath.Join(dest, "nested", "frame2.png"))
	if err != nil || string(got) != "two" {
		t.Errorf("nested/frame2.png = %q, %v; want %q", got, err, "two")
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "frames.tar.gz")
	buildTarGz(t, archive, map[string]string{"frame1.png": "payload"})

	dest := filepath.Join(dir, "out")
	if err := ExtractArchive(archive, dest); err != nil {
		t.Fatalf("ExtractArchive: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "frame1.png"))
	if err != nil || string(got) != "payload" {
		t.Errorf("frame1.png = %q, %v; want %q", got, err, "payload")
	}
}

func TestExtractArchiveRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "frames.rar")
	if err := os.WriteFile(archive, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ExtractArchive(archive, filepath.Join(dir, "out")); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestExtractZipRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	buildZip(t, archive, map[string]string{"../escape.txt": "nope"})

	dest := filepath.Join(dir, "out")
	if err := ExtractArchive(archive, dest); err == nil {
		t.Fatal("entry escaping the destination should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.txt")); err == nil {
		t.Error("escaping entry was written outside the destination")
	}
}

func TestSecurePath(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"frame.png", false},
		{"a/b/frame.png", false},
		{"../outside", true},
		{"a/../../outside", true},
	}
	for _, tt := range tests {
		_, err := securePath(filepath.Join("base", "dest"), tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("securePath(%q) error = %v; wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}
