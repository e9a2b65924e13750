package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// writeTestZip builds a minimal zipped container on disk.
func writeTestZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "*.epub")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	w := zip.NewWriter(f)
	// mimetype first, stored, like a real container.
	m, _ := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	m.Write([]byte("application/epub+zip"))
	for name, content := range entries {
		e, err := w.Create(name)
		if err != nil {
			t.Fatalf("Create %s failed: %v", name, err)
		}
		e.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close zip failed: %v", err)
	}
	f.Close()
	return f.Name()
}

func TestOpenZipReadResource(t *testing.T) {
	path := writeTestZip(t, map[string]string{
		"OEBPS/c1.xhtml": "<html/>",
	})
	a, err := OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip failed: %v", err)
	}
	defer a.Close()

	data, err := a.ReadResource("/OEBPS/c1.xhtml")
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if string(data) != "<html/>" {
		t.Errorf("Expected '<html/>', got %q", data)
	}

	// Relative and encoded forms resolve to the same entry.
	if _, err := a.ReadResource("OEBPS/c1.xhtml"); err != nil {
		t.Errorf("relative lookup failed: %v", err)
	}
	if !a.Has("/OEBPS/../OEBPS/c1.xhtml") {
		t.Error("normalized lookup failed")
	}
}

func TestPercentEncodedLookup(t *testing.T) {
	path := writeTestZip(t, map[string]string{
		"OEBPS/file name with spaces.css": "body{}",
	})
	a, err := OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip failed: %v", err)
	}
	defer a.Close()

	plain, err := a.ReadResource("/OEBPS/file name with spaces.css")
	if err != nil {
		t.Fatalf("decoded lookup failed: %v", err)
	}
	encoded, err := a.ReadResource("/OEBPS/file%20name%20with%20spaces.css")
	if err != nil {
		t.Fatalf("encoded lookup failed: %v", err)
	}
	if !bytes.Equal(plain, encoded) {
		t.Error("decoded and encoded lookups returned different bytes")
	}
}

func TestOverlayInsertRemove(t *testing.T) {
	a := NewMemory()
	a.Insert("/OEBPS/new.css", []byte("p{}"))

	if !a.IsOverlayResource("/OEBPS/new.css") {
		t.Error("Expected overlay resource")
	}
	data, err := a.ReadResource("OEBPS/new.css")
	if err != nil || string(data) != "p{}" {
		t.Errorf("ReadResource = %q, %v", data, err)
	}

	if err := a.Remove("/OEBPS/new.css"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := a.ReadResource("/OEBPS/new.css"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := a.Remove("/OEBPS/new.css"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double remove, got %v", err)
	}
}

func TestRelocate(t *testing.T) {
	path := writeTestZip(t, map[string]string{
		"OEBPS/c1.xhtml": "<html/>",
	})
	a, err := OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip failed: %v", err)
	}
	defer a.Close()

	if err := a.Relocate("/OEBPS/c1.xhtml", "/OEBPS/text/c1.xhtml"); err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}
	if a.Has("/OEBPS/c1.xhtml") {
		t.Error("old path still resolves after relocate")
	}
	data, err := a.ReadResource("/OEBPS/text/c1.xhtml")
	if err != nil || string(data) != "<html/>" {
		t.Errorf("relocated read = %q, %v", data, err)
	}

	// Overlay resources relocate too.
	a.Insert("/a.txt", []byte("x"))
	if err := a.Relocate("/a.txt", "/b.txt"); err != nil {
		t.Fatalf("Relocate overlay failed: %v", err)
	}
	if a.Has("/a.txt") || !a.Has("/b.txt") {
		t.Error("overlay relocate left wrong paths")
	}
}

func TestResourcesOrder(t *testing.T) {
	path := writeTestZip(t, map[string]string{
		"OEBPS/c1.xhtml": "a",
	})
	a, err := OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip failed: %v", err)
	}
	defer a.Close()

	a.Insert("/OEBPS/x.css", []byte("x"))
	a.Insert("/OEBPS/y.css", []byte("y"))

	got := a.Resources()
	want := []string{"/mimetype", "/OEBPS/c1.xhtml", "/OEBPS/x.css", "/OEBPS/y.css"}
	if len(got) != len(want) {
		t.Fatalf("Resources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Resources[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Position keys follow the same order.
	var buf bytes.Buffer
	if _, err := a.CopyResource(&buf, PositionKey(2)); err != nil {
		t.Fatalf("CopyResource by position failed: %v", err)
	}
	if buf.String() != "x" {
		t.Errorf("PositionKey(2) = %q, want 'x'", buf.String())
	}
	if _, err := a.CopyResource(&buf, PositionKey(99)); err == nil {
		t.Error("Expected error for out-of-range position")
	}
}

func TestCopyResourceRaw(t *testing.T) {
	path := writeTestZip(t, map[string]string{
		"OEBPS/c1.xhtml": "<html>raw copy survives</html>",
	})
	a, err := OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip failed: %v", err)
	}
	defer a.Close()
	a.Insert("/OEBPS/new.css", []byte("p{}"))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// Untouched backing entries raw-copy.
	done, err := a.CopyResourceRaw(zw, "OEBPS/c1.xhtml", "/OEBPS/c1.xhtml")
	if err != nil || !done {
		t.Fatalf("CopyResourceRaw = %v, %v", done, err)
	}
	// Overlay content cannot; the caller re-encodes.
	done, err = a.CopyResourceRaw(zw, "OEBPS/new.css", "/OEBPS/new.css")
	if err != nil || done {
		t.Fatalf("overlay CopyResourceRaw = %v, %v", done, err)
	}
	// A relocated backing entry still raw-copies, under the new name.
	if err := a.Relocate("/OEBPS/c1.xhtml", "/OEBPS/moved.xhtml"); err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}
	done, err = a.CopyResourceRaw(zw, "OEBPS/moved.xhtml", "/OEBPS/moved.xhtml")
	if err != nil || !done {
		t.Fatalf("relocated CopyResourceRaw = %v, %v", done, err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The transplanted entries decompress to the original bytes and keep
	// their original method.
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	for _, name := range []string{"OEBPS/c1.xhtml", "OEBPS/moved.xhtml"} {
		var found bool
		for _, f := range zr.File {
			if f.Name != name {
				continue
			}
			found = true
			if f.Method != zip.Deflate {
				t.Errorf("%s: method = %d, want original deflate", name, f.Method)
			}
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open %s failed: %v", name, err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != "<html>raw copy survives</html>" {
				t.Errorf("%s: content = %q", name, data)
			}
		}
		if !found {
			t.Errorf("%s missing from output", name)
		}
	}
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "OEBPS"), 0o755)
	os.WriteFile(filepath.Join(dir, "OEBPS", "c1.xhtml"), []byte("<html/>"), 0o644)

	a, err := OpenDir(dir)
	if err != nil {
		t.Fatalf("OpenDir failed: %v", err)
	}
	defer a.Close()

	data, err := a.ReadResource("/OEBPS/c1.xhtml")
	if err != nil || string(data) != "<html/>" {
		t.Errorf("ReadResource = %q, %v", data, err)
	}
}
