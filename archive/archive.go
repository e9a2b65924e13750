// Package archive provides unified random access to the resources of an
// EPUB container, whether it is a zipped .epub file, an unpacked
// directory, or a publication assembled entirely in memory.
//
// All lookups are keyed by absolute, percent-decoded container paths
// ("/OEBPS/chapter 1.xhtml"). An in-memory overlay sits above the backing
// store so that resources can be added, replaced, renamed or removed
// without touching the original archive until serialization.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jianyun8023/epubkit/uri"
)

// ErrNotFound is wrapped by lookups that miss.
var ErrNotFound = errors.New("resource not found")

// Error reports a failed archive operation together with the container
// path it concerned.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("archive: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ResourceKey addresses a resource either by container path or by its
// position in enumeration order.
type ResourceKey struct {
	Path     string
	Position int
	byPos    bool
}

// PathKey addresses a resource by container path.
func PathKey(p string) ResourceKey { return ResourceKey{Path: p} }

// PositionKey addresses a resource by enumeration index.
func PositionKey(i int) ResourceKey { return ResourceKey{Position: i, byPos: true} }

// backing is the read side shared by the zip and directory stores.
// rawCopy transplants an entry's compressed bytes into an output zip
// without re-encoding; stores that cannot do this report ok=false.
type backing interface {
	paths() []string
	copyTo(w io.Writer, path string) (int64, error)
	rawCopy(zw *zip.Writer, entryName, path string) (bool, error)
	io.Closer
}

// Archive layers the mutable overlay over an optional backing store.
type Archive struct {
	mu      sync.Mutex
	backing backing

	inserted    map[string][]byte
	insertOrder []string
	// aliases maps a relocated path to the backing path holding its bytes.
	aliases    map[string]string
	aliasOrder []string
	// removed masks backing paths, including originals of relocations.
	removed map[string]bool
}

func newArchive(b backing) *Archive {
	return &Archive{
		backing:  b,
		inserted: make(map[string][]byte),
		aliases:  make(map[string]string),
		removed:  make(map[string]bool),
	}
}

// NewMemory returns an empty archive with no backing store, used for
// publications assembled from scratch.
func NewMemory() *Archive { return newArchive(nil) }

// OpenZip opens a zipped .epub file.
func OpenZip(path string) (*Archive, error) {
	b, err := openZipBacking(path)
	if err != nil {
		return nil, err
	}
	return newArchive(b), nil
}

// OpenDir opens an unpacked EPUB rooted at dir.
func OpenDir(dir string) (*Archive, error) {
	b, err := openDirBacking(dir)
	if err != nil {
		return nil, err
	}
	return newArchive(b), nil
}

// Close releases the backing store, if any.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.backing == nil {
		return nil
	}
	err := a.backing.Close()
	a.backing = nil
	return err
}

// normKey brings any caller-supplied path to canonical lookup form.
func normKey(p string) string {
	return uri.Normalize(uri.IntoAbsolute(uri.PercentDecode(p)))
}

// Resources enumerates the container paths currently visible: backing
// entries first in archive order, then relocated entries, then inserted
// entries in insertion order.
func (a *Archive) Resources() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resourcesLocked()
}

func (a *Archive) resourcesLocked() []string {
	var out []string
	if a.backing != nil {
		for _, p := range a.backing.paths() {
			if !a.removed[p] {
				out = append(out, p)
			}
		}
	}
	out = append(out, a.aliasOrder...)
	out = append(out, a.insertOrder...)
	return out
}

// Len reports the number of visible resources.
func (a *Archive) Len() int { return len(a.Resources()) }

// Has reports whether path resolves to a resource.
func (a *Archive) Has(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, _, err := a.locate(normKey(path))
	return err == nil
}

// locate resolves a normalized path to either overlay bytes or a backing
// entry path. Caller holds the lock.
func (a *Archive) locate(key string) (data []byte, backingPath string, err error) {
	if d, ok := a.inserted[key]; ok {
		return d, "", nil
	}
	if orig, ok := a.aliases[key]; ok {
		return nil, orig, nil
	}
	if a.backing != nil && !a.removed[key] {
		for _, p := range a.backing.paths() {
			if p == key {
				return nil, p, nil
			}
		}
	}
	return nil, "", ErrNotFound
}

// CopyResource writes the raw bytes of the addressed resource to w and
// returns the byte count.
func (a *Archive) CopyResource(w io.Writer, key ResourceKey) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	path := key.Path
	if key.byPos {
		all := a.resourcesLocked()
		if key.Position < 0 || key.Position >= len(all) {
			return 0, &Error{Op: "copy", Path: fmt.Sprintf("#%d", key.Position), Err: ErrNotFound}
		}
		path = all[key.Position]
	}
	norm := normKey(path)

	data, backingPath, err := a.locate(norm)
	if err != nil {
		return 0, &Error{Op: "copy", Path: norm, Err: err}
	}
	if data != nil {
		n, werr := w.Write(data)
		return int64(n), werr
	}
	n, err := a.backing.copyTo(w, backingPath)
	if err != nil {
		return n, &Error{Op: "copy", Path: norm, Err: err}
	}
	return n, nil
}

// CopyResourceRaw writes the resource at path into zw as entryName,
// transplanting the already-compressed bytes when they still live
// untouched in a backing zip entry. Relocated entries qualify (only the
// name changed); overlay content and directory backings do not, and
// report ok=false so the caller re-encodes.
func (a *Archive) CopyResourceRaw(zw *zip.Writer, entryName, path string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	norm := normKey(path)
	data, backingPath, err := a.locate(norm)
	if err != nil {
		return false, &Error{Op: "copy", Path: norm, Err: err}
	}
	if data != nil || a.backing == nil {
		return false, nil
	}
	ok, err := a.backing.rawCopy(zw, entryName, backingPath)
	if err != nil {
		return false, &Error{Op: "copy", Path: norm, Err: err}
	}
	return ok, nil
}

// ReadResource returns the full contents of the resource at path.
func (a *Archive) ReadResource(path string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := a.CopyResource(&buf, PathKey(path)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Insert places content at path, replacing whatever the path previously
// resolved to.
func (a *Archive) Insert(path string, content []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := normKey(path)
	a.detachLocked(key)
	if _, exists := a.inserted[key]; !exists {
		a.insertOrder = append(a.insertOrder, key)
	}
	a.inserted[key] = content
}

// Remove deletes the resource at path. Removing a missing path reports
// ErrNotFound.
func (a *Archive) Remove(path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := normKey(path)
	if _, _, err := a.locate(key); err != nil {
		return &Error{Op: "remove", Path: key, Err: err}
	}
	a.detachLocked(key)
	return nil
}

// detachLocked makes key resolve to nothing, whatever it pointed at.
func (a *Archive) detachLocked(key string) {
	if _, ok := a.inserted[key]; ok {
		delete(a.inserted, key)
		a.insertOrder = deleteString(a.insertOrder, key)
	}
	if _, ok := a.aliases[key]; ok {
		delete(a.aliases, key)
		a.aliasOrder = deleteString(a.aliasOrder, key)
	}
	a.removed[key] = true
}

// Relocate renames a resource without rereading its bytes. The new path
// replaces anything it previously resolved to.
func (a *Archive) Relocate(oldPath, newPath string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	oldKey, newKey := normKey(oldPath), normKey(newPath)
	if oldKey == newKey {
		return nil
	}
	data, backingPath, err := a.locate(oldKey)
	if err != nil {
		return &Error{Op: "relocate", Path: oldKey, Err: err}
	}
	a.detachLocked(newKey)
	a.detachLocked(oldKey)
	if data != nil {
		a.inserted[newKey] = data
		a.insertOrder = append(a.insertOrder, newKey)
	} else {
		a.aliases[newKey] = backingPath
		a.aliasOrder = append(a.aliasOrder, newKey)
	}
	return nil
}

// IsOverlayResource reports whether path currently resolves to in-memory
// overlay content rather than backing-store bytes.
func (a *Archive) IsOverlayResource(path string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inserted[normKey(path)]
	return ok
}

func deleteString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// dirBacking reads an unpacked EPUB directory.
type dirBacking struct {
	root  string
	names []string // decoded absolute container paths
}

func openDirBacking(dir string) (*dirBacking, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &Error{Op: "open", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Op: "open", Path: dir, Err: errors.New("not a directory")}
	}
	b := &dirBacking{root: dir}
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		b.names = append(b.names, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, &Error{Op: "open", Path: dir, Err: err}
	}
	sort.Strings(b.names)
	return b, nil
}

func (b *dirBacking) paths() []string { return b.names }

func (b *dirBacking) copyTo(w io.Writer, path string) (int64, error) {
	f, err := os.Open(filepath.Join(b.root, filepath.FromSlash(strings.TrimPrefix(path, "/"))))
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

func (b *dirBacking) rawCopy(zw *zip.Writer, entryName, path string) (bool, error) {
	// Directory files carry no precompressed form.
	return false, nil
}

func (b *dirBacking) Close() error { return nil }
