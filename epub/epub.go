// Package epub implements an in-memory object model for EPUB 2 and 3
// publications with a round-trip parse/mutate/serialize pipeline:
// opening an archive builds a strongly-typed package model, mutations
// keep cross-references consistent through cascading updates, and
// writing rebuilds a valid archive.
package epub

import (
	"io"
	"os"
	"strings"

	"github.com/jianyun8023/epubkit/archive"
	"github.com/jianyun8023/epubkit/uri"
)

// OpenOptions tunes parsing.
type OpenOptions struct {
	// Strict rejects publications missing required metadata (identifier,
	// title, language), versions outside [2.0, 4.0), empty manifests or
	// spines, and items lacking required attributes. The default lenient
	// mode recovers where it safely can.
	Strict bool

	// Skip flags short-circuit whole sections to empty sub-models.
	// Skipping the manifest also leaves the toc unparsed, since its
	// source documents are located through the manifest.
	SkipMetadata bool
	SkipManifest bool
	SkipSpine    bool
	SkipToc      bool

	// PreferredToc selects which navigation variant (by major version)
	// the kind-only accessors favor: 2 for NCX, 3 for the nav document.
	// Zero follows the package version.
	PreferredToc int

	// RetainVariants keeps both navigation variants when present.
	// Otherwise only the preferred one is materialized, falling back to
	// the other when the preferred is absent.
	RetainVariants bool
}

// Epub is a fully-owned publication: the package model plus the backing
// archive. Mutations through the model keep both consistent.
type Epub struct {
	arc  *archive.Archive
	pkg  *Package
	opts OpenOptions
}

// Open opens the EPUB at path, which may be a zipped .epub file or an
// unpacked directory, with default options.
func Open(path string) (*Epub, error) {
	return OpenWith(path, OpenOptions{})
}

// OpenWith opens the EPUB at path with explicit options.
func OpenWith(path string, opts OpenOptions) (*Epub, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, formatErr("cannot open publication", err)
	}
	var arc *archive.Archive
	if info.IsDir() {
		arc, err = archive.OpenDir(path)
	} else {
		arc, err = archive.OpenZip(path)
	}
	if err != nil {
		return nil, err
	}
	e, err := openArchive(arc, opts)
	if err != nil {
		arc.Close()
		return nil, err
	}
	return e, nil
}

// openArchive parses an already-opened archive into a publication.
func openArchive(arc *archive.Archive, opts OpenOptions) (*Epub, error) {
	e := &Epub{arc: arc, opts: opts}
	if err := parseInto(e); err != nil {
		return nil, err
	}
	return e, nil
}

// New returns an empty EPUB 3 publication with its package document at
// /OEBPS/content.opf, backed by an in-memory archive.
func New() *Epub {
	e := &Epub{arc: archive.NewMemory()}
	e.pkg = newPackage(e, "/OEBPS/content.opf")
	return e
}

// Close releases the backing archive.
func (e *Epub) Close() error { return e.arc.Close() }

// Package returns the package model root.
func (e *Epub) Package() *Package { return e.pkg }

// Metadata returns the metadata store.
func (e *Epub) Metadata() *Metadata { return e.pkg.metadata }

// Manifest returns the resource catalog.
func (e *Epub) Manifest() *Manifest { return e.pkg.manifest }

// Spine returns the reading order.
func (e *Epub) Spine() *Spine { return e.pkg.spine }

// Toc returns the navigation forest.
func (e *Epub) Toc() *Toc { return e.pkg.toc }

// Resources enumerates the container paths currently in the archive.
func (e *Epub) Resources() []string { return e.arc.Resources() }

// ReadResource returns the raw bytes of the resource at href, which may
// be absolute or relative to the package document, encoded or decoded.
func (e *Epub) ReadResource(href string) ([]byte, error) {
	return e.arc.ReadResource(e.resolveResource(href))
}

// CopyResource streams the resource at href to w.
func (e *Epub) CopyResource(w io.Writer, href string) (int64, error) {
	return e.arc.CopyResource(w, archive.PathKey(e.resolveResource(href)))
}

// InsertResource places content at href without touching the manifest.
func (e *Epub) InsertResource(href string, content []byte) {
	e.arc.Insert(e.resolveResource(href), content)
}

// RemoveResource deletes the resource at href from the archive.
func (e *Epub) RemoveResource(href string) error {
	return e.arc.Remove(e.resolveResource(href))
}

func (e *Epub) resolveResource(href string) string {
	decoded := uri.PercentDecode(uri.StripQueryFragment(href))
	if strings.HasPrefix(decoded, "/") {
		return decoded
	}
	return uri.Resolve(uri.PercentDecode(e.pkg.Directory()), decoded)
}

// SetLocation moves the package document within the container. Already
// existing resources stay where they are; relocate the package document
// before adding resources.
func (e *Epub) SetLocation(location string) error {
	newLoc := uri.Normalize(uri.IntoAbsolute(location))
	old := e.pkg.location
	if newLoc == old {
		return nil
	}
	// The OPF itself is serialized from the model, so only relocate when
	// the archive actually tracks bytes for it.
	oldDecoded := uri.PercentDecode(old)
	if e.arc.Has(oldDecoded) {
		if err := e.arc.Relocate(oldDecoded, uri.PercentDecode(newLoc)); err != nil {
			return err
		}
	}
	e.pkg.location = newLoc
	return nil
}

// Cleanup restores referential integrity after removals: manifest
// fallback and media-overlay references with no target are cleared,
// spine entries whose idref has no target are dropped, and toc nodes
// whose non-external href resolves to no manifest entry are pruned
// (recursively, keeping their still-valid children's subtrees pruned
// with them). Cleanup is idempotent.
func (e *Epub) Cleanup() {
	man := e.pkg.manifest
	for _, entry := range man.Entries() {
		if entry.fallback != "" && !man.idExists(entry.fallback) {
			entry.fallback = ""
		}
		if entry.mediaOverlay != "" && !man.idExists(entry.mediaOverlay) {
			entry.mediaOverlay = ""
		}
	}

	sp := e.pkg.spine
	kept := sp.entries[:0]
	for _, s := range sp.entries {
		if man.idExists(s.idref) {
			kept = append(kept, s)
		} else {
			s.spine = nil
		}
	}
	sp.entries = kept

	for _, key := range e.pkg.toc.order {
		cleanupTocChildren(e.pkg.toc.roots[key], man)
	}
}

func cleanupTocChildren(t *TocEntry, man *Manifest) {
	kept := t.children[:0]
	for _, c := range t.children {
		if tocEntryResolves(c, man) {
			cleanupTocChildren(c, man)
			kept = append(kept, c)
		} else {
			c.detach()
		}
	}
	t.children = kept
}

func tocEntryResolves(t *TocEntry, man *Manifest) bool {
	if t.href.IsEmpty() || t.href.HasScheme() {
		// Heading-only nodes and external links always survive.
		return true
	}
	return man.ByHref(t.href.Path()) != nil
}

