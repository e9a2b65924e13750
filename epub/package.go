package epub

import (
	"fmt"
	"strconv"

	"github.com/jianyun8023/epubkit/uri"
)

// Prefix is a package-level vocabulary prefix declaration. The name is
// fixed at creation so that references to it cannot drift from the
// declaration; only the URI may be updated.
type Prefix struct {
	name string
	uri  string
}

// Name returns the prefix name.
func (p *Prefix) Name() string { return p.name }

// URI returns the vocabulary URI.
func (p *Prefix) URI() string { return p.uri }

// SetURI updates the vocabulary URI.
func (p *Prefix) SetURI(u string) { p.uri = u }

// Package is the root of the in-memory model, corresponding to the OPF
// <package> element. It owns the metadata, manifest, spine and toc
// sub-trees.
type Package struct {
	epub *Epub

	// location is the absolute percent-encoded container path of the
	// package document, e.g. "/OEBPS/content.opf".
	location         string
	version          EpubVersion
	uniqueIdentifier string
	xmlLang          string
	dir              TextDirection
	prefixes         []*Prefix
	attrs            Attributes

	metadata *Metadata
	manifest *Manifest
	spine    *Spine
	toc      *Toc
}

func newPackage(e *Epub, location string) *Package {
	p := &Package{
		epub:     e,
		location: uri.Normalize(uri.IntoAbsolute(location)),
		version:  NewEpubVersion(Version{Major: 3, Minor: 0}),
	}
	p.metadata = &Metadata{pkg: p, groups: make(map[string][]*MetaEntry)}
	p.manifest = &Manifest{pkg: p, entries: make(map[string]*ManifestEntry)}
	p.spine = &Spine{pkg: p}
	p.toc = &Toc{pkg: p, roots: make(map[TocKey]*TocEntry)}
	return p
}

// Location returns the absolute percent-encoded path of the package
// document within the container.
func (p *Package) Location() Href { return Href(p.location) }

// Directory returns the directory holding the package document; hrefs in
// the manifest and toc resolve against it.
func (p *Package) Directory() string {
	dir := uri.Parent(p.location)
	if dir == "" {
		dir = "/"
	}
	return dir
}

// Version returns the package version.
func (p *Package) Version() EpubVersion { return p.version }

// SetVersion replaces the package version.
func (p *Package) SetVersion(v Version) { p.version = NewEpubVersion(v) }

// UniqueIdentifier returns the id of the dc:identifier entry serving as
// the publication's unique identifier.
func (p *Package) UniqueIdentifier() string { return p.uniqueIdentifier }

// SetUniqueIdentifier points the package at another identifier entry id.
func (p *Package) SetUniqueIdentifier(id string) { p.uniqueIdentifier = id }

// XMLLang returns the package-level language default.
func (p *Package) XMLLang() string { return p.xmlLang }

// SetXMLLang replaces the package-level language default.
func (p *Package) SetXMLLang(lang string) { p.xmlLang = lang }

// TextDirection returns the package-level direction default.
func (p *Package) TextDirection() TextDirection { return p.dir }

// SetTextDirection replaces the package-level direction default.
func (p *Package) SetTextDirection(d TextDirection) { p.dir = d }

// Prefixes returns the declared vocabulary prefixes in order.
func (p *Package) Prefixes() []*Prefix {
	out := make([]*Prefix, len(p.prefixes))
	copy(out, p.prefixes)
	return out
}

// PrefixByName returns the declaration for name, or nil.
func (p *Package) PrefixByName(name string) *Prefix {
	for _, pf := range p.prefixes {
		if pf.name == name {
			return pf
		}
	}
	return nil
}

// AddPrefix declares a vocabulary prefix. Names must be unique.
func (p *Package) AddPrefix(name, u string) (*Prefix, error) {
	if p.PrefixByName(name) != nil {
		return nil, &FormatError{Detail: "duplicate prefix name", Property: name, Err: ErrDuplicateID}
	}
	pf := &Prefix{name: name, uri: u}
	p.prefixes = append(p.prefixes, pf)
	return pf, nil
}

// RemovePrefix drops the declaration for name, reporting whether it
// existed.
func (p *Package) RemovePrefix(name string) bool {
	for i, pf := range p.prefixes {
		if pf.name == name {
			p.prefixes = append(p.prefixes[:i], p.prefixes[i+1:]...)
			return true
		}
	}
	return false
}

// Attributes returns the unrecognized package attributes retained from
// parsing.
func (p *Package) Attributes() *Attributes { return &p.attrs }

// resolveHref resolves an authored href against the package directory,
// returning the absolute percent-encoded form.
func (p *Package) resolveHref(raw string) Href {
	path := uri.StripQueryFragment(raw)
	tail := raw[len(path):]
	return Href(uri.Resolve(p.Directory(), path) + tail)
}

// idExists reports whether id is taken anywhere in the package document:
// metadata entries and their refinements, manifest items, spine itemrefs.
func (p *Package) idExists(id string) bool {
	if id == "" {
		return false
	}
	if e, _ := p.metadata.ByID(id); e != nil {
		return true
	}
	if p.manifest.idExists(id) {
		return true
	}
	for _, s := range p.spine.entries {
		if s.id == id {
			return true
		}
	}
	return false
}

// uniqueID returns id itself when free, otherwise the first free
// id+NUMBER variant.
func (p *Package) uniqueID(id string) string {
	if id == "" {
		id = "id"
	}
	if !p.idExists(id) {
		return id
	}
	for n := 1; ; n++ {
		candidate := id + strconv.Itoa(n)
		if !p.idExists(candidate) {
			return candidate
		}
	}
}

func (p *Package) String() string {
	return fmt.Sprintf("Package(%s, version %s)", p.location, p.version.Raw)
}
