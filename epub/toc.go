package epub

import "github.com/jianyun8023/epubkit/uri"

// TocKind names a navigation tree variant.
type TocKind string

const (
	TocContents  TocKind = "toc"
	TocLandmarks TocKind = "landmarks"
	TocPageList  TocKind = "page-list"
)

// TocKey identifies one navigation tree: its kind and the major EPUB
// version of the document it was read from (or is destined for).
type TocKey struct {
	Kind TocKind
	// Version is the major EPUB version of the variant: 2 for NCX
	// trees, 3 for nav-document trees.
	Version int
}

// TocEntry is a node of a navigation tree. The root of each tree carries
// the tree's kind and an optional heading label; depth counts from 0 at
// the root.
type TocEntry struct {
	toc  *Toc // nil while detached
	root bool

	id    string
	label string
	// kind is the semantic type (epub:type) of the node. For roots it
	// mirrors the map key and is immutable while attached.
	kind string
	// hrefRaw is the link target as authored; href is its resolved
	// absolute form. A cascaded rewrite clears hrefRaw, because the
	// authored form no longer corresponds to anything.
	hrefRaw  Href
	href     Href
	attrs    Attributes
	children []*TocEntry
}

// ID returns the node's xml id, or "".
func (t *TocEntry) ID() string { return t.id }

// Label returns the display label.
func (t *TocEntry) Label() string { return t.label }

// Kind returns the node's semantic type, or "".
func (t *TocEntry) Kind() string { return t.kind }

// Href returns the resolved absolute link target, or "".
func (t *TocEntry) Href() Href { return t.href }

// HrefRaw returns the link target as authored. It is empty for nodes
// whose target was rewritten by a cascade.
func (t *TocEntry) HrefRaw() Href { return t.hrefRaw }

// Attributes returns the node's additional attributes.
func (t *TocEntry) Attributes() *Attributes { return &t.attrs }

// Children returns the child nodes in document order.
func (t *TocEntry) Children() []*TocEntry {
	out := make([]*TocEntry, len(t.children))
	copy(out, t.children)
	return out
}

// Len reports the direct child count.
func (t *TocEntry) Len() int { return len(t.children) }

// Walk visits the node and all descendants depth-first, stopping early
// when fn returns false.
func (t *TocEntry) Walk(fn func(*TocEntry) bool) bool {
	if !fn(t) {
		return false
	}
	for _, c := range t.children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// ManifestEntry resolves the manifest entry behind the node's href, or
// nil for external or unresolvable targets.
func (t *TocEntry) ManifestEntry() *ManifestEntry {
	if t.toc == nil || t.href.IsEmpty() || t.href.HasScheme() {
		return nil
	}
	return t.toc.pkg.manifest.ByHref(t.href.Path())
}

// SetLabel replaces the display label.
func (t *TocEntry) SetLabel(label string) { t.label = label }

// SetID replaces the node's xml id.
func (t *TocEntry) SetID(id string) { t.id = id }

// SetKind replaces the node's semantic type. The kind of an attached
// root mirrors the forest key and cannot change: for such a node the
// kind is left as it is and SetKind returns false.
func (t *TocEntry) SetKind(kind string) bool {
	if t.root && t.toc != nil {
		return false
	}
	t.kind = kind
	return true
}

// SetHref repoints the node at an href relative to the package document
// (or absolute, or external).
func (t *TocEntry) SetHref(href string) {
	t.hrefRaw = Href(href)
	if t.toc != nil && !uri.HasScheme(href) {
		t.href = t.toc.pkg.resolveHref(href)
	} else {
		t.href = Href(href)
	}
}

// AddChild appends a child built from d and returns it.
func (t *TocEntry) AddChild(d DetachedTocEntry) *TocEntry {
	return t.InsertChild(len(t.children), d)
}

// InsertChild places a child built from d at position i. It panics when
// i is out of range.
func (t *TocEntry) InsertChild(i int, d DetachedTocEntry) *TocEntry {
	if i < 0 || i > len(t.children) {
		panic("epub: toc insert index out of range")
	}
	c := d.build(t.toc)
	t.children = append(t.children, nil)
	copy(t.children[i+1:], t.children[i:])
	t.children[i] = c
	return c
}

// RemoveChild deletes the child at position i and returns it. It panics
// when i is out of range.
func (t *TocEntry) RemoveChild(i int) *TocEntry {
	c := t.children[i]
	t.children = append(t.children[:i], t.children[i+1:]...)
	c.detach()
	return c
}

func (t *TocEntry) detach() {
	t.toc = nil
	t.root = false
	for _, c := range t.children {
		c.detach()
	}
}

func (t *TocEntry) attach(toc *Toc) {
	t.toc = toc
	for _, c := range t.children {
		c.attach(toc)
	}
}

// Toc is the navigation forest: one tree per (kind, version) pair.
type Toc struct {
	pkg   *Package
	order []TocKey
	roots map[TocKey]*TocEntry
}

// Keys returns the populated (kind, version) pairs in insertion order.
func (tc *Toc) Keys() []TocKey {
	out := make([]TocKey, len(tc.order))
	copy(out, tc.order)
	return out
}

// preferredVersion is the major version tried first by the kind-only
// accessors.
func (tc *Toc) preferredVersion() int {
	if tc.pkg.epub != nil && tc.pkg.epub.opts.PreferredToc != 0 {
		return tc.pkg.epub.opts.PreferredToc
	}
	if tc.pkg.version.IsEpub2() {
		return 2
	}
	return 3
}

// ByKindVersion returns the tree for an exact (kind, version) pair, or
// nil.
func (tc *Toc) ByKindVersion(kind TocKind, version int) *TocEntry {
	return tc.roots[TocKey{Kind: kind, Version: version}]
}

// ByKind returns the tree for kind at the preferred version, falling
// back to the other version when the preferred variant is missing.
func (tc *Toc) ByKind(kind TocKind) *TocEntry {
	preferred := tc.preferredVersion()
	if root := tc.ByKindVersion(kind, preferred); root != nil {
		return root
	}
	for _, key := range tc.order {
		if key.Kind == kind {
			return tc.roots[key]
		}
	}
	return nil
}

// Contents returns the table-of-contents tree.
func (tc *Toc) Contents() *TocEntry { return tc.ByKind(TocContents) }

// Landmarks returns the landmarks tree.
func (tc *Toc) Landmarks() *TocEntry { return tc.ByKind(TocLandmarks) }

// PageList returns the page-list tree.
func (tc *Toc) PageList() *TocEntry { return tc.ByKind(TocPageList) }

// CreateRoot returns the tree for (kind, version), creating an empty
// root when missing.
func (tc *Toc) CreateRoot(kind TocKind, version int) *TocEntry {
	key := TocKey{Kind: kind, Version: version}
	if root, ok := tc.roots[key]; ok {
		return root
	}
	root := &TocEntry{toc: tc, root: true, kind: string(kind)}
	tc.roots[key] = root
	tc.order = append(tc.order, key)
	return root
}

// SetRoot replaces (or creates) the tree for (kind, version) with one
// built from d, forcing d's kind to match the key.
func (tc *Toc) SetRoot(kind TocKind, version int, d DetachedTocEntry) *TocEntry {
	d.Kind = string(kind)
	root := d.build(tc)
	root.root = true
	key := TocKey{Kind: kind, Version: version}
	if old, ok := tc.roots[key]; ok {
		old.detach()
	} else {
		tc.order = append(tc.order, key)
	}
	tc.roots[key] = root
	return root
}

// RemoveRoot deletes the tree for (kind, version), returning it detached
// or nil.
func (tc *Toc) RemoveRoot(kind TocKind, version int) *TocEntry {
	key := TocKey{Kind: kind, Version: version}
	root, ok := tc.roots[key]
	if !ok {
		return nil
	}
	delete(tc.roots, key)
	for i, k := range tc.order {
		if k == key {
			tc.order = append(tc.order[:i], tc.order[i+1:]...)
			break
		}
	}
	root.detach()
	return root
}

// rewriteHrefs repoints every node in every retained variant whose
// resolved path matches oldHref's path, preserving query and fragment
// tails. Rewritten nodes lose their authored raw href.
func (tc *Toc) rewriteHrefs(oldHref, newHref Href) {
	oldPath := oldHref.DecodedPath()
	newPath := newHref.Path()
	for _, key := range tc.order {
		tc.roots[key].Walk(func(t *TocEntry) bool {
			if !t.href.IsEmpty() && !t.href.HasScheme() && t.href.DecodedPath() == oldPath {
				t.href = Href(newPath + t.href.QueryFragment())
				t.hrefRaw = ""
			}
			return true
		})
	}
}

// DetachedTocEntry is an owned builder for a navigation node.
type DetachedTocEntry struct {
	ID    string
	Label string
	Kind  string
	// Href is relative to the package document, absolute, or external.
	Href     string
	Attrs    Attributes
	Children []DetachedTocEntry
}

// NewTocEntry builds a detached node with a label and link target.
func NewTocEntry(label, href string) DetachedTocEntry {
	return DetachedTocEntry{Label: label, Href: href}
}

// WithChild returns a copy with an additional child.
func (d DetachedTocEntry) WithChild(c DetachedTocEntry) DetachedTocEntry {
	d.Children = append(d.Children, c)
	return d
}

func (d DetachedTocEntry) build(tc *Toc) *TocEntry {
	t := &TocEntry{
		toc:   tc,
		id:    d.ID,
		label: d.Label,
		kind:  d.Kind,
		attrs: d.Attrs.clone(),
	}
	if d.Href != "" {
		t.hrefRaw = Href(d.Href)
		if tc != nil && !uri.HasScheme(d.Href) {
			t.href = tc.pkg.resolveHref(d.Href)
		} else {
			t.href = Href(d.Href)
		}
	}
	for _, c := range d.Children {
		t.children = append(t.children, c.build(tc))
	}
	return t
}
