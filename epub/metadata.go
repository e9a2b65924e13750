package epub

import "strings"

// MetaEntryKind distinguishes how a metadata entry is expressed in XML.
type MetaEntryKind int

const (
	// DublinCore is a <dc:*> element.
	DublinCore MetaEntryKind = iota
	// Meta2 is a legacy <meta name="…" content="…"/> element.
	Meta2
	// Meta3 is a <meta property="…">…</meta> element.
	Meta3
	// LinkEntry is a <link rel="…" href="…"/> element.
	LinkEntry
)

func (k MetaEntryKind) String() string {
	switch k {
	case DublinCore:
		return "dublin-core"
	case Meta2:
		return "meta (epub 2)"
	case Meta3:
		return "meta (epub 3)"
	case LinkEntry:
		return "link"
	default:
		return "unknown"
	}
}

// MetaEntry is a single metadata statement: a Dublin Core element, a
// meta element of either generation, or a link. Refinements are nested
// entries that qualify this one; the refines="#id" linkage is implicit
// in memory and re-emitted at serialization.
type MetaEntry struct {
	meta *Metadata // nil while detached

	id       string
	property string
	value    string
	lang     string
	dir      TextDirection
	attrs    Attributes
	refines  []*MetaEntry
	kind     MetaEntryKind
}

// ID returns the entry's xml id, or "".
func (m *MetaEntry) ID() string { return m.id }

// Property returns the entry's property: the qualified element name for
// Dublin Core ("dc:title"), the property attribute for EPUB 3 meta, the
// name attribute for EPUB 2 meta, and the rel attribute for links.
func (m *MetaEntry) Property() string { return m.property }

// Value returns the entry's text value. Links keep their value empty;
// their href lives in the attributes.
func (m *MetaEntry) Value() string { return m.value }

// Language returns the entry language, falling back to the package
// default when the entry has none of its own.
func (m *MetaEntry) Language() string {
	if m.lang != "" {
		return m.lang
	}
	if m.meta != nil {
		return m.meta.pkg.xmlLang
	}
	return ""
}

// TextDirection returns the entry direction, falling back to the package
// default.
func (m *MetaEntry) TextDirection() TextDirection {
	if m.dir != DirAuto {
		return m.dir
	}
	if m.meta != nil {
		return m.meta.pkg.dir
	}
	return DirAuto
}

// Kind reports how the entry is expressed in XML.
func (m *MetaEntry) Kind() MetaEntryKind { return m.kind }

// Attributes returns the entry's additional attributes.
func (m *MetaEntry) Attributes() *Attributes { return &m.attrs }

// Refinements returns the entries refining this one, in order.
func (m *MetaEntry) Refinements() []*MetaEntry {
	out := make([]*MetaEntry, len(m.refines))
	copy(out, m.refines)
	return out
}

// Refinement returns the first refinement with the given property.
// Cycles introduced by hand-built stores are broken by a visited set.
func (m *MetaEntry) Refinement(property string) *MetaEntry {
	return m.refinement(property, make(map[*MetaEntry]bool))
}

func (m *MetaEntry) refinement(property string, seen map[*MetaEntry]bool) *MetaEntry {
	if seen[m] {
		return nil
	}
	seen[m] = true
	for _, r := range m.refines {
		if r.property == property {
			return r
		}
	}
	return nil
}

// refinementValue returns the trimmed value of the named refinement, or
// "" when absent.
func (m *MetaEntry) refinementValue(property string) string {
	if r := m.Refinement(property); r != nil {
		return r.value
	}
	return ""
}

// legacyOr returns the refinement value for property, falling back to
// the legacy opf:* attribute when the refinement is absent.
func (m *MetaEntry) legacyOr(property, legacyAttr string) string {
	if v := m.refinementValue(property); v != "" {
		return v
	}
	return m.attrs.Value(legacyAttr)
}

// FileAs returns the sort form of the value, from the file-as refinement
// or the legacy opf:file-as attribute.
func (m *MetaEntry) FileAs() string { return m.legacyOr("file-as", "opf:file-as") }

// Metadata is the package metadata store: an insertion-ordered mapping
// from property to the ordered entries declaring it.
type Metadata struct {
	pkg    *Package
	order  []string
	groups map[string][]*MetaEntry
}

// Len reports the number of top-level entries.
func (md *Metadata) Len() int {
	n := 0
	for _, g := range md.groups {
		n += len(g)
	}
	return n
}

// Entries returns all top-level entries: properties in first-insertion
// order, entries within a property in insertion order.
func (md *Metadata) Entries() []*MetaEntry {
	var out []*MetaEntry
	for _, prop := range md.order {
		out = append(out, md.groups[prop]...)
	}
	return out
}

// ByProperty returns the entries declaring property, in order.
func (md *Metadata) ByProperty(property string) []*MetaEntry {
	g := md.groups[property]
	out := make([]*MetaEntry, len(g))
	copy(out, g)
	return out
}

// FirstByProperty returns the first entry declaring property, or nil.
func (md *Metadata) FirstByProperty(property string) *MetaEntry {
	if g := md.groups[property]; len(g) > 0 {
		return g[0]
	}
	return nil
}

// ByID finds an entry by id anywhere in the store, descending into
// refinements depth-first. For a refinement match, refinesID is the id
// of its refined parent; it is "" for top-level matches.
func (md *Metadata) ByID(id string) (entry *MetaEntry, refinesID string) {
	if id == "" {
		return nil, ""
	}
	for _, prop := range md.order {
		for _, e := range md.groups[prop] {
			if found, parent := findByID(e, id, nil); found != nil {
				if parent != nil {
					return found, parent.id
				}
				return found, ""
			}
		}
	}
	return nil, ""
}

func findByID(e *MetaEntry, id string, parent *MetaEntry) (*MetaEntry, *MetaEntry) {
	if e.id == id {
		return e, parent
	}
	for _, r := range e.refines {
		if found, p := findByID(r, id, e); found != nil {
			return found, p
		}
	}
	return nil, nil
}

// --- Convenience accessors -------------------------------------------------

// Identifier returns the publication's unique identifier: the entry the
// package's unique-identifier attribute points at, else the first
// dc:identifier.
func (md *Metadata) Identifier() *Identifier {
	if uid := md.pkg.uniqueIdentifier; uid != "" {
		if e, refines := md.ByID(uid); e != nil && refines == "" && e.property == "dc:identifier" {
			return &Identifier{e}
		}
	}
	if e := md.FirstByProperty("dc:identifier"); e != nil {
		return &Identifier{e}
	}
	return nil
}

// Identifiers returns every dc:identifier entry.
func (md *Metadata) Identifiers() []*Identifier {
	var out []*Identifier
	for _, e := range md.ByProperty("dc:identifier") {
		out = append(out, &Identifier{e})
	}
	return out
}

// Title returns the main title: the first dc:title.
func (md *Metadata) Title() *Title {
	if e := md.FirstByProperty("dc:title"); e != nil {
		return &Title{e}
	}
	return nil
}

// Titles returns every dc:title entry.
func (md *Metadata) Titles() []*Title {
	var out []*Title
	for _, e := range md.ByProperty("dc:title") {
		out = append(out, &Title{e})
	}
	return out
}

// Language returns the first dc:language entry.
func (md *Metadata) Language() *LanguageEntry {
	if e := md.FirstByProperty("dc:language"); e != nil {
		return &LanguageEntry{e}
	}
	return nil
}

// Languages returns every dc:language entry.
func (md *Metadata) Languages() []*LanguageEntry {
	var out []*LanguageEntry
	for _, e := range md.ByProperty("dc:language") {
		out = append(out, &LanguageEntry{e})
	}
	return out
}

// Creators returns every dc:creator entry.
func (md *Metadata) Creators() []*Contributor {
	return contributors(md.ByProperty("dc:creator"))
}

// Contributors returns every dc:contributor entry.
func (md *Metadata) Contributors() []*Contributor {
	return contributors(md.ByProperty("dc:contributor"))
}

func contributors(entries []*MetaEntry) []*Contributor {
	var out []*Contributor
	for _, e := range entries {
		out = append(out, &Contributor{e})
	}
	return out
}

// Publishers returns every dc:publisher entry.
func (md *Metadata) Publishers() []*MetaEntry { return md.ByProperty("dc:publisher") }

// Descriptions returns every dc:description entry.
func (md *Metadata) Descriptions() []*MetaEntry { return md.ByProperty("dc:description") }

// Tags returns every dc:subject entry.
func (md *Metadata) Tags() []*Tag {
	var out []*Tag
	for _, e := range md.ByProperty("dc:subject") {
		out = append(out, &Tag{e})
	}
	return out
}

// Generators returns the producing-tool entries: EPUB 2
// <meta name="generator"> plus any EPUB 3 generator meta.
func (md *Metadata) Generators() []*MetaEntry { return md.ByProperty("generator") }

// Published returns the publication date: a plain dc:date without an
// event qualifier, or one qualified opf:event="publication".
func (md *Metadata) Published() (DateTime, bool) {
	for _, e := range md.ByProperty("dc:date") {
		event := e.attrs.Value("opf:event")
		if event == "" || event == "publication" {
			return ParseDateTime(e.value)
		}
	}
	return DateTime{}, false
}

// Modified returns the last-modified timestamp: dcterms:modified, else a
// dc:date qualified opf:event="modification".
func (md *Metadata) Modified() (DateTime, bool) {
	if e := md.FirstByProperty("dcterms:modified"); e != nil {
		return ParseDateTime(e.value)
	}
	for _, e := range md.ByProperty("dc:date") {
		if e.attrs.Value("opf:event") == "modification" {
			return ParseDateTime(e.value)
		}
	}
	return DateTime{}, false
}

// --- Specialized adapter views ---------------------------------------------
//
// These are not distinct node types: each reinterprets a raw entry
// through the refinement vocabulary, falling back to the legacy opf:*
// attributes when the refinement is absent.

// Identifier reinterprets a dc:identifier entry.
type Identifier struct{ *MetaEntry }

// Scheme returns the identifier system: the identifier-type refinement,
// else the legacy opf:scheme attribute.
func (i *Identifier) Scheme() string { return i.legacyOr("identifier-type", "opf:scheme") }

// Title reinterprets a dc:title entry.
type Title struct{ *MetaEntry }

// TitleKind returns the title-type refinement value ("main", "subtitle",
// "short", …), or "".
func (t *Title) TitleKind() string { return t.refinementValue("title-type") }

// Contributor reinterprets a dc:creator or dc:contributor entry.
type Contributor struct{ *MetaEntry }

// MainRole returns the contributor's primary role: the first role
// refinement, else the legacy opf:role attribute.
func (c *Contributor) MainRole() string { return c.legacyOr("role", "opf:role") }

// Roles returns every role refinement value, falling back to the legacy
// attribute when no refinement exists.
func (c *Contributor) Roles() []string {
	var out []string
	for _, r := range c.refines {
		if r.property == "role" {
			out = append(out, r.value)
		}
	}
	if len(out) == 0 {
		if v := c.attrs.Value("opf:role"); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// AlternateScript returns the value and language of the first
// alternate-script refinement, else the legacy opf:alt-rep and
// opf:alt-rep-lang attribute pair.
func (c *Contributor) AlternateScript() (value, lang string) {
	for _, r := range c.refines {
		if r.property == "alternate-script" {
			return r.value, r.lang
		}
	}
	return c.attrs.Value("opf:alt-rep"), c.attrs.Value("opf:alt-rep-lang")
}

// LanguageEntry reinterprets a dc:language entry. The vocabulary has no
// legacy attribute layer of its own; the adapter exists so language
// entries present the same typed surface as the other views.
type LanguageEntry struct{ *MetaEntry }

// Tag returns the language tag ("en", "zh-CN") — the entry value.
func (l *LanguageEntry) Tag() string { return l.value }

// Tag reinterprets a dc:subject entry.
type Tag struct{ *MetaEntry }

// Scheme returns the subject authority: the authority refinement, else
// the legacy opf:authority attribute.
func (t *Tag) Scheme() string { return t.legacyOr("authority", "opf:authority") }

// Term returns the code within the authority: the term refinement, else
// the legacy opf:term attribute.
func (t *Tag) Term() string { return t.legacyOr("term", "opf:term") }

// isDCProperty reports whether property names a Dublin Core element.
func isDCProperty(property string) bool {
	return strings.HasPrefix(property, "dc:")
}
