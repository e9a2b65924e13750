package epub

// PageDirection is the spine-level page progression hint.
type PageDirection int

const (
	PageDefault PageDirection = iota
	PageLTR
	PageRTL
)

// ParsePageDirection maps "ltr"/"rtl"; anything else is PageDefault.
func ParsePageDirection(raw string) PageDirection {
	switch raw {
	case "ltr":
		return PageLTR
	case "rtl":
		return PageRTL
	default:
		return PageDefault
	}
}

func (d PageDirection) String() string {
	switch d {
	case PageLTR:
		return "ltr"
	case PageRTL:
		return "rtl"
	default:
		return "default"
	}
}

// SpineEntry is one itemref of the reading order.
type SpineEntry struct {
	spine *Spine

	id         string
	idref      string
	linear     bool
	properties Properties
	attrs      Attributes
	refines    []*MetaEntry
}

// ID returns the itemref's own xml id, or "".
func (s *SpineEntry) ID() string { return s.id }

// IDRef returns the manifest id the entry references. The reference may
// dangle after manifest removals until Cleanup runs.
func (s *SpineEntry) IDRef() string { return s.idref }

// Linear reports whether the entry is part of the default reading order.
func (s *SpineEntry) Linear() bool { return s.linear }

// Properties returns the entry's property token set.
func (s *SpineEntry) Properties() *Properties { return &s.properties }

// Attributes returns the entry's additional attributes.
func (s *SpineEntry) Attributes() *Attributes { return &s.attrs }

// Refinements returns the metadata entries refining this itemref.
func (s *SpineEntry) Refinements() []*MetaEntry {
	out := make([]*MetaEntry, len(s.refines))
	copy(out, s.refines)
	return out
}

// ManifestEntry resolves the referenced manifest entry, or nil while the
// reference dangles.
func (s *SpineEntry) ManifestEntry() *ManifestEntry {
	if s.spine == nil {
		return nil
	}
	return s.spine.pkg.manifest.ByID(s.idref)
}

// SetIDRef repoints the entry at another manifest id.
func (s *SpineEntry) SetIDRef(idref string) { s.idref = idref }

// SetLinear toggles default-reading-order membership.
func (s *SpineEntry) SetLinear(linear bool) { s.linear = linear }

// TrySetID assigns an xml id, failing with ErrDuplicateID on collision.
func (s *SpineEntry) TrySetID(id string) error {
	if id == s.id {
		return nil
	}
	if s.spine != nil && id != "" && s.spine.pkg.idExists(id) {
		return &FormatError{Detail: "id already in use", ID: id, Err: ErrDuplicateID}
	}
	s.id = id
	return nil
}

// SetID assigns an xml id, disambiguating collisions with a numeric
// suffix. The id actually assigned is returned.
func (s *SpineEntry) SetID(id string) string {
	if id != s.id && s.spine != nil {
		id = s.spine.pkg.uniqueID(id)
	}
	s.id = id
	return id
}

// Spine is the canonical reading order.
type Spine struct {
	pkg           *Package
	entries       []*SpineEntry
	pageDirection PageDirection
}

// Len reports the entry count.
func (sp *Spine) Len() int { return len(sp.entries) }

// Entries returns the entries in reading order.
func (sp *Spine) Entries() []*SpineEntry {
	out := make([]*SpineEntry, len(sp.entries))
	copy(out, sp.entries)
	return out
}

// Get returns the entry at reading-order position i. It panics when i is
// out of range.
func (sp *Spine) Get(i int) *SpineEntry { return sp.entries[i] }

// ByID returns the entry with the given xml id, or nil.
func (sp *Spine) ByID(id string) *SpineEntry {
	if id == "" {
		return nil
	}
	for _, s := range sp.entries {
		if s.id == id {
			return s
		}
	}
	return nil
}

// ByIDRef returns the first entry referencing the manifest id, or nil.
func (sp *Spine) ByIDRef(idref string) *SpineEntry {
	for _, s := range sp.entries {
		if s.idref == idref {
			return s
		}
	}
	return nil
}

// PageDirection returns the page progression hint.
func (sp *Spine) PageDirection() PageDirection { return sp.pageDirection }

// SetPageDirection replaces the page progression hint.
func (sp *Spine) SetPageDirection(d PageDirection) { sp.pageDirection = d }

// Push appends an entry referencing idref and returns it.
func (sp *Spine) Push(idref string) *SpineEntry {
	return sp.Insert(len(sp.entries), DetachedSpineEntry{IDRef: idref})
}

// Insert places an entry built from d at position i. It panics when i is
// out of range.
func (sp *Spine) Insert(i int, d DetachedSpineEntry) *SpineEntry {
	if i < 0 || i > len(sp.entries) {
		panic("epub: spine insert index out of range")
	}
	e := d.build(sp)
	if e.id != "" {
		e.id = sp.pkg.uniqueID(e.id)
	}
	sp.entries = append(sp.entries, nil)
	copy(sp.entries[i+1:], sp.entries[i:])
	sp.entries[i] = e
	return e
}

// Remove deletes the entry at position i and returns it. It panics when
// i is out of range.
func (sp *Spine) Remove(i int) *SpineEntry {
	e := sp.entries[i]
	sp.entries = append(sp.entries[:i], sp.entries[i+1:]...)
	e.spine = nil
	return e
}

// RemoveByIDRef deletes every entry referencing idref, returning the
// count removed.
func (sp *Spine) RemoveByIDRef(idref string) int {
	n := 0
	kept := sp.entries[:0]
	for _, e := range sp.entries {
		if e.idref == idref {
			e.spine = nil
			n++
		} else {
			kept = append(kept, e)
		}
	}
	sp.entries = kept
	return n
}

// DetachedSpineEntry is an owned builder for a spine entry.
type DetachedSpineEntry struct {
	ID    string
	IDRef string
	// NonLinear marks the entry auxiliary; entries are linear by default.
	NonLinear  bool
	Properties Properties
	Attrs      Attributes
}

func (d DetachedSpineEntry) build(sp *Spine) *SpineEntry {
	return &SpineEntry{
		spine:      sp,
		id:         d.ID,
		idref:      d.IDRef,
		linear:     !d.NonLinear,
		properties: d.Properties.clone(),
		attrs:      d.Attrs.clone(),
	}
}
