package epub

// SetValue replaces the entry's text value.
func (m *MetaEntry) SetValue(v string) { m.value = v }

// SetProperty renames the entry's property, regrouping it in the store.
func (m *MetaEntry) SetProperty(property string) {
	if m.meta == nil || m.property == property {
		m.property = property
		return
	}
	if m.meta.detachEntry(m) {
		m.property = property
		m.meta.attachEntry(m)
	} else {
		// A refinement: no store bucket to move.
		m.property = property
	}
}

// SetLanguage replaces the entry's own language; "" restores inheritance
// of the package default.
func (m *MetaEntry) SetLanguage(lang string) { m.lang = lang }

// SetTextDirection replaces the entry's own direction; DirAuto restores
// inheritance of the package default.
func (m *MetaEntry) SetTextDirection(d TextDirection) { m.dir = d }

// SetKind changes how the entry will be expressed in XML.
func (m *MetaEntry) SetKind(k MetaEntryKind) { m.kind = k }

// TrySetID assigns id, failing with ErrDuplicateID when another element
// of the package document already uses it.
func (m *MetaEntry) TrySetID(id string) error {
	if id == m.id {
		return nil
	}
	if m.meta != nil && id != "" && m.meta.pkg.idExists(id) {
		return &FormatError{Detail: "id already in use", ID: id, Err: ErrDuplicateID}
	}
	m.setID(id)
	return nil
}

// SetID assigns id, silently disambiguating with a numeric suffix on
// collision. The id actually assigned is returned.
func (m *MetaEntry) SetID(id string) string {
	if id != m.id && m.meta != nil {
		id = m.meta.pkg.uniqueID(id)
	}
	m.setID(id)
	return id
}

func (m *MetaEntry) setID(id string) {
	if m.meta != nil && m.id != "" && m.meta.pkg.uniqueIdentifier == m.id {
		// Keep the package's unique-identifier reference intact.
		m.meta.pkg.uniqueIdentifier = id
	}
	m.id = id
}

// AddRefinement attaches a refinement built from d and returns it.
func (m *MetaEntry) AddRefinement(d DetachedMetaEntry) *MetaEntry {
	r := d.build(m.meta)
	m.refines = append(m.refines, r)
	return r
}

// RemoveRefinement removes the i-th refinement. It panics when i is out
// of range.
func (m *MetaEntry) RemoveRefinement(i int) *MetaEntry {
	r := m.refines[i]
	m.refines = append(m.refines[:i], m.refines[i+1:]...)
	r.meta = nil
	return r
}

// RemoveRefinementsByProperty removes every refinement declaring
// property, returning the count removed.
func (m *MetaEntry) RemoveRefinementsByProperty(property string) int {
	n := 0
	kept := m.refines[:0]
	for _, r := range m.refines {
		if r.property == property {
			r.meta = nil
			n++
		} else {
			kept = append(kept, r)
		}
	}
	m.refines = kept
	return n
}

// Add appends an entry built from d under its property, allocating a
// fresh group when the property is new. A colliding id is disambiguated
// with a numeric suffix.
func (md *Metadata) Add(d DetachedMetaEntry) *MetaEntry {
	e := d.build(md)
	if e.id != "" {
		e.id = md.pkg.uniqueID(e.id)
	}
	md.attachEntry(e)
	return e
}

func (md *Metadata) attachEntry(e *MetaEntry) {
	e.meta = md
	if _, seen := md.groups[e.property]; !seen {
		md.order = append(md.order, e.property)
	}
	md.groups[e.property] = append(md.groups[e.property], e)
}

// detachEntry removes e from its top-level group, reporting whether it
// was a top-level entry. Empty groups are dropped so they do not
// reappear at serialization.
func (md *Metadata) detachEntry(e *MetaEntry) bool {
	group, ok := md.groups[e.property]
	if !ok {
		return false
	}
	for i, x := range group {
		if x == e {
			group = append(group[:i], group[i+1:]...)
			if len(group) == 0 {
				delete(md.groups, e.property)
				md.dropFromOrder(e.property)
			} else {
				md.groups[e.property] = group
			}
			return true
		}
	}
	return false
}

func (md *Metadata) dropFromOrder(property string) {
	for i, p := range md.order {
		if p == property {
			md.order = append(md.order[:i], md.order[i+1:]...)
			return
		}
	}
}

// Remove detaches a top-level entry, reporting whether it was present.
func (md *Metadata) Remove(e *MetaEntry) bool {
	if md.detachEntry(e) {
		e.meta = nil
		return true
	}
	return false
}

// RemoveByID removes the entry (or refinement) with the given id.
func (md *Metadata) RemoveByID(id string) bool {
	e, refinesID := md.ByID(id)
	if e == nil {
		return false
	}
	if refinesID == "" {
		return md.Remove(e)
	}
	parent, _ := md.ByID(refinesID)
	for i, r := range parent.refines {
		if r == e {
			parent.RemoveRefinement(i)
			return true
		}
	}
	return false
}

// RemoveByProperty removes every entry declaring property, returning the
// count removed.
func (md *Metadata) RemoveByProperty(property string) int {
	group, ok := md.groups[property]
	if !ok {
		return 0
	}
	for _, e := range group {
		e.meta = nil
	}
	delete(md.groups, property)
	md.dropFromOrder(property)
	return len(group)
}

// DetachedMetaEntry is an owned builder for a metadata entry not yet in
// any store. Inserting it transfers ownership.
type DetachedMetaEntry struct {
	ID       string
	Property string
	Value    string
	Language string
	Dir      TextDirection
	// Kind defaults to DublinCore for dc:* properties and Meta3
	// otherwise; set it explicitly for EPUB 2 metas and links.
	Kind        *MetaEntryKind
	Attrs       Attributes
	Refinements []DetachedMetaEntry
}

// NewMetaEntry builds a detached entry for property with a value.
func NewMetaEntry(property, value string) DetachedMetaEntry {
	return DetachedMetaEntry{Property: property, Value: value}
}

// WithID returns a copy carrying the given id.
func (d DetachedMetaEntry) WithID(id string) DetachedMetaEntry {
	d.ID = id
	return d
}

// WithKind returns a copy carrying an explicit kind.
func (d DetachedMetaEntry) WithKind(k MetaEntryKind) DetachedMetaEntry {
	d.Kind = &k
	return d
}

// WithRefinement returns a copy with an additional refinement.
func (d DetachedMetaEntry) WithRefinement(r DetachedMetaEntry) DetachedMetaEntry {
	d.Refinements = append(d.Refinements, r)
	return d
}

func (d DetachedMetaEntry) build(md *Metadata) *MetaEntry {
	kind := Meta3
	switch {
	case d.Kind != nil:
		kind = *d.Kind
	case isDCProperty(d.Property):
		kind = DublinCore
	}
	e := &MetaEntry{
		meta:     md,
		id:       d.ID,
		property: d.Property,
		value:    d.Value,
		lang:     d.Language,
		dir:      d.Dir,
		attrs:    d.Attrs.clone(),
		kind:     kind,
	}
	for _, r := range d.Refinements {
		e.refines = append(e.refines, r.build(md))
	}
	return e
}
