package epub

import (
	"strconv"
	"strings"
)

// IDOptions controls reference rewriting when an id changes.
type IDOptions struct {
	// Cascade rewrites every reference to the old id (spine idrefs,
	// fallback and media-overlay references, the legacy cover meta).
	Cascade bool
}

// DefaultIDOptions enables cascading.
func DefaultIDOptions() IDOptions { return IDOptions{Cascade: true} }

// HrefOptions controls reference rewriting when an href changes.
type HrefOptions struct {
	// Cascade rewrites matching toc links, preserving their query and
	// fragment tails.
	Cascade bool
}

// DefaultHrefOptions enables cascading.
func DefaultHrefOptions() HrefOptions { return HrefOptions{Cascade: true} }

// SetID renames the entry, silently disambiguating a colliding id with a
// numeric suffix, and cascades to every referrer. The id actually
// assigned is returned.
func (e *ManifestEntry) SetID(id string) string {
	actual, _ := e.setID(id, DefaultIDOptions(), false)
	return actual
}

// TrySetID renames the entry, failing with ErrDuplicateID when the id is
// taken elsewhere in the package document. References cascade.
func (e *ManifestEntry) TrySetID(id string) error {
	_, err := e.setID(id, DefaultIDOptions(), true)
	return err
}

// SetIDWith is SetID with explicit cascade control.
func (e *ManifestEntry) SetIDWith(id string, opts IDOptions) string {
	actual, _ := e.setID(id, opts, false)
	return actual
}

func (e *ManifestEntry) setID(id string, opts IDOptions, strict bool) (string, error) {
	old := e.id
	if id == old {
		return id, nil
	}
	m := e.manifest
	if m == nil {
		e.id = id
		return id, nil
	}
	if m.pkg.idExists(id) {
		if strict {
			return old, &FormatError{Detail: "id already in use", ID: id, Err: ErrDuplicateID}
		}
		id = m.pkg.uniqueID(id)
	}

	// Re-key in place, preserving the entry's ordinal position.
	delete(m.entries, old)
	m.entries[id] = e
	for i, k := range m.order {
		if k == old {
			m.order[i] = id
			break
		}
	}
	e.id = id

	if opts.Cascade {
		m.cascadeID(old, id)
	}
	return id, nil
}

// cascadeID rewrites every reference to oldID across the package.
func (m *Manifest) cascadeID(oldID, newID string) {
	for _, s := range m.pkg.spine.entries {
		if s.idref == oldID {
			s.idref = newID
		}
	}
	for _, id := range m.order {
		entry := m.entries[id]
		if entry.fallback == oldID {
			entry.fallback = newID
		}
		if entry.mediaOverlay == oldID {
			entry.mediaOverlay = newID
		}
	}
	for _, meta := range m.pkg.metadata.ByProperty("cover") {
		if meta.kind == Meta2 && meta.value == oldID {
			meta.value = newID
		}
	}
}

// SetHref moves the entry to a new href (relative to the package
// document), relocating the archive resource and rewriting matching toc
// links.
func (e *ManifestEntry) SetHref(href string) {
	e.SetHrefWith(href, DefaultHrefOptions())
}

// SetHrefWith is SetHref with explicit cascade control.
func (e *ManifestEntry) SetHrefWith(href string, opts HrefOptions) {
	m := e.manifest
	if m == nil {
		e.hrefRaw = Href(href)
		e.href = Href(href)
		return
	}
	oldHref := e.href
	e.hrefRaw = Href(href)
	e.href = m.pkg.resolveHref(href)

	if m.pkg.epub != nil {
		// Rename only; the bytes stay where they are until write-out.
		// A missing resource is tolerable here: the entry may have been
		// declared without content yet.
		_ = m.pkg.epub.arc.Relocate(oldHref.DecodedPath(), e.href.DecodedPath())
	}

	if opts.Cascade {
		m.pkg.toc.rewriteHrefs(oldHref, e.href)
	}
}

// SetMediaType replaces the declared media type.
func (e *ManifestEntry) SetMediaType(mt string) { e.mediaType = mt }

// SetFallbackID replaces the fallback reference; "" clears it.
func (e *ManifestEntry) SetFallbackID(id string) { e.fallback = id }

// SetMediaOverlayID replaces the media-overlay reference; "" clears it.
func (e *ManifestEntry) SetMediaOverlayID(id string) { e.mediaOverlay = id }

// Add inserts an entry built from d. Identifiers and hrefs are made
// unique with numeric suffixes; the media type is inferred from the file
// extension when d leaves it empty; carried content bytes are placed in
// the archive.
func (m *Manifest) Add(d DetachedManifestEntry) *ManifestEntry {
	raw := d.Href
	resolved := m.pkg.resolveHref(raw)
	raw, resolved = m.uniqueHref(raw, resolved)

	id := d.ID
	if id == "" {
		id = idFromHref(resolved)
	}
	id = m.pkg.uniqueID(id)

	mediaType := d.MediaType
	if mediaType == "" {
		mediaType = MediaTypeForExtension(resolved.Extension())
	}

	e := &ManifestEntry{
		manifest:     m,
		id:           id,
		href:         resolved,
		hrefRaw:      Href(raw),
		mediaType:    mediaType,
		fallback:     d.FallbackID,
		mediaOverlay: d.MediaOverlayID,
		properties:   d.Properties.clone(),
		attrs:        d.Attrs.clone(),
	}
	for _, r := range d.Refinements {
		e.refines = append(e.refines, r.build(m.pkg.metadata))
	}
	m.order = append(m.order, id)
	m.entries[id] = e

	if d.Data != nil && m.pkg.epub != nil {
		m.pkg.epub.arc.Insert(resolved.DecodedPath(), d.Data)
	}
	return e
}

// uniqueHref suffixes the file name (before the extension) with 1, 2, …
// until the resolved path collides with no existing entry.
func (m *Manifest) uniqueHref(raw string, resolved Href) (string, Href) {
	if m.hrefFree(resolved) {
		return raw, resolved
	}
	base, ext := splitExtension(raw)
	for n := 1; ; n++ {
		candidateRaw := base + strconv.Itoa(n) + ext
		candidate := m.pkg.resolveHref(candidateRaw)
		if m.hrefFree(candidate) {
			return candidateRaw, candidate
		}
	}
}

func (m *Manifest) hrefFree(h Href) bool {
	path := h.DecodedPath()
	for _, id := range m.order {
		if m.entries[id].href.DecodedPath() == path {
			return false
		}
	}
	return true
}

// splitExtension cuts raw before its extension, keeping any query or
// fragment with the extension part.
func splitExtension(raw string) (base, ext string) {
	path := Href(raw).Path()
	tail := raw[len(path):]
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') && i > 0 {
		return path[:i], path[i:] + tail
	}
	return path, tail
}

// idFromHref derives a manifest id from the href's file name.
func idFromHref(h Href) string {
	name := h.FileName()
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "item"
	}
	return slugify(name)
}

// RemoveByID removes the entry and its archive bytes. Spine entries and
// toc links referencing it dangle until Cleanup.
func (m *Manifest) RemoveByID(id string) bool {
	e, ok := m.entries[id]
	if !ok {
		return false
	}
	delete(m.entries, id)
	for i, k := range m.order {
		if k == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.pkg.epub != nil {
		_ = m.pkg.epub.arc.Remove(e.href.DecodedPath())
	}
	e.manifest = nil
	return true
}

// DetachedManifestEntry is an owned builder for a manifest entry not yet
// attached to a publication.
type DetachedManifestEntry struct {
	// ID is the manifest key; derived from the href when empty.
	ID string
	// Href is relative to the package document directory.
	Href string
	// MediaType is inferred from the extension when empty.
	MediaType      string
	FallbackID     string
	MediaOverlayID string
	Properties     Properties
	Attrs          Attributes
	Refinements    []DetachedMetaEntry
	// Data, when non-nil, is inserted into the archive on Add.
	Data []byte
}

// NewManifestEntry builds a detached entry for an href.
func NewManifestEntry(href string) DetachedManifestEntry {
	return DetachedManifestEntry{Href: href}
}

// WithID returns a copy carrying an explicit id.
func (d DetachedManifestEntry) WithID(id string) DetachedManifestEntry {
	d.ID = id
	return d
}

// WithMediaType returns a copy carrying an explicit media type.
func (d DetachedManifestEntry) WithMediaType(mt string) DetachedManifestEntry {
	d.MediaType = mt
	return d
}

// WithData returns a copy carrying resource content.
func (d DetachedManifestEntry) WithData(data []byte) DetachedManifestEntry {
	d.Data = data
	return d
}

// WithProperty returns a copy with token added to the property set.
func (d DetachedManifestEntry) WithProperty(token string) DetachedManifestEntry {
	d.Properties = d.Properties.clone()
	d.Properties.Add(token)
	return d
}
