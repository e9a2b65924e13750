package epub

// Mutation iterators yield entries in insertion order, one at a time:
//
//	it := epub.Spine().Iter()
//	for entry := it.Next(); entry != nil; entry = it.Next() {
//		entry.SetLinear(true)
//	}
//
// Each iterator walks a snapshot of the order taken at creation, so
// editing the yielded entry (including renaming its id) never
// invalidates the entries not yet visited. Entries removed after the
// snapshot are skipped rather than yielded dead.

// ManifestIter iterates manifest entries for mutation.
type ManifestIter struct {
	manifest *Manifest
	entries  []*ManifestEntry
	pos      int
}

// Iter returns a mutation iterator over the manifest in insertion
// order.
func (m *Manifest) Iter() *ManifestIter {
	return &ManifestIter{manifest: m, entries: m.Entries()}
}

// Next returns the next live entry, or nil when exhausted. Renaming a
// yielded entry's id does not disturb the iteration.
func (it *ManifestIter) Next() *ManifestEntry {
	for it.pos < len(it.entries) {
		e := it.entries[it.pos]
		it.pos++
		if e.manifest == it.manifest {
			return e
		}
	}
	return nil
}

// SpineIter iterates spine entries for mutation.
type SpineIter struct {
	spine   *Spine
	entries []*SpineEntry
	pos     int
}

// Iter returns a mutation iterator over the spine in reading order.
func (sp *Spine) Iter() *SpineIter {
	return &SpineIter{spine: sp, entries: sp.Entries()}
}

// Next returns the next live entry, or nil when exhausted.
func (it *SpineIter) Next() *SpineEntry {
	for it.pos < len(it.entries) {
		e := it.entries[it.pos]
		it.pos++
		if e.spine == it.spine {
			return e
		}
	}
	return nil
}

// MetaIter iterates top-level metadata entries for mutation.
type MetaIter struct {
	meta    *Metadata
	entries []*MetaEntry
	pos     int
}

// Iter returns a mutation iterator over the metadata store, properties
// in first-insertion order.
func (md *Metadata) Iter() *MetaIter {
	return &MetaIter{meta: md, entries: md.Entries()}
}

// Next returns the next live entry, or nil when exhausted.
func (it *MetaIter) Next() *MetaEntry {
	for it.pos < len(it.entries) {
		e := it.entries[it.pos]
		it.pos++
		if e.meta == it.meta {
			return e
		}
	}
	return nil
}
