package epub

import (
	"github.com/beevik/etree"

	"github.com/jianyun8023/epubkit/uri"
)

// legacyDowngrades maps refinement properties to the EPUB 2 opf:*
// attribute expressing the same statement.
var legacyDowngrades = map[string]string{
	"identifier-type": "opf:scheme",
	"role":            "opf:role",
	"file-as":         "opf:file-as",
}

// buildOPF serializes the package document.
func (e *Epub) buildOPF(pl *writePlan) ([]byte, error) {
	pkg := e.pkg
	downgrade := pl.opts.targets2() && pkg.version.IsEpub2()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("package")
	root.CreateAttr("xmlns", NsOPF)
	root.CreateAttr("version", pkg.version.Raw)
	if pkg.uniqueIdentifier != "" {
		root.CreateAttr("unique-identifier", pkg.uniqueIdentifier)
	}
	if pkg.dir != DirAuto {
		root.CreateAttr("dir", pkg.dir.String())
	}
	if pkg.xmlLang != "" {
		root.CreateAttr("xml:lang", pkg.xmlLang)
	}
	if len(pkg.prefixes) > 0 {
		prefix := ""
		for i, pf := range pkg.prefixes {
			if i > 0 {
				prefix += " "
			}
			prefix += pf.name + ": " + pf.uri
		}
		root.CreateAttr("prefix", prefix)
	}
	for _, attr := range pkg.attrs.All() {
		root.CreateAttr(attr.Name.String(), attr.Value)
	}

	meta := root.CreateElement("metadata")
	meta.CreateAttr("xmlns:dc", NsDC)
	if pl.opts.targets2() {
		meta.CreateAttr("xmlns:opf", NsOPF)
	}
	for _, entry := range pkg.metadata.Entries() {
		e.emitMetaEntry(meta, entry, "", downgrade)
	}
	e.emitCoverMeta(meta, pl)

	man := root.CreateElement("manifest")
	manifestEntries := pkg.manifest.Entries()
	manifestEntries = append(manifestEntries, pl.synthesized...)
	for _, item := range manifestEntries {
		el := man.CreateElement("item")
		el.CreateAttr("id", item.id)
		el.CreateAttr("href", e.itemHref(item))
		el.CreateAttr("media-type", item.mediaType)
		if item.fallback != "" {
			el.CreateAttr("fallback", item.fallback)
		}
		if item.mediaOverlay != "" {
			el.CreateAttr("media-overlay", item.mediaOverlay)
		}
		if !item.properties.IsEmpty() {
			el.CreateAttr("properties", item.properties.String())
		}
		for _, attr := range item.attrs.All() {
			el.CreateAttr(attr.Name.String(), attr.Value)
		}
		for _, r := range item.refines {
			e.emitMetaEntry(meta, r, item.id, downgrade)
		}
	}

	spine := root.CreateElement("spine")
	if pl.opts.targets2() && pl.ncxID != "" {
		spine.CreateAttr("toc", pl.ncxID)
	}
	if pkg.spine.pageDirection != PageDefault {
		spine.CreateAttr("page-progression-direction", pkg.spine.pageDirection.String())
	}
	for _, ref := range pkg.spine.entries {
		if len(ref.refines) > 0 {
			e.ensureID(&ref.id, "itemref")
		}
		el := spine.CreateElement("itemref")
		el.CreateAttr("idref", ref.idref)
		if ref.id != "" {
			el.CreateAttr("id", ref.id)
		}
		if !ref.linear {
			el.CreateAttr("linear", "no")
		}
		if !ref.properties.IsEmpty() {
			el.CreateAttr("properties", ref.properties.String())
		}
		for _, attr := range ref.attrs.All() {
			el.CreateAttr(attr.Name.String(), attr.Value)
		}
		for _, r := range ref.refines {
			e.emitMetaEntry(meta, r, ref.id, downgrade)
		}
	}

	if pl.opts.targets2() {
		if landmarks := pkg.toc.ByKindVersion(TocLandmarks, 2); landmarks != nil && landmarks.Len() > 0 {
			guide := root.CreateElement("guide")
			for _, node := range landmarks.children {
				ref := guide.CreateElement("reference")
				if node.kind != "" {
					ref.CreateAttr("type", node.kind)
				}
				if node.label != "" {
					ref.CreateAttr("title", node.label)
				}
				ref.CreateAttr("href", e.relativeToPackage(node.href))
			}
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// itemHref returns the href attribute for a manifest item: the authored
// raw form when known, otherwise the resolved path relativized against
// the package document directory.
func (e *Epub) itemHref(item *ManifestEntry) string {
	if !item.hrefRaw.IsEmpty() {
		return item.hrefRaw.String()
	}
	return e.relativeToPackage(item.href)
}

func (e *Epub) relativeToPackage(h Href) string {
	if h.IsEmpty() || h.HasScheme() {
		return h.String()
	}
	return uri.Relativize(e.pkg.Directory(), h.Path()) + h.QueryFragment()
}

// ensureID guarantees an element carries an id so refinements can target
// it, allocating a package-unique one derived from base when absent.
func (e *Epub) ensureID(id *string, base string) string {
	if *id == "" {
		*id = e.pkg.uniqueID(base)
	}
	return *id
}

// emitMetaEntry serializes one metadata entry and, recursively, its
// refinements. refines carries the target id when the entry itself
// refines another element. A parent without an id that has refinements
// to emit receives a generated one first, so the emitted refines="#…"
// always resolves.
func (e *Epub) emitMetaEntry(meta *etree.Element, entry *MetaEntry, refines string, downgrade bool) {
	remaining := entry.refines
	var legacy []Attribute
	if downgrade && entry.kind == DublinCore {
		remaining, legacy = splitDowngrades(entry)
	}
	if len(remaining) > 0 {
		e.ensureID(&entry.id, refineIDBase(entry))
	}

	var el *etree.Element
	switch entry.kind {
	case DublinCore:
		el = meta.CreateElement(entry.property)
		el.SetText(entry.value)
	case Meta2:
		el = meta.CreateElement("meta")
		el.CreateAttr("name", entry.property)
		el.CreateAttr("content", entry.value)
	case LinkEntry:
		el = meta.CreateElement("link")
		el.CreateAttr("rel", entry.property)
		if refines != "" {
			el.CreateAttr("refines", "#"+refines)
		}
	default:
		el = meta.CreateElement("meta")
		el.CreateAttr("property", entry.property)
		if refines != "" {
			el.CreateAttr("refines", "#"+refines)
		}
		el.SetText(entry.value)
	}
	if entry.id != "" {
		el.CreateAttr("id", entry.id)
	}
	if entry.lang != "" {
		el.CreateAttr("xml:lang", entry.lang)
	}
	if entry.dir != DirAuto {
		el.CreateAttr("dir", entry.dir.String())
	}
	for _, attr := range legacy {
		el.CreateAttr(attr.Name.String(), attr.Value)
	}
	for _, attr := range entry.attrs.All() {
		el.CreateAttr(attr.Name.String(), attr.Value)
	}

	for _, r := range remaining {
		e.emitMetaEntry(meta, r, entry.id, downgrade)
	}
}

// refineIDBase derives a readable id stem for an entry that needs one.
func refineIDBase(entry *MetaEntry) string {
	base := entry.property
	if n := ParseName(base); n.Local != "" {
		base = n.Local
	}
	return slugify(base)
}

// splitDowngrades separates the refinements expressible as legacy opf:*
// attributes from those that must stay elements. A refinement whose
// legacy attribute is already present, or which carries refinements of
// its own, stays an element.
func splitDowngrades(entry *MetaEntry) (remaining []*MetaEntry, legacy []Attribute) {
	for _, r := range entry.refines {
		attr, ok := legacyDowngrades[r.property]
		if !ok || len(r.refines) > 0 {
			remaining = append(remaining, r)
			continue
		}
		if _, present := entry.attrs.Get(attr); present {
			remaining = append(remaining, r)
			continue
		}
		legacy = append(legacy, Attribute{Name: ParseName(attr), Value: r.value})
	}
	return remaining, legacy
}

// emitCoverMeta synthesizes the legacy <meta name="cover"> entry when an
// EPUB 2 target needs one and the package only declares the EPUB 3
// cover-image property.
func (e *Epub) emitCoverMeta(meta *etree.Element, pl *writePlan) {
	if !pl.opts.targets2() {
		return
	}
	for _, m := range e.pkg.metadata.ByProperty("cover") {
		if m.kind == Meta2 {
			return
		}
	}
	covers := e.pkg.manifest.ByProperty("cover-image")
	if len(covers) == 0 {
		return
	}
	el := meta.CreateElement("meta")
	el.CreateAttr("name", "cover")
	el.CreateAttr("content", covers[0].id)
}
