package epub

import (
	"github.com/beevik/etree"

	"github.com/jianyun8023/epubkit/uri"
)

// parseToc materializes the navigation forest from the sources the
// publication carries: the EPUB 3 nav document, the EPUB 2 NCX, and the
// OPF guide as the legacy landmarks source.
func (p *parser) parseToc() error {
	pkg := p.e.pkg
	preferred := p.opts.PreferredToc
	if preferred == 0 {
		if pkg.version.IsEpub2() {
			preferred = 2
		} else {
			preferred = 3
		}
	}

	navEntry := pkg.manifest.Nav()
	ncxEntry := p.findNCX()

	parseNav := func() error {
		if navEntry == nil {
			return nil
		}
		return p.parseNavDocument(navEntry)
	}
	parseNCX := func() error {
		if ncxEntry == nil {
			return nil
		}
		return p.parseNCXDocument(ncxEntry)
	}

	var err error
	switch {
	case p.opts.RetainVariants:
		if err = parseNav(); err == nil {
			err = parseNCX()
		}
	case preferred == 2:
		if ncxEntry != nil {
			err = parseNCX()
		} else {
			err = parseNav()
		}
	default:
		if navEntry != nil {
			err = parseNav()
		} else {
			err = parseNCX()
		}
	}
	if err != nil {
		return err
	}

	// The guide supplies landmarks when no other source did.
	if len(p.guide) > 0 && pkg.toc.ByKindVersion(TocLandmarks, 2) == nil {
		if p.opts.RetainVariants || pkg.toc.ByKindVersion(TocLandmarks, 3) == nil {
			p.attachGuide()
		}
	}
	return nil
}

// findNCX locates the NCX manifest entry: the spine toc reference first,
// then any entry with the NCX media type.
func (p *parser) findNCX() *ManifestEntry {
	man := p.e.pkg.manifest
	if p.ncxID != "" {
		if e := man.ByID(p.ncxID); e != nil {
			return e
		}
	}
	if entries := man.ByMediaType("application/x-dtbncx+xml"); len(entries) > 0 {
		return entries[0]
	}
	return nil
}

// attachGuide converts OPF guide references into a version-2 landmarks
// tree.
func (p *parser) attachGuide() {
	pkg := p.e.pkg
	root := pkg.toc.CreateRoot(TocLandmarks, 2)
	opfDir := pkg.Directory()
	for _, ref := range p.guide {
		if ref.href == "" {
			continue
		}
		node := &TocEntry{
			toc:     pkg.toc,
			label:   ref.title,
			kind:    ref.kind,
			hrefRaw: Href(ref.href),
			href:    resolveAgainst(opfDir, ref.href),
		}
		root.children = append(root.children, node)
	}
}

// resolveAgainst resolves an authored href against a directory, leaving
// external references untouched and keeping query/fragment tails.
func resolveAgainst(dir, raw string) Href {
	if uri.HasScheme(raw) {
		return Href(raw)
	}
	path := uri.StripQueryFragment(raw)
	tail := raw[len(path):]
	return Href(uri.Resolve(dir, path) + tail)
}

// parseNCXDocument reads the NCX into version-2 trees: navMap as the
// table of contents and pageList as the page list. playOrder values are
// ignored; document order is authoritative.
func (p *parser) parseNCXDocument(entry *ManifestEntry) error {
	doc, err := p.readXML(entry.href.DecodedPath())
	if err != nil {
		if p.opts.Strict {
			return &FormatError{Detail: "cannot read ncx", Path: entry.href.String(), Err: err}
		}
		return nil
	}
	root := doc.SelectElement("ncx")
	if root == nil {
		if p.opts.Strict {
			return &FormatError{Detail: "ncx has no ncx element", Path: entry.href.String()}
		}
		return nil
	}
	ncxDir := uri.Parent(entry.href.Path())

	if navMap := root.SelectElement("navMap"); navMap != nil {
		tocRoot := p.e.pkg.toc.CreateRoot(TocContents, 2)
		tocRoot.id = navMap.SelectAttrValue("id", "")
		if docTitle := root.SelectElement("docTitle"); docTitle != nil {
			tocRoot.label = ncxLabel(docTitle)
		}
		for _, point := range navMap.SelectElements("navPoint") {
			tocRoot.children = append(tocRoot.children, p.parseNavPoint(point, ncxDir))
		}
	}

	if pageList := root.SelectElement("pageList"); pageList != nil {
		pageRoot := p.e.pkg.toc.CreateRoot(TocPageList, 2)
		pageRoot.id = pageList.SelectAttrValue("id", "")
		if label := pageList.SelectElement("navLabel"); label != nil {
			pageRoot.label = xmlTextOf(label.SelectElement("text"))
		}
		for _, target := range pageList.SelectElements("pageTarget") {
			node := &TocEntry{
				toc:   p.e.pkg.toc,
				id:    target.SelectAttrValue("id", ""),
				label: ncxLabel(target),
				kind:  target.SelectAttrValue("type", ""),
			}
			if src := target.SelectElement("content"); src != nil {
				raw := src.SelectAttrValue("src", "")
				node.hrefRaw = Href(raw)
				node.href = resolveAgainst(ncxDir, raw)
			}
			pageRoot.children = append(pageRoot.children, node)
		}
	}
	return nil
}

// parseNavPoint decodes a navPoint subtree.
func (p *parser) parseNavPoint(point *etree.Element, ncxDir string) *TocEntry {
	node := &TocEntry{
		toc:   p.e.pkg.toc,
		id:    point.SelectAttrValue("id", ""),
		label: ncxLabel(point),
		kind:  point.SelectAttrValue("class", ""),
	}
	if src := point.SelectElement("content"); src != nil {
		raw := src.SelectAttrValue("src", "")
		node.hrefRaw = Href(raw)
		node.href = resolveAgainst(ncxDir, raw)
	}
	for _, child := range point.SelectElements("navPoint") {
		node.children = append(node.children, p.parseNavPoint(child, ncxDir))
	}
	return node
}

// ncxLabel extracts the navLabel>text content of an NCX node.
func ncxLabel(el *etree.Element) string {
	if label := el.SelectElement("navLabel"); label != nil {
		return xmlTextOf(label.SelectElement("text"))
	}
	return ""
}

func xmlTextOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return collapseText(el.Text())
}
