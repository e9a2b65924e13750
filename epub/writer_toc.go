package epub

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/jianyun8023/epubkit/internal/xmlutil"
	"github.com/jianyun8023/epubkit/uri"
)

// planToc decides which navigation artifacts the output carries and
// regenerates their content from the model. Pre-existing nav/NCX
// manifest entries keep their location with fresh content; when the
// variant native to the package version has no file yet, an entry is
// synthesized next to the package document.
func (e *Epub) planToc(pl *writePlan) error {
	pkg := e.pkg

	ncxEntry := e.existingNCX()
	if ncxEntry == nil && pkg.version.IsEpub2() {
		ncxEntry = &ManifestEntry{
			id:        pkg.uniqueID("ncx"),
			hrefRaw:   "toc.ncx",
			href:      pkg.resolveHref("toc.ncx"),
			mediaType: "application/x-dtbncx+xml",
		}
		pl.synthesized = append(pl.synthesized, ncxEntry)
	}
	if ncxEntry != nil {
		pl.ncxID = ncxEntry.id
		data, err := e.buildNCX(ncxEntry)
		if err != nil {
			return err
		}
		pl.add(ncxEntry.href.DecodedPath(), data)
	}

	navEntry := pkg.manifest.Nav()
	if navEntry == nil && !pkg.version.IsEpub2() {
		var props Properties
		props.Add("nav")
		navEntry = &ManifestEntry{
			id:         pkg.uniqueID("nav"),
			hrefRaw:    "nav.xhtml",
			href:       pkg.resolveHref("nav.xhtml"),
			mediaType:  "application/xhtml+xml",
			properties: props,
		}
		pl.synthesized = append(pl.synthesized, navEntry)
	}
	if navEntry != nil {
		pl.add(navEntry.href.DecodedPath(), e.buildNavDoc(navEntry, pl.opts.TocStylesheet))
	}
	return nil
}

// existingNCX finds the NCX manifest entry, if any.
func (e *Epub) existingNCX() *ManifestEntry {
	if entries := e.pkg.manifest.ByMediaType("application/x-dtbncx+xml"); len(entries) > 0 {
		return entries[0]
	}
	return nil
}

// tocVariant returns the tree for kind, preferring the given major
// version and falling back to the other one.
func (tc *Toc) tocVariant(kind TocKind, major int) *TocEntry {
	if root := tc.ByKindVersion(kind, major); root != nil {
		return root
	}
	return tc.ByKindVersion(kind, 5-major)
}

// buildNCX regenerates the NCX document from the model.
func (e *Epub) buildNCX(entry *ManifestEntry) ([]byte, error) {
	pkg := e.pkg
	ncxDir := uri.Parent(entry.href.Path())

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("ncx")
	root.CreateAttr("xmlns", NsNCX)
	root.CreateAttr("version", "2005-1")

	head := root.CreateElement("head")
	uid := ""
	if id := pkg.metadata.Identifier(); id != nil {
		uid = id.Value()
	}
	addHeadMeta := func(name, content string) {
		m := head.CreateElement("meta")
		m.CreateAttr("name", name)
		m.CreateAttr("content", content)
	}
	addHeadMeta("dtb:uid", uid)
	contents := pkg.toc.tocVariant(TocContents, 2)
	addHeadMeta("dtb:depth", fmt.Sprintf("%d", tocDepth(contents)))
	addHeadMeta("dtb:totalPageCount", "0")
	addHeadMeta("dtb:maxPageNumber", "0")

	docTitle := root.CreateElement("docTitle")
	titleText := ""
	if t := pkg.metadata.Title(); t != nil {
		titleText = t.Value()
	}
	docTitle.CreateElement("text").SetText(titleText)

	navMap := root.CreateElement("navMap")
	order := 0
	if contents != nil {
		for _, child := range contents.children {
			e.emitNavPoint(navMap, child, ncxDir, &order)
		}
	}

	if pages := pkg.toc.tocVariant(TocPageList, 2); pages != nil && pages.Len() > 0 {
		pageList := root.CreateElement("pageList")
		for i, node := range pages.children {
			target := pageList.CreateElement("pageTarget")
			target.CreateAttr("id", nodeID(node, fmt.Sprintf("page-%d", i+1)))
			if node.kind != "" {
				target.CreateAttr("type", node.kind)
			} else {
				target.CreateAttr("type", "normal")
			}
			label := target.CreateElement("navLabel")
			label.CreateElement("text").SetText(node.label)
			content := target.CreateElement("content")
			content.CreateAttr("src", relativeTo(ncxDir, node.href))
		}
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// emitNavPoint serializes one toc node and its descendants as navPoints
// numbered in document order.
func (e *Epub) emitNavPoint(parent *etree.Element, node *TocEntry, ncxDir string, order *int) {
	*order++
	point := parent.CreateElement("navPoint")
	point.CreateAttr("id", nodeID(node, fmt.Sprintf("navPoint-%d", *order)))
	point.CreateAttr("playOrder", fmt.Sprintf("%d", *order))
	label := point.CreateElement("navLabel")
	label.CreateElement("text").SetText(node.label)
	if !node.href.IsEmpty() {
		content := point.CreateElement("content")
		content.CreateAttr("src", relativeTo(ncxDir, node.href))
	}
	for _, child := range node.children {
		e.emitNavPoint(point, child, ncxDir, order)
	}
}

func nodeID(node *TocEntry, fallback string) string {
	if node.id != "" {
		return node.id
	}
	return fallback
}

// relativeTo expresses a resolved href relative to dir, preserving the
// query and fragment tail. External references pass through.
func relativeTo(dir string, h Href) string {
	if h.IsEmpty() || h.HasScheme() {
		return h.String()
	}
	return uri.Relativize(dir, h.Path()) + h.QueryFragment()
}

// tocDepth reports the maximum nesting depth below the root.
func tocDepth(root *TocEntry) int {
	if root == nil {
		return 1
	}
	depth := 0
	for _, c := range root.children {
		if d := 1 + tocDepth0(c); d > depth {
			depth = d
		}
	}
	if depth == 0 {
		depth = 1
	}
	return depth
}

func tocDepth0(node *TocEntry) int {
	depth := 0
	for _, c := range node.children {
		if d := 1 + tocDepth0(c); d > depth {
			depth = d
		}
	}
	return depth
}

// buildNavDoc regenerates the EPUB 3 navigation document from the
// model. Stylesheet links replace whatever the previous document linked.
func (e *Epub) buildNavDoc(entry *ManifestEntry, stylesheets []string) []byte {
	pkg := e.pkg
	navDir := uri.Parent(entry.href.Path())

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE html>` + "\n")
	b.WriteString(`<html xmlns="` + NsXHTML + `" xmlns:epub="` + NsEpubOps + `">` + "\n")
	b.WriteString("<head>\n")
	title := ""
	if t := pkg.metadata.Title(); t != nil {
		title = t.Value()
	}
	b.WriteString("  <title>" + xmlutil.EscapeText(title) + "</title>\n")
	for _, href := range stylesheets {
		resolved := pkg.resolveHref(href)
		b.WriteString(`  <link rel="stylesheet" type="text/css" href="` +
			xmlutil.EscapeAttr(relativeTo(navDir, resolved)) + `"/>` + "\n")
	}
	b.WriteString("</head>\n<body>\n")

	e.emitNavSection(&b, TocContents, "toc", navDir)
	e.emitNavSection(&b, TocLandmarks, "landmarks", navDir)
	e.emitNavSection(&b, TocPageList, "page-list", navDir)

	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

// emitNavSection writes one <nav epub:type> element for the tree of the
// given kind, preferring the version-3 variant.
func (e *Epub) emitNavSection(b *strings.Builder, kind TocKind, epubType string, navDir string) {
	root := e.pkg.toc.tocVariant(kind, 3)
	if root == nil {
		if kind == TocContents {
			// The nav document must declare a toc nav even when empty.
			b.WriteString(`  <nav epub:type="toc">` + "\n    <ol/>\n  </nav>\n")
		}
		return
	}
	if kind != TocContents && root.Len() == 0 {
		return
	}
	b.WriteString(`  <nav epub:type="` + epubType + `"`)
	if kind != TocContents {
		b.WriteString(` hidden=""`)
	}
	b.WriteString(">\n")
	if root.label != "" {
		b.WriteString("    <h1>" + xmlutil.EscapeText(root.label) + "</h1>\n")
	}
	emitNavList(b, root.children, navDir, "    ")
	b.WriteString("  </nav>\n")
}

func emitNavList(b *strings.Builder, nodes []*TocEntry, navDir, indent string) {
	if len(nodes) == 0 {
		b.WriteString(indent + "<ol/>\n")
		return
	}
	b.WriteString(indent + "<ol>\n")
	for _, node := range nodes {
		b.WriteString(indent + "  <li>\n")
		label := xmlutil.EscapeText(node.label)
		if !node.href.IsEmpty() {
			b.WriteString(indent + `    <a`)
			if node.kind != "" {
				b.WriteString(` epub:type="` + xmlutil.EscapeAttr(node.kind) + `"`)
			}
			if node.id != "" {
				b.WriteString(` id="` + xmlutil.EscapeAttr(node.id) + `"`)
			}
			b.WriteString(` href="` + xmlutil.EscapeAttr(relativeTo(navDir, node.href)) + `">` + label + "</a>\n")
		} else {
			b.WriteString(indent + "    <span>" + label + "</span>\n")
		}
		if len(node.children) > 0 {
			emitNavList(b, node.children, navDir, indent+"    ")
		}
		b.WriteString(indent + "  </li>\n")
	}
	b.WriteString(indent + "</ol>\n")
}
