package epub

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/jianyun8023/epubkit/internal/xmlutil"
	"github.com/jianyun8023/epubkit/uri"
)

// parseNavDocument reads the EPUB 3 navigation document into version-3
// trees, one per <nav epub:type="…"> element. The nav document is XHTML
// but frequently not well-formed XML, so it goes through the HTML5
// parser.
func (p *parser) parseNavDocument(entry *ManifestEntry) error {
	data, err := p.e.arc.ReadResource(entry.href.DecodedPath())
	if err != nil {
		if p.opts.Strict {
			return &FormatError{Detail: "cannot read nav document", Path: entry.href.String(), Err: err}
		}
		return nil
	}
	doc, err := html.Parse(bytes.NewReader(xmlutil.StripBOM(data)))
	if err != nil {
		if p.opts.Strict {
			return &FormatError{Detail: "malformed nav document", Path: entry.href.String(), Err: err}
		}
		return nil
	}
	navDir := uri.Parent(entry.href.Path())

	for _, nav := range findElements(doc, atom.Nav) {
		kind := navKind(htmlAttr(nav, "epub:type"))
		if kind == "" {
			// A bare <nav> with no epub:type is the table of contents
			// when none is declared elsewhere.
			kind = TocContents
			if p.e.pkg.toc.ByKindVersion(TocContents, 3) != nil {
				continue
			}
		}
		if p.e.pkg.toc.ByKindVersion(kind, 3) != nil {
			continue
		}
		root := p.e.pkg.toc.CreateRoot(kind, 3)
		root.id = htmlAttr(nav, "id")
		copyDataAttrs(nav, &root.attrs)
		if heading := findHeading(nav); heading != nil {
			root.label = collapseText(textOf(heading))
		}
		if list := findChildElement(nav, atom.Ol); list != nil {
			root.children = p.parseNavList(list, navDir)
		}
	}
	return nil
}

// navKind maps an epub:type token list to the tree kind it declares.
func navKind(epubType string) TocKind {
	for _, tok := range strings.Fields(epubType) {
		switch tok {
		case "toc":
			return TocContents
		case "landmarks":
			return TocLandmarks
		case "page-list":
			return TocPageList
		}
	}
	return ""
}

// parseNavList decodes an <ol> into sibling nodes. Each <li> holds an
// <a> (linked node) or a <span> (grouping header), optionally followed
// by a nested <ol>.
func (p *parser) parseNavList(list *html.Node, navDir string) []*TocEntry {
	var out []*TocEntry
	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.DataAtom != atom.Li {
			continue
		}
		node := &TocEntry{toc: p.e.pkg.toc}
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.A:
				if node.label == "" {
					node.label = collapseText(textOf(c))
					node.id = htmlAttr(c, "id")
					node.kind = htmlAttr(c, "epub:type")
					if raw := htmlAttr(c, "href"); raw != "" {
						node.hrefRaw = Href(raw)
						node.href = resolveAgainst(navDir, raw)
					}
				}
			case atom.Span:
				if node.label == "" {
					node.label = collapseText(textOf(c))
					node.id = htmlAttr(c, "id")
				}
			case atom.Ol:
				node.children = p.parseNavList(c, navDir)
			}
		}
		if node.label == "" && node.href.IsEmpty() && len(node.children) == 0 {
			continue
		}
		out = append(out, node)
	}
	return out
}

// findElements collects every element with the given atom, depth-first.
func findElements(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// findChildElement returns the first direct child element with the atom.
func findChildElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// findHeading returns the first direct h1–h6 child.
func findHeading(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			return c
		}
	}
	return nil
}

// textOf concatenates the text content of a subtree.
func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// htmlAttr returns the value of the named attribute, "" when absent.
func htmlAttr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		if strings.EqualFold(key, name) {
			return a.Val
		}
	}
	return ""
}

// copyDataAttrs keeps the attributes of a nav element that carry
// information the model does not otherwise represent.
func copyDataAttrs(n *html.Node, attrs *Attributes) {
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		switch strings.ToLower(key) {
		case "id", "epub:type", "xmlns", "xmlns:epub":
		default:
			attrs.Set(key, a.Val)
		}
	}
}

func collapseText(s string) string { return xmlutil.CollapseWhitespace(s) }
