package epub

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/jianyun8023/epubkit/internal/xmlutil"
	"github.com/jianyun8023/epubkit/uri"
)

// XML namespaces of the package ecosystem.
const (
	NsContainer = "urn:oasis:names:tc:opendocument:xmlns:container"
	NsOPF       = "http://www.idpf.org/2007/opf"
	NsDC        = "http://purl.org/dc/elements/1.1/"
	NsDCTerms   = "http://purl.org/dc/terms/"
	NsXHTML     = "http://www.w3.org/1999/xhtml"
	NsEpubOps   = "http://www.idpf.org/2007/ops"
	NsNCX       = "http://www.daisy.org/z3986/2005/ncx/"
)

const containerPath = "/META-INF/container.xml"

// pendingRefine is a metadata entry whose refines target has not been
// attached yet; targets may live anywhere in the package document.
type pendingRefine struct {
	entry  *MetaEntry
	target string
}

// parser carries per-open state.
type parser struct {
	e    *Epub
	opts OpenOptions

	pending []pendingRefine
	// ncxID is the spine toc attribute, consumed rather than stored.
	ncxID string
	// guide holds EPUB 2 guide references for the landmarks fallback.
	guide []guideRef
}

type guideRef struct {
	kind  string
	title string
	href  string
}

// parseInto reads the container and package document of e's archive and
// builds the model.
func parseInto(e *Epub) error {
	p := &parser{e: e, opts: e.opts}

	location, err := p.parseContainer()
	if err != nil {
		return err
	}
	e.pkg = newPackage(e, location)

	opfDoc, err := p.readXML(uri.PercentDecode(e.pkg.location))
	if err != nil {
		return &FormatError{Detail: "cannot read package document", Path: e.pkg.location, Err: err}
	}
	if err := p.parsePackage(opfDoc); err != nil {
		return err
	}

	if !p.opts.SkipToc && !p.opts.SkipManifest {
		if err := p.parseToc(); err != nil {
			return err
		}
	}
	if p.opts.Strict {
		return p.verifyStrict()
	}
	return nil
}

// readXML loads a container resource and parses it leniently with etree.
func (p *parser) readXML(path string) (*etree.Document, error) {
	data, err := p.e.arc.ReadResource(path)
	if err != nil {
		return nil, err
	}
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = xmlutil.CharsetReader
	doc.ReadSettings.Permissive = true
	if err := doc.ReadFromBytes(xmlutil.Preprocess(data)); err != nil {
		return nil, fmt.Errorf("malformed xml: %w", err)
	}
	return doc, nil
}

// parseContainer locates the package document through
// META-INF/container.xml. Only the first rootfile is used.
func (p *parser) parseContainer() (string, error) {
	doc, err := p.readXML(containerPath)
	if err != nil {
		return "", &FormatError{Detail: "missing or unreadable container", Path: containerPath, Err: ErrMissingContainer}
	}
	root := doc.SelectElement("container")
	if root == nil {
		return "", &FormatError{Detail: "container.xml has no container element", Path: containerPath, Err: ErrMissingRootfile}
	}
	rootfiles := root.SelectElement("rootfiles")
	if rootfiles == nil {
		return "", &FormatError{Detail: "container.xml has no rootfiles", Path: containerPath, Err: ErrMissingRootfile}
	}
	for _, rf := range rootfiles.SelectElements("rootfile") {
		if fullPath := rf.SelectAttrValue("full-path", ""); fullPath != "" {
			return uri.IntoAbsolute(fullPath), nil
		}
	}
	return "", &FormatError{Detail: "container.xml has no usable rootfile", Path: containerPath, Err: ErrMissingRootfile}
}

// parsePackage decodes the <package> element and its sections.
func (p *parser) parsePackage(doc *etree.Document) error {
	pkg := p.e.pkg
	root := doc.SelectElement("package")
	if root == nil {
		return &FormatError{Detail: "no package element", Path: pkg.location}
	}

	rawVersion := root.SelectAttrValue("version", "")
	pkg.version = ParseEpubVersion(rawVersion)
	if p.opts.Strict {
		v, ok := ParseVersion(rawVersion)
		if !ok || v.Major < 2 || v.Major >= 4 {
			return &FormatError{Detail: "package version out of range", Property: rawVersion, Path: pkg.location}
		}
	}
	pkg.uniqueIdentifier = root.SelectAttrValue("unique-identifier", "")
	pkg.xmlLang = root.SelectAttrValue("lang", "")
	pkg.dir = ParseTextDirection(root.SelectAttrValue("dir", ""))
	parsePrefixes(pkg, root.SelectAttrValue("prefix", ""))

	consumed := map[string]bool{
		"version": true, "unique-identifier": true, "lang": true,
		"xml:lang": true, "dir": true, "prefix": true, "xmlns": true,
	}
	for _, attr := range root.Attr {
		name := attrName(attr)
		if !consumed[name] && !strings.HasPrefix(name, "xmlns:") {
			pkg.attrs.Set(name, attr.Value)
		}
	}

	if !p.opts.SkipMetadata {
		if meta := root.SelectElement("metadata"); meta != nil {
			p.parseMetadata(meta)
		}
	}
	if !p.opts.SkipManifest {
		if man := root.SelectElement("manifest"); man != nil {
			if err := p.parseManifest(man); err != nil {
				return err
			}
		}
	}
	if !p.opts.SkipSpine {
		if spine := root.SelectElement("spine"); spine != nil {
			if err := p.parseSpine(spine); err != nil {
				return err
			}
		}
	}
	if guide := root.SelectElement("guide"); guide != nil {
		for _, ref := range guide.SelectElements("reference") {
			p.guide = append(p.guide, guideRef{
				kind:  ref.SelectAttrValue("type", ""),
				title: ref.SelectAttrValue("title", ""),
				href:  ref.SelectAttrValue("href", ""),
			})
		}
	}

	p.attachRefinements()
	return nil
}

// parsePrefixes reads the package prefix attribute: a whitespace
// separated list of "name: uri" pairs.
func parsePrefixes(pkg *Package, raw string) {
	fields := strings.Fields(raw)
	for i := 0; i < len(fields); i++ {
		name, ok := strings.CutSuffix(fields[i], ":")
		if !ok || i+1 >= len(fields) {
			continue
		}
		i++
		pkg.AddPrefix(name, fields[i])
	}
}

func attrName(attr etree.Attr) string {
	if attr.Space != "" {
		return attr.Space + ":" + attr.Key
	}
	return attr.Key
}

// parseMetadata walks <metadata> children in document order. Entries
// bearing refines are held back and attached once every candidate parent
// exists.
func (p *parser) parseMetadata(meta *etree.Element) {
	md := p.e.pkg.metadata
	for _, child := range meta.ChildElements() {
		entry, refines := p.parseMetaChild(child)
		if entry == nil {
			continue
		}
		if refines != "" {
			p.pending = append(p.pending, pendingRefine{entry: entry, target: refines})
		} else {
			md.attachEntry(entry)
		}
	}
}

// parseMetaChild decodes one metadata child into an entry plus its
// refines target id, if any.
func (p *parser) parseMetaChild(el *etree.Element) (*MetaEntry, string) {
	md := p.e.pkg.metadata
	entry := &MetaEntry{meta: md}
	var refines string

	consumed := map[string]bool{"id": true, "dir": true, "lang": true, "xml:lang": true}
	entry.id = el.SelectAttrValue("id", "")
	entry.lang = el.SelectAttrValue("lang", "")
	entry.dir = ParseTextDirection(el.SelectAttrValue("dir", ""))

	switch {
	case el.Space == "dc" || el.Space == "" && el.Tag != "meta" && el.Tag != "link":
		// Dublin Core element; unprefixed unknown elements are treated
		// as DC in lenient tradition.
		entry.kind = DublinCore
		entry.property = "dc:" + el.Tag
		entry.value = xmlutil.CollapseWhitespace(el.Text())
	case el.Tag == "meta":
		if prop := el.SelectAttrValue("property", ""); prop != "" {
			entry.kind = Meta3
			entry.property = prop
			entry.value = xmlutil.CollapseWhitespace(el.Text())
			refines = strings.TrimPrefix(el.SelectAttrValue("refines", ""), "#")
			consumed["property"] = true
			consumed["refines"] = true
		} else {
			entry.kind = Meta2
			entry.property = el.SelectAttrValue("name", "")
			entry.value = el.SelectAttrValue("content", "")
			consumed["name"] = true
			consumed["content"] = true
		}
	case el.Tag == "link":
		entry.kind = LinkEntry
		entry.property = el.SelectAttrValue("rel", "")
		refines = strings.TrimPrefix(el.SelectAttrValue("refines", ""), "#")
		consumed["rel"] = true
		consumed["refines"] = true
	default:
		return nil, ""
	}

	for _, attr := range el.Attr {
		name := attrName(attr)
		if !consumed[name] && !strings.HasPrefix(name, "xmlns") {
			entry.attrs.Set(name, attr.Value)
		}
	}
	if entry.property == "" {
		// Every entry must declare a property; lenient mode drops the
		// malformed element.
		return nil, ""
	}
	return entry, refines
}

// attachRefinements runs the second pass: each held-back entry is nested
// under the element its refines attribute targets. Orphans are promoted
// to top level in lenient mode.
func (p *parser) attachRefinements() {
	md := p.e.pkg.metadata
	// Ids may target other pending entries, so resolve iteratively
	// until a pass attaches nothing.
	pending := p.pending
	for {
		var still []pendingRefine
		attached := false
		for _, pr := range pending {
			if p.attachRefinement(pr) {
				attached = true
			} else {
				still = append(still, pr)
			}
		}
		pending = still
		if !attached || len(pending) == 0 {
			break
		}
	}
	for _, pr := range pending {
		// Orphan: no target anywhere. Keep the data rather than drop it.
		md.attachEntry(pr.entry)
	}
	p.pending = pending
}

func (p *parser) attachRefinement(pr pendingRefine) bool {
	pkg := p.e.pkg
	if target, _ := pkg.metadata.ByID(pr.target); target != nil {
		target.refines = append(target.refines, pr.entry)
		return true
	}
	if target := pkg.manifest.ByID(pr.target); target != nil {
		target.refines = append(target.refines, pr.entry)
		return true
	}
	if target := pkg.spine.ByID(pr.target); target != nil {
		target.refines = append(target.refines, pr.entry)
		return true
	}
	return false
}

// parseManifest decodes <manifest> items in document order.
func (p *parser) parseManifest(man *etree.Element) error {
	m := p.e.pkg.manifest
	for _, el := range man.SelectElements("item") {
		id := el.SelectAttrValue("id", "")
		rawHref := el.SelectAttrValue("href", "")
		mediaType := el.SelectAttrValue("media-type", "")
		if p.opts.Strict && (id == "" || rawHref == "" || mediaType == "") {
			return &FormatError{Detail: "manifest item missing required attribute", ID: id, Path: rawHref}
		}
		if id == "" {
			continue
		}
		if _, dup := m.entries[id]; dup {
			if p.opts.Strict {
				return &FormatError{Detail: "duplicate manifest id", ID: id, Err: ErrDuplicateID}
			}
			continue
		}
		// Authored hrefs are required to be percent-encoded; lenient
		// mode corrects raw ones.
		if !p.opts.Strict {
			rawHref = uri.PercentEncode(rawHref)
		}
		entry := &ManifestEntry{
			manifest:     m,
			id:           id,
			hrefRaw:      Href(rawHref),
			href:         p.e.pkg.resolveHref(rawHref),
			mediaType:    mediaType,
			fallback:     el.SelectAttrValue("fallback", ""),
			mediaOverlay: el.SelectAttrValue("media-overlay", ""),
			properties:   ParseProperties(el.SelectAttrValue("properties", "")),
		}
		consumed := map[string]bool{
			"id": true, "href": true, "media-type": true,
			"fallback": true, "media-overlay": true, "properties": true,
		}
		for _, attr := range el.Attr {
			name := attrName(attr)
			if !consumed[name] && !strings.HasPrefix(name, "xmlns") {
				entry.attrs.Set(name, attr.Value)
			}
		}
		m.order = append(m.order, id)
		m.entries[id] = entry
	}
	return nil
}

// parseSpine decodes <spine> itemrefs in document order.
func (p *parser) parseSpine(spine *etree.Element) error {
	sp := p.e.pkg.spine
	sp.pageDirection = ParsePageDirection(spine.SelectAttrValue("page-progression-direction", ""))
	p.ncxID = spine.SelectAttrValue("toc", "")

	for _, el := range spine.SelectElements("itemref") {
		idref := el.SelectAttrValue("idref", "")
		if idref == "" {
			if p.opts.Strict {
				return &FormatError{Detail: "spine itemref missing idref"}
			}
			continue
		}
		entry := &SpineEntry{
			spine:      sp,
			id:         el.SelectAttrValue("id", ""),
			idref:      idref,
			linear:     el.SelectAttrValue("linear", "") != "no",
			properties: ParseProperties(el.SelectAttrValue("properties", "")),
		}
		consumed := map[string]bool{"id": true, "idref": true, "linear": true, "properties": true}
		for _, attr := range el.Attr {
			name := attrName(attr)
			if !consumed[name] && !strings.HasPrefix(name, "xmlns") {
				entry.attrs.Set(name, attr.Value)
			}
		}
		sp.entries = append(sp.entries, entry)
	}
	return nil
}

// verifyStrict checks the invariants lenient mode forgives.
func (p *parser) verifyStrict() error {
	pkg := p.e.pkg
	md := pkg.metadata
	if !p.opts.SkipMetadata {
		if md.FirstByProperty("dc:identifier") == nil {
			return &FormatError{Detail: "missing dc:identifier"}
		}
		if md.FirstByProperty("dc:title") == nil {
			return &FormatError{Detail: "missing dc:title"}
		}
		if md.FirstByProperty("dc:language") == nil {
			return &FormatError{Detail: "missing dc:language"}
		}
		if uid := pkg.uniqueIdentifier; uid != "" {
			e, refines := md.ByID(uid)
			if e == nil || refines != "" || e.property != "dc:identifier" {
				return &FormatError{Detail: "unique-identifier does not reference a dc:identifier", ID: uid}
			}
		} else {
			return &FormatError{Detail: "missing unique-identifier attribute"}
		}
		if len(p.pending) > 0 {
			return &FormatError{Detail: "refinement references unknown id", ID: p.pending[0].target}
		}
	}
	if !p.opts.SkipManifest && pkg.manifest.Len() == 0 {
		return &FormatError{Detail: "empty manifest"}
	}
	if !p.opts.SkipSpine && pkg.spine.Len() == 0 {
		return &FormatError{Detail: "empty spine"}
	}
	return nil
}

