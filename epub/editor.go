package epub

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jianyun8023/epubkit/internal/xmlutil"
)

// generatorName identifies this library in generated publications.
const generatorName = "epubkit"

// Editor is a task-oriented facade over the mutation layer: each method
// performs one editorial operation and returns the editor for chaining.
type Editor struct {
	epub  *Epub
	isNew bool
}

// Edit wraps an existing publication.
func Edit(e *Epub) *Editor { return &Editor{epub: e} }

// NewBook starts an empty EPUB 3 publication. It carries a generator
// entry identifying this library until cleared via Generator("").
func NewBook() *Editor {
	ed := &Editor{epub: New(), isNew: true}
	ed.Generator(generatorName)
	return ed
}

// Epub returns the underlying publication.
func (ed *Editor) Epub() *Epub { return ed.epub }

// Identifier adds a dc:identifier. The first identifier given to a
// newly-created publication becomes the unique identifier, under the id
// "unique-identifier" unless the entry carries its own.
func (ed *Editor) Identifier(value string) *Editor {
	md := ed.epub.Metadata()
	d := NewMetaEntry("dc:identifier", value)
	if ed.isNew && ed.epub.pkg.uniqueIdentifier == "" {
		d.ID = "unique-identifier"
	}
	entry := md.Add(d)
	if ed.isNew && ed.epub.pkg.uniqueIdentifier == "" {
		ed.epub.pkg.uniqueIdentifier = entry.ID()
	}
	return ed
}

// RandomIdentifier adds a generated urn:uuid identifier.
func (ed *Editor) RandomIdentifier() *Editor {
	return ed.Identifier("urn:uuid:" + uuid.NewString())
}

// Title appends a dc:title.
func (ed *Editor) Title(value string) *Editor { return ed.appendDC("dc:title", value) }

// Creator appends a dc:creator.
func (ed *Editor) Creator(value string) *Editor { return ed.appendDC("dc:creator", value) }

// Contributor appends a dc:contributor.
func (ed *Editor) Contributor(value string) *Editor { return ed.appendDC("dc:contributor", value) }

// Publisher appends a dc:publisher.
func (ed *Editor) Publisher(value string) *Editor { return ed.appendDC("dc:publisher", value) }

// Tag appends a dc:subject.
func (ed *Editor) Tag(value string) *Editor { return ed.appendDC("dc:subject", value) }

// Description appends a dc:description.
func (ed *Editor) Description(value string) *Editor { return ed.appendDC("dc:description", value) }

// Language appends a dc:language.
func (ed *Editor) Language(value string) *Editor { return ed.appendDC("dc:language", value) }

// Rights appends a dc:rights.
func (ed *Editor) Rights(value string) *Editor { return ed.appendDC("dc:rights", value) }

func (ed *Editor) appendDC(property, value string) *Editor {
	ed.epub.Metadata().Add(NewMetaEntry(property, value))
	return ed
}

// PublishedDate replaces the publication date: any plain dc:date or one
// qualified opf:event="publication".
func (ed *Editor) PublishedDate(dt DateTime) *Editor {
	md := ed.epub.Metadata()
	for _, entry := range md.ByProperty("dc:date") {
		event := entry.Attributes().Value("opf:event")
		if event == "" || event == "publication" {
			entry.SetValue(dt.String())
			return ed
		}
	}
	md.Add(NewMetaEntry("dc:date", dt.String()))
	return ed
}

// ModifiedDate replaces the dcterms:modified timestamp and keeps a
// legacy dc:date opf:event="modification" entry, if present, in step.
func (ed *Editor) ModifiedDate(dt DateTime) *Editor {
	md := ed.epub.Metadata()
	value := dt.String()
	if entry := md.FirstByProperty("dcterms:modified"); entry != nil {
		entry.SetValue(value)
	} else {
		md.Add(NewMetaEntry("dcterms:modified", value))
	}
	for _, entry := range md.ByProperty("dc:date") {
		if entry.Attributes().Value("opf:event") == "modification" {
			entry.SetValue(value)
		}
	}
	return ed
}

// ModifiedNow stamps the current time; it is a no-op where the system
// clock yields nothing usable.
func (ed *Editor) ModifiedNow() *Editor {
	now := Now()
	if now.IsZero() {
		return ed
	}
	return ed.ModifiedDate(now)
}

// Generator replaces the producing-tool entry; the empty string removes
// it.
func (ed *Editor) Generator(value string) *Editor {
	md := ed.epub.Metadata()
	if value == "" {
		md.RemoveByProperty("generator")
		return ed
	}
	if entry := md.FirstByProperty("generator"); entry != nil {
		entry.SetValue(value)
		return ed
	}
	md.Add(NewMetaEntry("generator", value).WithKind(Meta2))
	return ed
}

// CoverImage installs data as the cover at href: the new manifest entry
// carries the cover-image property, the previous cover loses it, and a
// legacy <meta name="cover"> entry is repointed when present.
func (ed *Editor) CoverImage(href string, data []byte) *Editor {
	man := ed.epub.Manifest()
	for _, prev := range man.ByProperty("cover-image") {
		prev.Properties().Remove("cover-image")
	}
	entry := man.Add(NewManifestEntry(href).WithData(data).WithProperty("cover-image"))
	for _, meta := range ed.epub.Metadata().ByProperty("cover") {
		if meta.Kind() == Meta2 {
			meta.SetValue(entry.ID())
		}
	}
	return ed
}

// Chapter describes one readable content unit for AddChapter.
type Chapter struct {
	// Title labels the chapter in the table of contents.
	Title string
	// Href is generated from the title when empty; ID, when empty, is
	// derived from the href's file name.
	ID   string
	Href string
	// Kind, when set, additionally records the chapter under landmarks
	// with that semantic type ("bodymatter", "titlepage", …).
	Kind string
	// Unlisted skips the table-of-contents entry; the chapter still
	// joins the manifest and spine.
	Unlisted bool
	// Content is the full XHTML document; when nil, Body (a fragment) is
	// wrapped in a minimal document titled Title.
	Content []byte
	Body    string
	// Children become nested toc entries, recursively.
	Children []Chapter
}

// NewChapter starts a chapter with a title.
func NewChapter(title string) Chapter { return Chapter{Title: title} }

// XHTMLBody sets the chapter content from a body fragment.
func (c Chapter) XHTMLBody(body string) Chapter {
	c.Body = body
	return c
}

// WithChild appends a sub-chapter.
func (c Chapter) WithChild(child Chapter) Chapter {
	c.Children = append(c.Children, child)
	return c
}

// AddChapter adds the chapter's manifest entry, spine entry, and toc
// entry (plus a landmarks entry when Kind is set), descending into child
// chapters.
func (ed *Editor) AddChapter(ch Chapter) *Editor {
	ed.addChapter(ch, nil)
	return ed
}

func (ed *Editor) addChapter(ch Chapter, parent *TocEntry) {
	e := ed.epub
	href := ch.Href
	if href == "" {
		href = slugify(ch.Title) + ".xhtml"
	}
	content := ch.Content
	if content == nil {
		content = xhtmlDocument(ch.Title, ch.Body)
	}
	entry := e.Manifest().Add(NewManifestEntry(href).WithID(ch.ID).WithData(content))
	e.Spine().Push(entry.ID())

	var node *TocEntry
	if !ch.Unlisted {
		relative := ed.tocHref(entry)
		if parent != nil {
			node = parent.AddChild(NewTocEntry(ch.Title, relative))
		} else {
			root := e.Toc().CreateRoot(TocContents, ed.tocVersion())
			node = root.AddChild(NewTocEntry(ch.Title, relative))
		}
	}
	if ch.Kind != "" {
		landmarks := e.Toc().CreateRoot(TocLandmarks, ed.tocVersion())
		lm := landmarks.AddChild(NewTocEntry(ch.Title, ed.tocHref(entry)))
		lm.kind = ch.Kind
	}
	for _, child := range ch.Children {
		ed.addChapter(child, node)
	}
}

// tocHref expresses a manifest entry's location relative to the package
// document, the base toc entries resolve against.
func (ed *Editor) tocHref(entry *ManifestEntry) string {
	if !entry.HrefRaw().IsEmpty() {
		return entry.HrefRaw().String()
	}
	return entry.Href().String()
}

// tocVersion is the navigation variant new entries land in.
func (ed *Editor) tocVersion() int {
	if ed.epub.pkg.version.IsEpub2() {
		return 2
	}
	return 3
}

// TocTitle sets the heading label of the table of contents, creating the
// tree when missing.
func (ed *Editor) TocTitle(title string) *Editor {
	ed.epub.Toc().CreateRoot(TocContents, ed.tocVersion()).SetLabel(title)
	return ed
}

// LandmarksTitle sets the heading label of the landmarks tree, creating
// it when missing.
func (ed *Editor) LandmarksTitle(title string) *Editor {
	ed.epub.Toc().CreateRoot(TocLandmarks, ed.tocVersion()).SetLabel(title)
	return ed
}

// WriteFile serializes the edited publication.
func (ed *Editor) WriteFile(path string, opts *WriteOptions) error {
	return ed.epub.WriteFile(path, opts)
}

// slugify lowercases s and maps runs of non-alphanumeric characters to
// single dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "untitled"
	}
	return out
}

// xhtmlDocument wraps a body fragment in a minimal XHTML document. The
// title is escaped; the body fragment is trusted markup.
func xhtmlDocument(title, body string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<!DOCTYPE html>` + "\n")
	b.WriteString(`<html xmlns="` + NsXHTML + `" xmlns:epub="` + NsEpubOps + `">` + "\n")
	b.WriteString("<head>\n  <title>" + xmlutil.EscapeText(title) + "</title>\n</head>\n")
	b.WriteString("<body>\n" + body + "\n</body>\n</html>\n")
	return []byte(b.String())
}
