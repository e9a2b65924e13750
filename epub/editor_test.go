package epub

import (
	"strings"
	"testing"
)

func TestEditorIdentifierPromotion(t *testing.T) {
	ed := NewBook()
	ed.Identifier("urn:uuid:first").Identifier("urn:isbn:second")

	e := ed.Epub()
	if got := e.Package().UniqueIdentifier(); got != "unique-identifier" {
		t.Errorf("unique-identifier = %q", got)
	}
	ids := e.Metadata().Identifiers()
	if len(ids) != 2 {
		t.Fatalf("identifiers = %d", len(ids))
	}
	if ids[0].ID() != "unique-identifier" || ids[0].Value() != "urn:uuid:first" {
		t.Errorf("first identifier = %q %q", ids[0].ID(), ids[0].Value())
	}
	if ids[1].ID() != "" {
		t.Errorf("second identifier unexpectedly keyed: %q", ids[1].ID())
	}
}

func TestEditorRandomIdentifier(t *testing.T) {
	ed := NewBook().RandomIdentifier()
	id := ed.Epub().Metadata().Identifier()
	if id == nil || !strings.HasPrefix(id.Value(), "urn:uuid:") {
		t.Fatalf("identifier = %v", id)
	}
}

func TestEditorDates(t *testing.T) {
	ed := NewBook()
	ed.PublishedDate(NewDate(2020, 1, 2).At(UTC(0, 0, 0)))
	ed.PublishedDate(NewDate(2021, 3, 4).At(UTC(0, 0, 0)))

	md := ed.Epub().Metadata()
	dates := md.ByProperty("dc:date")
	if len(dates) != 1 {
		t.Fatalf("dc:date entries = %d, want replacement", len(dates))
	}
	if !strings.HasPrefix(dates[0].Value(), "2021-03-04") {
		t.Errorf("date = %q", dates[0].Value())
	}

	ed.ModifiedDate(NewDate(2022, 5, 6).At(UTC(7, 8, 9)))
	mod, ok := md.Modified()
	if !ok || mod.Date != NewDate(2022, 5, 6) {
		t.Errorf("Modified = %v %v", mod, ok)
	}
}

func TestEditorModifiedSyncsLegacyDate(t *testing.T) {
	opf := `<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:identifier id="uid">x</dc:identifier><dc:title>t</dc:title><dc:language>en</dc:language>
    <dc:date opf:event="modification">2001-01-01</dc:date>
  </metadata>
  <manifest><item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/></manifest>
  <spine><itemref idref="c1"/></spine>
</package>`
	e := openTestEpub(t, OpenOptions{}, map[string]string{
		"OEBPS/content.opf": opf,
		"OEBPS/c1.xhtml":    "<html/>",
	})
	Edit(e).ModifiedDate(NewDate(2024, 6, 1).At(UTC(12, 0, 0)))

	for _, d := range e.Metadata().ByProperty("dc:date") {
		if d.Attributes().Value("opf:event") == "modification" && !strings.HasPrefix(d.Value(), "2024-06-01") {
			t.Errorf("legacy modification date not synced: %q", d.Value())
		}
	}
	if md, ok := e.Metadata().Modified(); !ok || md.Date != NewDate(2024, 6, 1) {
		t.Errorf("Modified = %v", md)
	}
}

func TestEditorCoverImage(t *testing.T) {
	e := cascadeEpub(t)
	// c2000 is the legacy cover via <meta name="cover">.
	prev := e.Manifest().CoverImage()
	if prev == nil || prev.ID() != "c2000" {
		t.Fatalf("precondition: cover = %v", prev)
	}

	Edit(e).CoverImage("new.png", []byte{1, 2, 3})

	cover := e.Manifest().CoverImage()
	if cover == nil || cover.HrefRaw().String() != "new.png" {
		t.Fatalf("new cover = %v", cover)
	}
	if !cover.Properties().Has("cover-image") {
		t.Error("new cover lacks property")
	}
	// The previous entry keeps everything but the property.
	if prev.Properties().Has("cover-image") {
		t.Error("previous cover kept the property")
	}
	if prev.MediaType() != "application/xhtml+xml" {
		t.Error("previous cover lost unrelated fields")
	}
	// The legacy meta now points at the new id.
	meta := e.Metadata().FirstByProperty("cover")
	if meta.Value() != cover.ID() {
		t.Errorf("cover meta = %q, want %q", meta.Value(), cover.ID())
	}
	data, err := e.ReadResource("new.png")
	if err != nil || len(data) != 3 {
		t.Errorf("cover bytes = %v, %v", data, err)
	}
}

func TestEditorChapterSlugCollision(t *testing.T) {
	ed := NewBook()
	ed.Identifier("x").Title("T").Language("en")
	ed.AddChapter(NewChapter("My Chapter!").XHTMLBody("<p>1</p>"))
	ed.AddChapter(NewChapter("My Chapter?").XHTMLBody("<p>2</p>"))

	man := ed.Epub().Manifest()
	entries := man.Entries()
	if len(entries) != 2 {
		t.Fatalf("manifest entries = %d", len(entries))
	}
	if got := entries[0].HrefRaw().String(); got != "my-chapter.xhtml" {
		t.Errorf("first href = %q", got)
	}
	if got := entries[1].HrefRaw().String(); got != "my-chapter1.xhtml" {
		t.Errorf("second href = %q", got)
	}
}

func TestEditorNestedChapters(t *testing.T) {
	ed := NewBook()
	ed.Identifier("x").Title("T").Language("en")
	ed.AddChapter(
		NewChapter("Part One").XHTMLBody("<p>p1</p>").
			WithChild(NewChapter("Chapter 1").XHTMLBody("<p>c1</p>")).
			WithChild(NewChapter("Chapter 2").XHTMLBody("<p>c2</p>")))

	e := ed.Epub()
	if e.Spine().Len() != 3 {
		t.Errorf("spine = %d, want 3", e.Spine().Len())
	}
	root := e.Toc().Contents()
	if root.Len() != 1 {
		t.Fatalf("toc roots = %d", root.Len())
	}
	part := root.Children()[0]
	if part.Label() != "Part One" || part.Len() != 2 {
		t.Errorf("part = %q with %d children", part.Label(), part.Len())
	}
}

func TestEditorUnlistedAndLandmarks(t *testing.T) {
	ed := NewBook()
	ed.Identifier("x").Title("T").Language("en")
	ed.AddChapter(Chapter{Title: "Copyright", Unlisted: true, Body: "<p>(c)</p>", Kind: "copyright-page"})
	ed.AddChapter(NewChapter("Body").XHTMLBody("<p>b</p>"))

	e := ed.Epub()
	if e.Spine().Len() != 2 {
		t.Errorf("spine = %d", e.Spine().Len())
	}
	if got := e.Toc().Contents().Len(); got != 1 {
		t.Errorf("toc entries = %d, want unlisted skipped", got)
	}
	lm := e.Toc().Landmarks()
	if lm == nil || lm.Len() != 1 || lm.Children()[0].Kind() != "copyright-page" {
		t.Fatalf("landmarks = %v", lm)
	}
}

func TestEditorTocTitles(t *testing.T) {
	ed := NewBook()
	ed.TocTitle("Table of Contents").LandmarksTitle("Guide")
	e := ed.Epub()
	if e.Toc().Contents().Label() != "Table of Contents" {
		t.Errorf("toc label = %q", e.Toc().Contents().Label())
	}
	if e.Toc().Landmarks().Label() != "Guide" {
		t.Errorf("landmarks label = %q", e.Toc().Landmarks().Label())
	}
}

func TestXHTMLBodyEscapesTitle(t *testing.T) {
	doc := string(xhtmlDocument("Tom & <Jerry>", "<p>x</p>"))
	if !strings.Contains(doc, "<title>Tom &amp; &lt;Jerry&gt;</title>") {
		t.Errorf("title not escaped: %s", doc)
	}
	if !strings.Contains(doc, "<p>x</p>") {
		t.Error("body fragment lost")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Chapter!": "my-chapter",
		"  A  B  ":    "a-b",
		"Déjà vu":     "d-j-vu",
		"":            "untitled",
		"---":         "untitled",
		"CamelCase09": "camelcase09",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
