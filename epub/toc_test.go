package epub

import "testing"

const navOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="uid">x</dc:identifier><dc:title>t</dc:title><dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="c1" href="text/c1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="text/c2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="c1"/>
    <itemref idref="c2"/>
  </spine>
</package>`

const navDoc = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Nav</title></head>
<body>
  <nav epub:type="toc">
    <h1>Contents</h1>
    <ol>
      <li><a href="text/c1.xhtml">Chapter One</a>
        <ol>
          <li><a href="text/c1.xhtml#s1">Section 1.1</a></li>
        </ol>
      </li>
      <li><span>Part Two</span>
        <ol>
          <li><a href="text/c2.xhtml">Chapter Two</a></li>
        </ol>
      </li>
    </ol>
  </nav>
  <nav epub:type="landmarks" hidden="">
    <ol>
      <li><a epub:type="bodymatter" href="text/c1.xhtml">Start</a></li>
    </ol>
  </nav>
</body>
</html>`

const ncxDoc = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head><meta name="dtb:uid" content="x"/></head>
  <docTitle><text>NCX Title</text></docTitle>
  <navMap>
    <navPoint id="np-1" playOrder="1">
      <navLabel><text>Old One</text></navLabel>
      <content src="text/c1.xhtml"/>
      <navPoint id="np-2" playOrder="2">
        <navLabel><text>Old Sub</text></navLabel>
        <content src="text/c1.xhtml#s1"/>
      </navPoint>
    </navPoint>
  </navMap>
  <pageList>
    <pageTarget id="pt-1" type="normal" value="1">
      <navLabel><text>1</text></navLabel>
      <content src="text/c1.xhtml#p1"/>
    </pageTarget>
  </pageList>
</ncx>`

func navFixture(t *testing.T, opts OpenOptions) *Epub {
	t.Helper()
	return openTestEpub(t, opts, map[string]string{
		"OEBPS/content.opf":   navOPF,
		"OEBPS/nav.xhtml":     navDoc,
		"OEBPS/toc.ncx":       ncxDoc,
		"OEBPS/text/c1.xhtml": "<html>1</html>",
		"OEBPS/text/c2.xhtml": "<html>2</html>",
	})
}

func TestParseNavDocument(t *testing.T) {
	e := navFixture(t, OpenOptions{})

	contents := e.Toc().Contents()
	if contents == nil {
		t.Fatal("no contents tree")
	}
	if contents.Label() != "Contents" {
		t.Errorf("root label = %q", contents.Label())
	}
	kids := contents.Children()
	if len(kids) != 2 {
		t.Fatalf("children = %d, want 2", len(kids))
	}
	if kids[0].Label() != "Chapter One" {
		t.Errorf("first label = %q", kids[0].Label())
	}
	if got := kids[0].Href().String(); got != "/OEBPS/text/c1.xhtml" {
		t.Errorf("first href = %q", got)
	}
	sub := kids[0].Children()
	if len(sub) != 1 || sub[0].Href().Fragment() != "s1" {
		t.Fatalf("nested entry wrong: %v", sub)
	}
	// Grouping headers carry no href.
	if !kids[1].Href().IsEmpty() || kids[1].Label() != "Part Two" {
		t.Errorf("span entry wrong: %q %q", kids[1].Label(), kids[1].Href())
	}
	if kids[0].ManifestEntry() == nil || kids[0].ManifestEntry().ID() != "c1" {
		t.Error("toc -> manifest resolution failed")
	}

	landmarks := e.Toc().Landmarks()
	if landmarks == nil || landmarks.Len() != 1 {
		t.Fatal("landmarks missing")
	}
	if landmarks.Children()[0].Kind() != "bodymatter" {
		t.Errorf("landmark kind = %q", landmarks.Children()[0].Kind())
	}
}

func TestPreferredTocNCX(t *testing.T) {
	e := navFixture(t, OpenOptions{PreferredToc: 2})
	contents := e.Toc().Contents()
	if contents == nil {
		t.Fatal("no contents tree")
	}
	// The NCX variant was materialized instead of the nav document.
	if contents.Children()[0].Label() != "Old One" {
		t.Errorf("label = %q, want NCX variant", contents.Children()[0].Label())
	}
	if e.Toc().ByKindVersion(TocContents, 3) != nil {
		t.Error("nav variant materialized despite RetainVariants=false")
	}
	pages := e.Toc().PageList()
	if pages == nil || pages.Len() != 1 {
		t.Fatal("page list missing")
	}
	if pages.Children()[0].Href().Fragment() != "p1" {
		t.Errorf("page target href wrong: %q", pages.Children()[0].Href())
	}
}

func TestRetainVariants(t *testing.T) {
	e := navFixture(t, OpenOptions{RetainVariants: true})
	if e.Toc().ByKindVersion(TocContents, 3) == nil {
		t.Error("nav variant missing")
	}
	if e.Toc().ByKindVersion(TocContents, 2) == nil {
		t.Error("ncx variant missing")
	}
	// Kind-only access prefers the package version's variant.
	if e.Toc().Contents().Children()[0].Label() != "Chapter One" {
		t.Error("preferred variant wrong")
	}
	// Variant kinds fall back when the preferred version lacks them.
	if e.Toc().PageList() == nil {
		t.Error("page list fallback failed")
	}
}

func TestGuideBecomesLandmarks(t *testing.T) {
	opf := `<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="uid">x</dc:identifier><dc:title>t</dc:title><dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="c1"/></spine>
  <guide>
    <reference type="text" title="Beginning" href="c1.xhtml"/>
  </guide>
</package>`
	e := openTestEpub(t, OpenOptions{}, map[string]string{
		"OEBPS/content.opf": opf,
		"OEBPS/c1.xhtml":    "<html/>",
	})
	lm := e.Toc().Landmarks()
	if lm == nil || lm.Len() != 1 {
		t.Fatal("guide not converted to landmarks")
	}
	node := lm.Children()[0]
	if node.Kind() != "text" || node.Label() != "Beginning" {
		t.Errorf("landmark = kind %q label %q", node.Kind(), node.Label())
	}
	if node.Href().String() != "/OEBPS/c1.xhtml" {
		t.Errorf("landmark href = %q", node.Href())
	}
}

func TestRootKindImmutable(t *testing.T) {
	e := navFixture(t, OpenOptions{})
	root := e.Toc().Contents()
	if root.SetKind("something") {
		t.Error("attached root kind must be immutable")
	}
	child := root.Children()[0]
	if !child.SetKind("chapter") {
		t.Error("child kind must be mutable")
	}
}

func TestSkipToc(t *testing.T) {
	e := navFixture(t, OpenOptions{SkipToc: true})
	if len(e.Toc().Keys()) != 0 {
		t.Errorf("toc parsed despite SkipToc: %v", e.Toc().Keys())
	}
}

func TestTocWalkAndMutation(t *testing.T) {
	e := navFixture(t, OpenOptions{})
	root := e.Toc().Contents()

	count := 0
	root.Walk(func(*TocEntry) bool { count++; return true })
	if count != 5 {
		t.Errorf("Walk visited %d nodes, want 5", count)
	}

	removed := root.RemoveChild(1)
	if removed.Label() != "Part Two" {
		t.Errorf("removed %q", removed.Label())
	}
	if root.Len() != 1 {
		t.Errorf("Len = %d after removal", root.Len())
	}
	root.InsertChild(0, NewTocEntry("Preface", "text/c1.xhtml#pre"))
	if root.Children()[0].Label() != "Preface" {
		t.Error("InsertChild misplaced")
	}
}
