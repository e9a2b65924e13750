package epub

import "testing"

func TestProperties(t *testing.T) {
	p := ParseProperties("  nav   cover-image nav ")
	if p.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (duplicates dropped)", p.Len())
	}
	if p.String() != "nav cover-image" {
		t.Errorf("String = %q", p.String())
	}
	if !p.Has("nav") || p.Has("NAV") {
		t.Error("Has must be case-sensitive")
	}
	p.Add("scripted")
	p.Add("scripted")
	if p.String() != "nav cover-image scripted" {
		t.Errorf("insertion order lost: %q", p.String())
	}
	if !p.Remove("nav") || p.Remove("nav") {
		t.Error("Remove result wrong")
	}
	if p.IsEmpty() {
		t.Error("IsEmpty wrong")
	}
	empty := ParseProperties("   ")
	if !empty.IsEmpty() {
		t.Error("whitespace-only input must be empty")
	}
}

func TestAttributes(t *testing.T) {
	var a Attributes
	a.Set("opf:role", "  aut  ")
	a.Set("id", "x")

	if v, ok := a.Get("OPF:ROLE"); !ok || v != "aut" {
		t.Errorf("case-insensitive Get = %q, %v", v, ok)
	}
	a.Set("OPF:role", "ill")
	if a.Len() != 2 {
		t.Errorf("Set created a duplicate: %d", a.Len())
	}
	if a.Value("opf:role") != "ill" {
		t.Errorf("Value = %q", a.Value("opf:role"))
	}
	all := a.All()
	if all[0].Name.String() != "opf:role" || all[1].Name.String() != "id" {
		t.Error("order lost")
	}
	if !a.Remove("id") || a.Remove("id") {
		t.Error("Remove result wrong")
	}
}

func TestParseName(t *testing.T) {
	n := ParseName("opf:file-as")
	if n.Prefix != "opf" || n.Local != "file-as" || n.String() != "opf:file-as" {
		t.Errorf("ParseName = %+v", n)
	}
	if ParseName("id").HasPrefix() {
		t.Error("bare name has no prefix")
	}
}

func TestTextDirection(t *testing.T) {
	if ParseTextDirection("rtl") != DirRTL || ParseTextDirection("ltr") != DirLTR {
		t.Error("direction parse wrong")
	}
	if ParseTextDirection("sideways") != DirAuto {
		t.Error("unknown direction must be auto")
	}
	if DirAuto.String() != "auto" {
		t.Errorf("String = %q", DirAuto.String())
	}
}

func TestEpubVersion(t *testing.T) {
	v := ParseEpubVersion("2.0.1")
	if !v.IsEpub2() || v.Raw != "2.0.1" {
		t.Errorf("2.0.1: %+v", v)
	}
	if !ParseEpubVersion("3").IsEpub3() {
		t.Error("bare major must parse")
	}
	if !ParseEpubVersion("4.0").IsUnknown() || !ParseEpubVersion("banana").IsUnknown() {
		t.Error("unknown classification wrong")
	}
}

func TestHref(t *testing.T) {
	h := Href("text/ch%201.xhtml?q=1#frag")
	if h.Path() != "text/ch%201.xhtml" {
		t.Errorf("Path = %q", h.Path())
	}
	if h.Query() != "q=1" || h.Fragment() != "frag" {
		t.Errorf("Query/Fragment = %q/%q", h.Query(), h.Fragment())
	}
	if h.QueryFragment() != "?q=1#frag" {
		t.Errorf("QueryFragment = %q", h.QueryFragment())
	}
	if h.Decode() != "text/ch 1.xhtml?q=1#frag" {
		t.Errorf("Decode = %q", h.Decode())
	}
	if h.Extension() != "xhtml" {
		t.Errorf("Extension = %q", h.Extension())
	}
	if h.FileName() != "ch 1.xhtml" {
		t.Errorf("FileName = %q", h.FileName())
	}
	if Href("http://example.com/a").HasScheme() != true || h.HasScheme() {
		t.Error("HasScheme wrong")
	}
}
