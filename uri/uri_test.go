package uri

import "testing"

func TestPercentDecode(t *testing.T) {
	cases := map[string]string{
		"file%20name.css":  "file name.css",
		"a%2Fb":            "a/b",
		"no-escapes":       "no-escapes",
		"bad%2xliteral":    "bad%2xliteral",
		"trailing%2":       "trailing%2",
		"%E4%B8%AD":        "中",
		"double%2520":      "double%20",
		"mixed%20and%GGok": "mixed and%GGok",
	}
	for in, want := range cases {
		if got := PercentDecode(in); got != want {
			t.Errorf("PercentDecode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPercentEncode(t *testing.T) {
	cases := map[string]string{
		"file name.css":   "file%20name.css",
		"OEBPS/ch 1.html": "OEBPS/ch%201.html",
		"already%20done":  "already%20done",
		"a<b>c":           "a%3Cb%3Ec",
		"keep/:@=+":       "keep/:@=+",
	}
	for in, want := range cases {
		if got := PercentEncode(in); got != want {
			t.Errorf("PercentEncode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/OEBPS//text/../c1.xhtml": "/OEBPS/c1.xhtml",
		"/a/./b":                   "/a/b",
		"/../../x":                 "/x",
		"/..":                      "/",
		"a/../b":                   "b",
		"../a":                     "../a",
		"./":                       ".",
		"/":                        "/",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"/a//b/../c", "x/./y/..", "/..", "../..", "/a/b/c"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q vs %q", in, once, twice)
		}
	}
}

func TestResolve(t *testing.T) {
	cases := []struct{ base, rel, want string }{
		{"/OEBPS", "c1.xhtml", "/OEBPS/c1.xhtml"},
		{"/OEBPS", "../images/a.png", "/images/a.png"},
		{"/OEBPS", "/abs.css", "/abs.css"},
		{"/", "a", "/a"},
		{"/OEBPS", "../../../x", "/x"},
	}
	for _, c := range cases {
		if got := Resolve(c.base, c.rel); got != c.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", c.base, c.rel, got, c.want)
		}
	}
}

func TestRelativize(t *testing.T) {
	cases := []struct{ base, target, want string }{
		{"/OEBPS", "/OEBPS/c1.xhtml", "c1.xhtml"},
		{"/OEBPS", "/OEBPS/text/c1.xhtml", "text/c1.xhtml"},
		{"/OEBPS", "/images/a.png", "../images/a.png"},
		{"/", "/c1.xhtml", "c1.xhtml"},
		{"/a/b", "/c/d.css", "../../c/d.css"},
	}
	for _, c := range cases {
		if got := Relativize(c.base, c.target); got != c.want {
			t.Errorf("Relativize(%q, %q) = %q, want %q", c.base, c.target, got, c.want)
		}
	}
}

func TestParentFileNameExtension(t *testing.T) {
	if got := Parent("/OEBPS/c1.xhtml"); got != "/OEBPS" {
		t.Errorf("Parent = %q", got)
	}
	if got := Parent("/c1.xhtml"); got != "/" {
		t.Errorf("Parent root = %q", got)
	}
	if got := Parent("c1.xhtml"); got != "" {
		t.Errorf("Parent bare = %q", got)
	}
	if got := FileName("/OEBPS/c1.xhtml?x=1#frag"); got != "c1.xhtml" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileExtension("/OEBPS/c1.xhtml#s1"); got != "xhtml" {
		t.Errorf("FileExtension = %q", got)
	}
	if got := FileExtension("/OEBPS/Makefile"); got != "" {
		t.Errorf("FileExtension no-dot = %q", got)
	}
	if got := FileExtension("/.hidden"); got != "" {
		t.Errorf("FileExtension dotfile = %q", got)
	}
}

func TestStripQueryFragment(t *testing.T) {
	if got := StripQueryFragment("a.xhtml?q=1#s"); got != "a.xhtml" {
		t.Errorf("StripQueryFragment = %q", got)
	}
	if got := StripQueryFragment("a.xhtml#s?x"); got != "a.xhtml" {
		t.Errorf("StripQueryFragment fragment-first = %q", got)
	}
}

func TestHasScheme(t *testing.T) {
	yes := []string{"http://x", "mailto:a@b", "urn:uuid:1", "x+y-z.1:rest"}
	no := []string{"c1.xhtml", "/OEBPS/c1.xhtml", "1http://x", "no-colon", ":leading", "a/b:c"}
	for _, s := range yes {
		if !HasScheme(s) {
			t.Errorf("HasScheme(%q) = false, want true", s)
		}
	}
	for _, s := range no {
		if HasScheme(s) {
			t.Errorf("HasScheme(%q) = true, want false", s)
		}
	}
}
