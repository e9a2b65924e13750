package xmlutil

import (
	"io"
	"strings"
	"testing"
)

func TestCharsetReaderLatin1(t *testing.T) {
	// "café" in ISO-8859-1.
	r, err := CharsetReader("ISO-8859-1", strings.NewReader("caf\xe9"))
	if err != nil {
		t.Fatalf("CharsetReader failed: %v", err)
	}
	data, _ := io.ReadAll(r)
	if string(data) != "café" {
		t.Errorf("Expected 'café', got %q", data)
	}
}

func TestCharsetReaderPassThrough(t *testing.T) {
	for _, label := range []string{"utf-8", "UTF8", "", "x-unknown"} {
		r, err := CharsetReader(label, strings.NewReader("plain"))
		if err != nil {
			t.Fatalf("CharsetReader(%q) failed: %v", label, err)
		}
		data, _ := io.ReadAll(r)
		if string(data) != "plain" {
			t.Errorf("CharsetReader(%q) = %q", label, data)
		}
	}
}

func TestPreprocess(t *testing.T) {
	in := []byte("\xEF\xBB\xBF<!-- bad -- comment --><pkg mlns=\"x\">a&nbsp;b<!-- fine --></pkg>")
	got := string(Preprocess(in))
	want := `<pkg xmlns="x">a&#160;b<!-- fine --></pkg>`
	if got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	cases := map[string]string{
		"  a  b\n\tc ": "a b c",
		"one":          "one",
		"   ":          "",
	}
	for in, want := range cases {
		if got := CollapseWhitespace(in); got != want {
			t.Errorf("CollapseWhitespace(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEscape(t *testing.T) {
	in := "a<b>&\"'\t\n\r z"
	want := "a&lt;b&gt;&amp;&quot;&apos;&#9;&#10;&#13;&#160;z"
	if got := EscapeText(in); got != want {
		t.Errorf("EscapeText = %q, want %q", got, want)
	}
	if got := EscapeAttr(in); got != want {
		t.Errorf("EscapeAttr = %q, want %q", got, want)
	}
}
