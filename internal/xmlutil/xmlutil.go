// Package xmlutil holds the XML plumbing shared by the parser and the
// serializer: charset decoding for legacy encodings, preprocessing fixes
// for malformed real-world files, whitespace collapsing of element text,
// and attribute/text escaping for emission.
package xmlutil

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// encodings maps lowercased charset labels to their decoders.
// utf-8 is handled as a pass-through before this table is consulted.
var encodings = map[string]encoding.Encoding{
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"cp1251":       charmap.Windows1251,
	"cp1252":       charmap.Windows1252,
	"koi8-r":       charmap.KOI8R,
	"utf-16":       unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":     unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// CharsetReader converts input in the named charset to UTF-8. Unknown
// labels pass through unchanged; garbled text beats a hard failure when
// reading third-party files.
func CharsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	}
	if enc, ok := encodings[strings.ToLower(strings.TrimSpace(label))]; ok {
		return enc.NewDecoder().Reader(input), nil
	}
	return input, nil
}

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// commentPattern matches XML comments, including multi-line ones.
var commentPattern = regexp.MustCompile(`(?s)<!--(.*?)-->`)

// entityNameToNumeric maps HTML named entities, which XML parsers reject,
// to numeric character references. Only entities observed in shipped
// EPUB files are listed.
var entityNameToNumeric = map[string]string{
	"nbsp": "&#160;", "mdash": "&#8212;", "ndash": "&#8211;",
	"hellip": "&#8230;", "lsquo": "&#8216;", "rsquo": "&#8217;",
	"ldquo": "&#8220;", "rdquo": "&#8221;", "copy": "&#169;",
	"reg": "&#174;", "trade": "&#8482;", "bull": "&#8226;",
	"middot": "&#183;", "laquo": "&#171;", "raquo": "&#187;",
	"deg": "&#176;", "sect": "&#167;", "para": "&#182;",
	"times": "&#215;", "divide": "&#247;",
}

var entityPattern = regexp.MustCompile(
	`(?i)&(nbsp|mdash|ndash|hellip|lsquo|rsquo|ldquo|rdquo|copy|reg|trade|bull|middot|laquo|raquo|deg|sect|para|times|divide);`)

// Preprocess fixes the XML defects that dominate parse failures in
// real-world EPUB files before the bytes reach the parser:
//
//  1. comments containing "--" (invalid per the XML spec) are dropped,
//  2. the " mlns=" namespace typo is repaired,
//  3. HTML named entities become numeric character references.
func Preprocess(data []byte) []byte {
	data = StripBOM(data)

	data = commentPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		inner := match[4 : len(match)-3]
		if bytes.Contains(inner, []byte("--")) {
			return nil
		}
		return match
	})

	data = bytes.ReplaceAll(data, []byte(" mlns="), []byte(" xmlns="))

	data = entityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if repl, ok := entityNameToNumeric[name]; ok {
			return []byte(repl)
		}
		return match
	})

	return data
}

// CollapseWhitespace trims s and collapses every interior run of
// whitespace to a single space. Element text goes through this so that
// values parsed from differently indented documents compare equal.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// EscapeText escapes s for use as XML element content. Beyond the five
// predefined entities, the whitespace controls and the no-break space are
// emitted as numeric references so they survive re-parsing intact.
func EscapeText(s string) string {
	return escape(s, false)
}

// EscapeAttr escapes s for use inside a double-quoted attribute value.
func EscapeAttr(s string) string {
	return escape(s, true)
}

func escape(s string, attr bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&apos;")
		case '\t':
			b.WriteString("&#9;")
		case '\n':
			b.WriteString("&#10;")
		case '\r':
			b.WriteString("&#13;")
		case '\u00A0':
			b.WriteString("&#160;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
