package epub

import (
	"strings"

	"github.com/jianyun8023/epubkit/uri"
)

// Href is a resource reference as it appears in package documents:
// percent-encoded, possibly carrying a query and fragment. Manifest
// entries store both the authored relative form and the absolute form
// resolved against the package document directory.
type Href string

func (h Href) String() string { return string(h) }

// IsEmpty reports whether the href has no content.
func (h Href) IsEmpty() bool { return h == "" }

// Path returns the href with any query and fragment removed.
func (h Href) Path() string { return uri.StripQueryFragment(string(h)) }

// Query returns the query portion without the leading '?', or "".
func (h Href) Query() string {
	s := string(h)
	if f := strings.IndexByte(s, '#'); f >= 0 {
		s = s[:f]
	}
	if q := strings.IndexByte(s, '?'); q >= 0 {
		return s[q+1:]
	}
	return ""
}

// Fragment returns the fragment portion without the leading '#', or "".
func (h Href) Fragment() string {
	if f := strings.IndexByte(string(h), '#'); f >= 0 {
		return string(h)[f+1:]
	}
	return ""
}

// QueryFragment returns the raw "?query#fragment" tail, or "".
func (h Href) QueryFragment() string {
	if i := strings.IndexAny(string(h), "?#"); i >= 0 {
		return string(h)[i:]
	}
	return ""
}

// Decode returns the percent-decoded form of the href.
func (h Href) Decode() string { return uri.PercentDecode(string(h)) }

// DecodedPath returns the percent-decoded path portion.
func (h Href) DecodedPath() string { return uri.PercentDecode(h.Path()) }

// Extension returns the lowercased file extension without the dot.
func (h Href) Extension() string {
	return strings.ToLower(uri.FileExtension(h.Decode()))
}

// FileName returns the final path segment, percent-decoded.
func (h Href) FileName() string { return uri.FileName(h.Decode()) }

// Parent returns the directory portion of the href path.
func (h Href) Parent() Href { return Href(uri.Parent(h.Path())) }

// HasScheme reports whether the href points outside the container
// ("http:", "mailto:", …).
func (h Href) HasScheme() bool { return uri.HasScheme(string(h)) }
