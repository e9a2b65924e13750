package epub

import (
	"io"
	"strings"
)

// ManifestEntry is a single manifest item: one resource of the
// publication.
type ManifestEntry struct {
	manifest *Manifest

	id string
	// href is the absolute percent-encoded container path, normalized;
	// hrefRaw is the authored form relative to the package document.
	href         Href
	hrefRaw      Href
	mediaType    string
	fallback     string
	mediaOverlay string
	properties   Properties
	attrs        Attributes
	refines      []*MetaEntry
}

// ID returns the manifest key of the entry.
func (e *ManifestEntry) ID() string { return e.id }

// Href returns the resolved absolute percent-encoded href.
func (e *ManifestEntry) Href() Href { return e.href }

// HrefRaw returns the href as authored, relative to the package
// document.
func (e *ManifestEntry) HrefRaw() Href { return e.hrefRaw }

// MediaType returns the declared media type.
func (e *ManifestEntry) MediaType() string { return e.mediaType }

// FallbackID returns the id of the declared fallback entry, or "".
func (e *ManifestEntry) FallbackID() string { return e.fallback }

// Fallback resolves the declared fallback entry, or nil.
func (e *ManifestEntry) Fallback() *ManifestEntry {
	if e.manifest == nil || e.fallback == "" {
		return nil
	}
	return e.manifest.ByID(e.fallback)
}

// FallbackChain walks the fallback chain starting at this entry. A
// circular chain is cut at the first repeated entry, so the result is
// always finite.
func (e *ManifestEntry) FallbackChain() []*ManifestEntry {
	var chain []*ManifestEntry
	seen := map[*ManifestEntry]bool{}
	for cur := e; cur != nil && !seen[cur]; cur = cur.Fallback() {
		seen[cur] = true
		chain = append(chain, cur)
	}
	return chain
}

// MediaOverlayID returns the id of the media overlay entry, or "".
func (e *ManifestEntry) MediaOverlayID() string { return e.mediaOverlay }

// MediaOverlay resolves the media overlay entry, or nil.
func (e *ManifestEntry) MediaOverlay() *ManifestEntry {
	if e.manifest == nil || e.mediaOverlay == "" {
		return nil
	}
	return e.manifest.ByID(e.mediaOverlay)
}

// Properties returns the entry's property token set.
func (e *ManifestEntry) Properties() *Properties { return &e.properties }

// Attributes returns the entry's additional attributes.
func (e *ManifestEntry) Attributes() *Attributes { return &e.attrs }

// Refinements returns the metadata entries refining this item.
func (e *ManifestEntry) Refinements() []*MetaEntry {
	out := make([]*MetaEntry, len(e.refines))
	copy(out, e.refines)
	return out
}

// AddRefinement attaches a refinement built from d.
func (e *ManifestEntry) AddRefinement(d DetachedMetaEntry) *MetaEntry {
	var md *Metadata
	if e.manifest != nil {
		md = e.manifest.pkg.metadata
	}
	r := d.build(md)
	e.refines = append(e.refines, r)
	return r
}

// ReadBytes returns the resource's raw bytes from the archive.
func (e *ManifestEntry) ReadBytes() ([]byte, error) {
	if e.manifest == nil || e.manifest.pkg.epub == nil {
		return nil, ErrDetached
	}
	return e.manifest.pkg.epub.ReadResource(string(e.href))
}

// Copy streams the resource's raw bytes to w.
func (e *ManifestEntry) Copy(w io.Writer) (int64, error) {
	if e.manifest == nil || e.manifest.pkg.epub == nil {
		return 0, ErrDetached
	}
	return e.manifest.pkg.epub.CopyResource(w, string(e.href))
}

// Manifest is the resource catalog: an insertion-ordered mapping from
// item id to entry.
type Manifest struct {
	pkg     *Package
	order   []string
	entries map[string]*ManifestEntry
}

// Len reports the entry count.
func (m *Manifest) Len() int { return len(m.order) }

// Entries returns the entries in insertion order.
func (m *Manifest) Entries() []*ManifestEntry {
	out := make([]*ManifestEntry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id])
	}
	return out
}

// ByID returns the entry keyed id, or nil.
func (m *Manifest) ByID(id string) *ManifestEntry { return m.entries[id] }

func (m *Manifest) idExists(id string) bool {
	_, ok := m.entries[id]
	return ok
}

// ByHref returns the first entry whose resolved href path matches href.
// The comparison ignores query and fragment and accepts either the
// encoded or the decoded form.
func (m *Manifest) ByHref(href string) *ManifestEntry {
	want := Href(href)
	wantPath := want.Path()
	wantDecoded := want.DecodedPath()
	for _, id := range m.order {
		e := m.entries[id]
		if e.href.Path() == wantPath || e.href.DecodedPath() == wantDecoded {
			return e
		}
	}
	return nil
}

// ByProperty returns every entry whose properties contain token.
func (m *Manifest) ByProperty(token string) []*ManifestEntry {
	var out []*ManifestEntry
	for _, id := range m.order {
		if e := m.entries[id]; e.properties.Has(token) {
			out = append(out, e)
		}
	}
	return out
}

// ByMediaType returns every entry with one of the given media types.
func (m *Manifest) ByMediaType(mediaTypes ...string) []*ManifestEntry {
	var out []*ManifestEntry
	for _, id := range m.order {
		e := m.entries[id]
		for _, mt := range mediaTypes {
			if e.mediaType == mt {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Nav returns the EPUB 3 navigation document entry, or nil.
func (m *Manifest) Nav() *ManifestEntry {
	if navs := m.ByProperty("nav"); len(navs) > 0 {
		return navs[0]
	}
	return nil
}

// CoverImage returns the cover image entry: the one carrying the
// cover-image property, else the one referenced by the legacy
// <meta name="cover"> entry.
func (m *Manifest) CoverImage() *ManifestEntry {
	if covers := m.ByProperty("cover-image"); len(covers) > 0 {
		return covers[0]
	}
	for _, meta := range m.pkg.metadata.ByProperty("cover") {
		if meta.kind != Meta2 {
			continue
		}
		if e := m.ByID(meta.value); e != nil {
			return e
		}
	}
	return nil
}

// readableMediaTypes lists the media types counted as readable content.
var readableMediaTypes = []string{"application/xhtml+xml", "text/html"}

// scriptMediaTypes lists the media types counted as scripts.
var scriptMediaTypes = []string{"text/javascript", "application/javascript", "application/ecmascript"}

// Images returns every entry whose media type has main type "image".
func (m *Manifest) Images() []*ManifestEntry { return m.byMainType("image") }

// Audio returns every entry whose media type has main type "audio".
func (m *Manifest) Audio() []*ManifestEntry { return m.byMainType("audio") }

// Video returns every entry whose media type has main type "video".
func (m *Manifest) Video() []*ManifestEntry { return m.byMainType("video") }

// Fonts returns every font entry, covering both the font/* family and
// the older application/*font* registrations.
func (m *Manifest) Fonts() []*ManifestEntry {
	var out []*ManifestEntry
	for _, id := range m.order {
		e := m.entries[id]
		if strings.HasPrefix(e.mediaType, "font/") ||
			strings.Contains(e.mediaType, "font-") ||
			e.mediaType == "application/vnd.ms-opentype" ||
			e.mediaType == "application/font-woff" {
			out = append(out, e)
		}
	}
	return out
}

// Styles returns every stylesheet entry.
func (m *Manifest) Styles() []*ManifestEntry { return m.ByMediaType("text/css") }

// Scripts returns every script entry.
func (m *Manifest) Scripts() []*ManifestEntry { return m.ByMediaType(scriptMediaTypes...) }

// Readable returns every readable content entry (XHTML and HTML).
func (m *Manifest) Readable() []*ManifestEntry { return m.ByMediaType(readableMediaTypes...) }

func (m *Manifest) byMainType(main string) []*ManifestEntry {
	prefix := main + "/"
	var out []*ManifestEntry
	for _, id := range m.order {
		if e := m.entries[id]; strings.HasPrefix(e.mediaType, prefix) {
			out = append(out, e)
		}
	}
	return out
}
