// Package uri implements the path handling used throughout an EPUB
// container: percent encoding/decoding, normalization and resolution of
// hrefs relative to the package document directory.
//
// Container paths are not general URLs. net/url is deliberately avoided
// here; it rejects or rewrites forms that are common inside real EPUB
// archives (bare fragments, unencoded spaces, Windows-authored `\`-free
// relative paths with drive-like prefixes).
package uri

import "strings"

// upperhex is used by PercentEncode.
const upperhex = "0123456789ABCDEF"

// PercentDecode decodes %xx escapes in s.
// Malformed escapes (a '%' not followed by two hex digits) are kept
// literally rather than rejected, matching how reading systems treat them.
func PercentDecode(s string) string {
	if !strings.ContainsRune(s, '%') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// PercentEncode encodes every byte of s that may not appear literally in
// an href path. Path delimiters ('/', ':', '@') and sub-delimiters are
// preserved, as are existing valid %xx escapes, making the function
// idempotent over already-encoded input.
func PercentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) {
			if _, ok1 := unhex(s[i+1]); ok1 {
				if _, ok2 := unhex(s[i+2]); ok2 {
					b.WriteByte('%')
					b.WriteByte(s[i+1])
					b.WriteByte(s[i+2])
					i += 2
					continue
				}
			}
		}
		if shouldEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func shouldEscape(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	// Unreserved marks.
	case '-', '.', '_', '~':
		return false
	// Delimiters that remain literal inside a path.
	case '/', ':', '@', '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=':
		return false
	// Query and fragment markers pass through untouched; callers split
	// those off before encoding when they must not.
	case '?', '#':
		return false
	}
	return true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Normalize collapses repeated slashes and resolves "." and ".."
// components. Absolute input stays absolute; ".." components that would
// ascend above the root are dropped, so the result never escapes "/".
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	absolute := p[0] == '/'
	var out []string
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
			// Collapsed.
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !absolute {
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}
	joined := strings.Join(out, "/")
	if absolute {
		return "/" + joined
	}
	if joined == "" {
		return "."
	}
	return joined
}

// IntoAbsolute prepends "/" unless p is already absolute.
func IntoAbsolute(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

// Resolve joins relative against baseDir and normalizes the result.
// An already-absolute relative ignores baseDir.
func Resolve(baseDir, relative string) string {
	if strings.HasPrefix(relative, "/") {
		return Normalize(relative)
	}
	return Normalize(baseDir + "/" + relative)
}

// Relativize expresses target relative to baseDir. Both are absolute
// normalized paths; the result uses ".." segments where target lies
// outside baseDir.
func Relativize(baseDir, target string) string {
	base := strings.Split(strings.Trim(Normalize(IntoAbsolute(baseDir)), "/"), "/")
	if len(base) == 1 && base[0] == "" {
		base = nil
	}
	tgt := strings.Split(strings.TrimPrefix(Normalize(IntoAbsolute(target)), "/"), "/")
	common := 0
	for common < len(base) && common < len(tgt)-1 && base[common] == tgt[common] {
		common++
	}
	var out []string
	for i := common; i < len(base); i++ {
		out = append(out, "..")
	}
	out = append(out, tgt[common:]...)
	return strings.Join(out, "/")
}

// Parent returns the directory portion of p without a trailing slash.
// The parent of a root-level entry is "/"; a bare name has parent "".
func Parent(p string) string {
	i := strings.LastIndexByte(p, '/')
	switch {
	case i < 0:
		return ""
	case i == 0:
		return "/"
	default:
		return p[:i]
	}
}

// StripQueryFragment cuts p at the first '?' or '#'.
func StripQueryFragment(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

// FileName returns the final path segment of p, query and fragment
// excluded.
func FileName(p string) string {
	p = StripQueryFragment(p)
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

// FileExtension returns the extension of the file name of p without the
// leading dot, or "" when the name has none.
func FileExtension(p string) string {
	name := FileName(p)
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[i+1:]
	}
	return ""
}

// HasScheme reports whether s begins with a URI scheme such as "http:" or
// "mailto:". Scheme-qualified hrefs reference resources outside the
// container and are left untouched by cleanup and cascade logic.
func HasScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			return i > 0
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '.' || c == '-'):
		default:
			return false
		}
	}
	return false
}
