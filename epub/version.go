package epub

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a (major, minor) pair as found in the package version
// attribute.
type Version struct {
	Major int
	Minor int
}

// ParseVersion reads "3", "3.3", "2.0.1" (extra segments ignored).
func ParseVersion(raw string) (Version, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) == 0 || parts[0] == "" {
		return Version{}, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, false
	}
	v := Version{Major: major}
	if len(parts) > 1 {
		minor, err := strconv.Atoi(parts[1])
		if err != nil {
			return Version{}, false
		}
		v.Minor = minor
	}
	return v, true
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// EpubVersion couples the parsed version with the raw attribute string
// and classifies it by major number.
type EpubVersion struct {
	Version Version
	// Raw is the version attribute exactly as authored.
	Raw string
	// known is false when the raw string did not parse.
	known bool
}

// NewEpubVersion builds an EpubVersion from a parsed pair.
func NewEpubVersion(v Version) EpubVersion {
	return EpubVersion{Version: v, Raw: v.String(), known: true}
}

// ParseEpubVersion classifies a raw version attribute. Unparsable input
// yields an unknown version retaining the raw string.
func ParseEpubVersion(raw string) EpubVersion {
	v, ok := ParseVersion(raw)
	return EpubVersion{Version: v, Raw: raw, known: ok}
}

// IsEpub2 reports a 2.x version.
func (e EpubVersion) IsEpub2() bool { return e.known && e.Version.Major == 2 }

// IsEpub3 reports a 3.x version.
func (e EpubVersion) IsEpub3() bool { return e.known && e.Version.Major == 3 }

// IsUnknown reports a version outside the EPUB 2/3 families or one that
// failed to parse.
func (e EpubVersion) IsUnknown() bool {
	return !e.known || (e.Version.Major != 2 && e.Version.Major != 3)
}
