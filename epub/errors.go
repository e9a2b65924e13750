package epub

import (
	"errors"
	"fmt"

	"github.com/jianyun8023/epubkit/archive"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrResourceNotFound reports a container path with no resource
	// behind it. Lookups against the archive wrap archive.ErrNotFound,
	// which this aliases.
	ErrResourceNotFound = archive.ErrNotFound

	// ErrMissingContainer reports an archive without META-INF/container.xml.
	ErrMissingContainer = errors.New("missing META-INF/container.xml")

	// ErrMissingRootfile reports a container.xml without a usable rootfile.
	ErrMissingRootfile = errors.New("no rootfile found in container.xml")

	// ErrDuplicateID reports an id already taken elsewhere in the package.
	ErrDuplicateID = errors.New("duplicate item id")

	// ErrDetached reports an operation that needs an attached entry.
	ErrDetached = errors.New("entry is not attached to a publication")
)

// FormatError reports malformed or invalid package content. The context
// fields identify the offending element where known.
type FormatError struct {
	// Detail describes what was malformed.
	Detail string
	// ID, Property and Path locate the offending element when known.
	ID       string
	Property string
	Path     string

	Err error
}

func (e *FormatError) Error() string {
	msg := "epub: " + e.Detail
	if e.Property != "" {
		msg += fmt.Sprintf(" (property %q)", e.Property)
	}
	if e.ID != "" {
		msg += fmt.Sprintf(" (id %q)", e.ID)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %q)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(detail string, err error) *FormatError {
	return &FormatError{Detail: detail, Err: err}
}
