package epub

import (
	"archive/zip"
	"compress/flate"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jianyun8023/epubkit/archive"
	"github.com/jianyun8023/epubkit/uri"
)

// WriteOptions tunes serialization. The zero value is not meaningful;
// start from DefaultWriteOptions, or pass nil to WriteFile for the
// defaults.
type WriteOptions struct {
	// Compression is the deflate level, 0 (store) through 9.
	Compression int
	// Targets lists the major EPUB versions the output stays compatible
	// with. Including 2 enables the legacy downgrades (opf:* attributes,
	// cover meta, spine toc attribute).
	Targets []int
	// GenerateToc regenerates navigation documents from the model,
	// synthesizing the variant native to the package version when its
	// file is missing.
	GenerateToc bool
	// TocStylesheet lists manifest hrefs linked as stylesheets from the
	// generated navigation document, replacing its link set.
	TocStylesheet []string
	// KeepOrphans filters container resources referenced by nothing in
	// the manifest; nil keeps /META-INF/* only.
	KeepOrphans func(path string) bool
}

// DefaultWriteOptions returns the defaults: deflate level 6, EPUB 2 and
// 3 compatibility, toc generation on.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		Compression: 6,
		Targets:     []int{2, 3},
		GenerateToc: true,
	}
}

func (o *WriteOptions) targets2() bool { return o.hasTarget(2) }

func (o *WriteOptions) hasTarget(major int) bool {
	for _, t := range o.Targets {
		if t == major {
			return true
		}
	}
	return false
}

func (o *WriteOptions) keepOrphan(path string) bool {
	if o.KeepOrphans != nil {
		return o.KeepOrphans(path)
	}
	return strings.HasPrefix(path, "/META-INF/")
}

// writePlan is the computed output set for one serialization.
type writePlan struct {
	opts WriteOptions
	// generated maps decoded absolute container paths to regenerated
	// bytes (OPF, container.xml, navigation documents).
	generated map[string][]byte
	order     []string
	// synthesized holds navigation manifest items that exist only in
	// the output; ncxID feeds the spine toc attribute.
	synthesized []*ManifestEntry
	ncxID       string
}

func (pl *writePlan) add(path string, data []byte) {
	if _, ok := pl.generated[path]; !ok {
		pl.order = append(pl.order, path)
	}
	pl.generated[path] = data
}

// WriteFile serializes the publication to path. The archive is written
// to a temporary file first and renamed into place, so the target is
// never left half-written.
func (e *Epub) WriteFile(path string, opts *WriteOptions) error {
	resolved := DefaultWriteOptions()
	if opts != nil {
		resolved = *opts
	}
	if resolved.Compression < 0 || resolved.Compression > 9 {
		return formatErr(fmt.Sprintf("invalid compression level %d", resolved.Compression), nil)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".epubkit-write-*")
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		tmp.Close()
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := e.write(tmp, resolved); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot flush archive: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("cannot move archive into place: %w", err)
	}
	success = true
	return nil
}

// write emits the full archive to w.
func (e *Epub) write(w io.Writer, opts WriteOptions) error {
	pl := &writePlan{opts: opts, generated: map[string][]byte{}}

	if opts.GenerateToc {
		if err := e.planToc(pl); err != nil {
			return err
		}
	}
	pl.add("/META-INF/container.xml", e.buildContainerXML())
	opf, err := e.buildOPF(pl)
	if err != nil {
		return err
	}
	pl.add(uri.PercentDecode(e.pkg.location), opf)

	zw := zip.NewWriter(w)
	level := opts.Compression
	method := uint16(zip.Deflate)
	if level == 0 {
		method = zip.Store
	} else {
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	// The mimetype must be the first entry, stored, and exact.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("cannot write mimetype: %w", err)
	}
	if _, err := mt.Write([]byte("application/epub+zip")); err != nil {
		return fmt.Errorf("cannot write mimetype: %w", err)
	}

	written := map[string]bool{"/mimetype": true}
	emit := func(path string, content []byte, stream bool) error {
		if written[path] {
			return nil
		}
		written[path] = true
		name := strings.TrimPrefix(path, "/")
		if stream && method != zip.Store {
			// Byte-identical backing entries transplant their compressed
			// data verbatim instead of being re-deflated. An explicit
			// level 0 re-stores everything, so raw copy is skipped there.
			done, err := e.arc.CopyResourceRaw(zw, name, path)
			if err != nil {
				return fmt.Errorf("cannot write entry %s: %w", path, err)
			}
			if done {
				return nil
			}
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: method,
		})
		if err != nil {
			return fmt.Errorf("cannot create entry %s: %w", path, err)
		}
		if !stream {
			_, err = fw.Write(content)
		} else {
			_, err = e.arc.CopyResource(fw, archive.PathKey(path))
		}
		if err != nil {
			return fmt.Errorf("cannot write entry %s: %w", path, err)
		}
		return nil
	}

	for _, path := range pl.order {
		if err := emit(path, pl.generated[path], false); err != nil {
			return err
		}
	}

	// Manifest-referenced resources stream from the archive.
	for _, entry := range e.pkg.manifest.Entries() {
		if entry.href.HasScheme() {
			continue
		}
		path := entry.href.DecodedPath()
		if written[path] {
			continue
		}
		if !e.arc.Has(path) {
			// A declared but absent resource is a latent archive error;
			// surfacing it here locates the offending item.
			return &FormatError{Detail: "manifest resource missing from archive", ID: entry.id, Path: entry.href.String(), Err: ErrResourceNotFound}
		}
		if err := emit(path, nil, true); err != nil {
			return err
		}
	}

	// Orphans pass through the keep filter.
	for _, path := range e.arc.Resources() {
		if written[path] || path == "/mimetype" {
			continue
		}
		if !pl.opts.keepOrphan(path) {
			continue
		}
		if err := emit(path, nil, true); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("cannot finalize archive: %w", err)
	}
	return nil
}


// buildContainerXML emits META-INF/container.xml pointing at the package
// document.
func (e *Epub) buildContainerXML() []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<container version="1.0" xmlns="` + NsContainer + `">` + "\n")
	b.WriteString("  <rootfiles>\n")
	fullPath := strings.TrimPrefix(e.pkg.location, "/")
	b.WriteString(`    <rootfile full-path="` + fullPath + `" media-type="application/oebps-package+xml"/>` + "\n")
	b.WriteString("  </rootfiles>\n")
	b.WriteString("</container>\n")
	return []byte(b.String())
}
