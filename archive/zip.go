package archive

import (
	"archive/zip"
	"io"
	"os"
	"strings"

	"github.com/jianyun8023/epubkit/uri"
)

// zipBacking reads a zipped .epub. The file handle is shared by all
// resource reads; Archive's lock serializes access to it.
type zipBacking struct {
	file  *os.File
	zr    *zip.Reader
	names []string             // decoded absolute container paths, archive order
	index map[string]*zip.File // keyed like names
}

func openZipBacking(path string) (*zipBacking, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, &Error{Op: "open", Path: path, Err: err}
	}

	b := &zipBacking{file: f, zr: zr, index: make(map[string]*zip.File)}
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() || strings.HasSuffix(zf.Name, "/") {
			continue
		}
		// Zip entry names are literal bytes; some producers store them
		// percent-encoded. Index the decoded, absolute form.
		key := uri.Normalize(uri.IntoAbsolute(uri.PercentDecode(zf.Name)))
		if _, dup := b.index[key]; dup {
			continue
		}
		b.names = append(b.names, key)
		b.index[key] = zf
	}
	return b, nil
}

func (b *zipBacking) paths() []string { return b.names }

func (b *zipBacking) copyTo(w io.Writer, path string) (int64, error) {
	zf, ok := b.index[path]
	if !ok {
		return 0, ErrNotFound
	}
	rc, err := zf.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.Copy(w, rc)
}

// rawCopy transplants the compressed bytes of an entry into zw under
// entryName, preserving the original compression method. CreateRaw
// bypasses the writer's compressor, so the data never gets re-encoded.
func (b *zipBacking) rawCopy(zw *zip.Writer, entryName, path string) (bool, error) {
	zf, ok := b.index[path]
	if !ok {
		return false, nil
	}
	header := zf.FileHeader
	header.Name = entryName

	fw, err := zw.CreateRaw(&header)
	if err != nil {
		return false, err
	}
	offset, err := zf.DataOffset()
	if err != nil {
		return false, err
	}
	section := io.NewSectionReader(b.file, offset, int64(zf.CompressedSize64))
	if _, err := io.Copy(fw, section); err != nil {
		return false, err
	}
	return true, nil
}

func (b *zipBacking) Close() error { return b.file.Close() }
