// Package opc reads and writes the parts of an Open Packaging Conventions
// container: the zip archive underneath every .xlsx file.
//
// It exists so that ooxml/ deals in part names and relationships only; the
// zip primitives stay behind this package.
package opc

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrPartNotFound is returned when a part is absent from the container.
var ErrPartNotFound = errors.New("opc: part not found")

// normalize maps a part name to its lookup key.  Part names are compared
// case-insensitively and without the leading slash.
func normalize(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "/"))
}

// Reader gives access to the parts of an open container.
type Reader struct {
	files map[string]*zip.File
	names []string
}

// NewReader opens the container stored in r.  size must be the total byte
// size of the archive.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opc: open container: %w", err)
	}
	pr := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue // directory entry
		}
		pr.files[normalize(f.Name)] = f
		pr.names = append(pr.names, f.Name)
	}
	sort.Strings(pr.names)
	return pr, nil
}

// Parts returns the names of all parts in the container, sorted.
func (r *Reader) Parts() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Has reports whether the container holds the named part.
func (r *Reader) Has(name string) bool {
	_, ok := r.files[normalize(name)]
	return ok
}

// OpenPart returns a stream over the named part.  The caller must close it;
// Close reports decompressor checksum errors.
func (r *Reader) OpenPart(name string) (io.ReadCloser, error) {
	f, ok := r.files[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPartNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opc: open part %q: %w", name, err)
	}
	return rc, nil
}

// ReadPart reads the full contents of the named part.
func (r *Reader) ReadPart(name string) ([]byte, error) {
	rc, err := r.OpenPart(name)
	if err != nil {
		return nil, err
	}
	data, readErr := io.ReadAll(rc)
	closeErr := rc.Close()
	if readErr != nil {
		return nil, fmt.Errorf("opc: read part %q: %w", name, readErr)
	}
	// Propagate decompressor checksum / close errors even when the read
	// appeared to succeed (e.g. truncated deflate stream).
	if closeErr != nil {
		return nil, fmt.Errorf("opc: read part %q: %w", name, closeErr)
	}
	return data, nil
}

// Writer creates a container part by part.
type Writer struct {
	zw      *zip.Writer
	written map[string]bool
}

// NewWriter returns a Writer producing a container on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w), written: make(map[string]bool)}
}

// CreatePart starts a new deflated part and returns a writer for its
// contents.  The writer is valid until the next CreatePart, WritePart or
// Close call.
func (w *Writer) CreatePart(name string) (io.Writer, error) {
	key := normalize(name)
	if key == "" {
		return nil, errors.New("opc: empty part name")
	}
	if w.written[key] {
		return nil, fmt.Errorf("opc: duplicate part %q", name)
	}
	w.written[key] = true
	pw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   strings.TrimPrefix(name, "/"),
		Method: zip.Deflate,
	})
	if err != nil {
		return nil, fmt.Errorf("opc: create part %q: %w", name, err)
	}
	return pw, nil
}

// WritePart stores data as the named part.
func (w *Writer) WritePart(name string, data []byte) error {
	pw, err := w.CreatePart(name)
	if err != nil {
		return err
	}
	if _, err := pw.Write(data); err != nil {
		return fmt.Errorf("opc: write part %q: %w", name, err)
	}
	return nil
}

// Close writes the zip central directory.  It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		return fmt.Errorf("opc: close container: %w", err)
	}
	return nil
}
