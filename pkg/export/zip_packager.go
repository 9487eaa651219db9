package export

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ZipPackager accumulates named entries into one archive.
type ZipPackager struct {
	buf    bytes.Buffer
	writer *zip.Writer
	count  int
	closed bool
}

// NewZipPackager constructs an empty archive.
func NewZipPackager() *ZipPackager {
	z := &ZipPackager{}
	z.writer = zip.NewWriter(&z.buf)
	return z
}

// Add writes one entry. Entry names must already be sanitized.
func (z *ZipPackager) Add(name string, data []byte) error {
	if z.closed {
		return fmt.Errorf("archive already closed")
	}
	w, err := z.writer.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	z.count++
	return nil
}

// Count reports the number of entries added so far.
func (z *ZipPackager) Count() int {
	return z.count
}

// Close finalises the archive and returns its bytes.
func (z *ZipPackager) Close() ([]byte, error) {
	if z.closed {
		return nil, fmt.Errorf("archive already closed")
	}
	z.closed = true
	if err := z.writer.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return z.buf.Bytes(), nil
}
