package core

// streaming.go provides io.Reader wrappers applied to uploads before parsing.
//
//   - BOMSkippingReader: removes the UTF-8 BOM (0xEF 0xBB 0xBF) that Excel and
//     other Windows programs prepend
//   - LimitedReader: fails with ErrFileTooLarge once a byte budget is exceeded
//
// Use WrapUpload to apply both in the correct order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM if present.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call drops the BOM.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// LimitedReader reads at most Limit bytes and then returns ErrFileTooLarge
// instead of silently truncating like io.LimitReader.
type LimitedReader struct {
	r         io.Reader
	Limit     int64
	BytesRead int64
}

// NewLimitedReader wraps r. A non-positive limit disables the check.
func NewLimitedReader(r io.Reader, limit int64) *LimitedReader {
	return &LimitedReader{r: r, Limit: limit}
}

// Read implements io.Reader.
func (l *LimitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.BytesRead += int64(n)
	if l.Limit > 0 && l.BytesRead > l.Limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, l.Limit)
	}
	return n, err
}

// WrapUpload limits r to maxBytes and strips a leading BOM.
// The size limit is applied to the raw bytes before the BOM is removed.
func WrapUpload(r io.Reader, maxBytes int64) io.Reader {
	return NewBOMSkippingReader(NewLimitedReader(r, maxBytes))
}
