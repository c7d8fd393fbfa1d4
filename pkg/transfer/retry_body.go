package transfer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// DefaultRetryBufferMaxMemoryBytes is the largest link body buffered in
// memory before an upload. Larger bodies are spooled to a temp file.
const DefaultRetryBufferMaxMemoryBytes int64 = 16 << 20 // 16 MiB

// retryableBody makes a one-shot stream seekable so the target SDK can
// replay the upload body on retry.
type retryableBody struct {
	reader  io.ReadSeeker
	size    int64
	cleanup func() error
}

func (b *retryableBody) Reader() io.ReadSeeker { return b.reader }

// Size returns the buffered length.
func (b *retryableBody) Size() int64 { return b.size }

func (b *retryableBody) Close() error {
	if b.cleanup == nil {
		return nil
	}
	return b.cleanup()
}

// newRetryableBody drains src into memory or a temp file on fs. size may be
// -1 when the source length is unknown. src is always closed.
func newRetryableBody(fs afero.Fs, src io.ReadCloser, size int64, maxMemoryBytes int64) (*retryableBody, error) {
	if maxMemoryBytes <= 0 {
		maxMemoryBytes = DefaultRetryBufferMaxMemoryBytes
	}
	defer func() { _ = src.Close() }()

	if size >= 0 && size <= maxMemoryBytes {
		data, err := io.ReadAll(io.LimitReader(src, size))
		if err != nil {
			return nil, err
		}
		return &retryableBody{reader: bytes.NewReader(data), size: int64(len(data))}, nil
	}

	f, err := afero.TempFile(fs, "", "skybrowse-copy-*")
	if err != nil {
		return nil, err
	}
	discard := func() {
		_ = f.Close()
		_ = fs.Remove(f.Name())
	}

	n, err := io.Copy(f, src)
	if err != nil {
		discard()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		discard()
		return nil, err
	}

	return &retryableBody{
		reader: f,
		size:   n,
		cleanup: func() error {
			closeErr := f.Close()
			rmErr := fs.Remove(f.Name())
			if closeErr != nil {
				return fmt.Errorf("close temp file: %w", closeErr)
			}
			if rmErr != nil {
				return fmt.Errorf("remove temp file: %w", rmErr)
			}
			return nil
		},
	}, nil
}
