package transfer

import (
	"bytes"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetryableBody_InMemory_IsSeekable(t *testing.T) {
	src := io.NopCloser(bytes.NewReader([]byte("hello")))
	b, err := newRetryableBody(afero.NewMemMapFs(), src, 5, 1024)
	require.NoError(t, err)
	defer func() { require.NoError(t, b.Close()) }()

	out1, err := io.ReadAll(b.Reader())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out1))

	_, err = b.Reader().Seek(0, io.SeekStart)
	require.NoError(t, err)
	out2, err := io.ReadAll(b.Reader())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out2))
	assert.Equal(t, int64(5), b.Size())
}

func TestNewRetryableBody_SpoolsToFile_CleansUp(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := bytes.Repeat([]byte("a"), 1024)
	src := io.NopCloser(bytes.NewReader(payload))

	b, err := newRetryableBody(fs, src, int64(len(payload)), 16)
	require.NoError(t, err)

	file, ok := b.Reader().(afero.File)
	require.True(t, ok)
	name := file.Name()

	out1, err := io.ReadAll(b.Reader())
	require.NoError(t, err)
	assert.Len(t, out1, len(payload))

	_, err = b.Reader().Seek(0, io.SeekStart)
	require.NoError(t, err)
	out2, err := io.ReadAll(b.Reader())
	require.NoError(t, err)
	assert.Len(t, out2, len(payload))

	require.NoError(t, b.Close())
	exists, err := afero.Exists(fs, name)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewRetryableBody_UnknownSizeSpools(t *testing.T) {
	fs := afero.NewMemMapFs()
	b, err := newRetryableBody(fs, io.NopCloser(bytes.NewReader([]byte("xyz"))), -1, 1024)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	assert.Equal(t, int64(3), b.Size())
	_, ok := b.Reader().(afero.File)
	assert.True(t, ok)
}
