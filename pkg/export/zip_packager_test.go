package export

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZipPackagerRoundTrip(t *testing.T) {
	z := NewZipPackager()
	require.NoError(t, z.Add("a.pdf", []byte("alpha")))
	require.NoError(t, z.Add("b.pdf", []byte("beta")))
	assert.Equal(t, 2, z.Count())

	data, err := z.Close()
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, reader.File, 2)
	assert.Equal(t, "a.pdf", reader.File[0].Name)
	assert.Equal(t, "b.pdf", reader.File[1].Name)
}

func TestZipPackagerClosedRejectsWrites(t *testing.T) {
	z := NewZipPackager()
	_, err := z.Close()
	require.NoError(t, err)
	assert.Error(t, z.Add("late.pdf", []byte("x")))

	_, err = z.Close()
	assert.Error(t, err)
}
