package record

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLZ4WriterReaderRoundTrip(t *testing.T) {
	var hitsBin bytes.Buffer
	enc := NewEncoder(&hitsBin)
	hits := []Hit{
		{Col: 1, Row: 1, ToA: 10, ToT: 5},
		{Col: 2, Row: 2, ToA: 20, ToT: 6},
	}
	for _, h := range hits {
		require.NoError(t, enc.WriteHit(h))
	}
	require.NoError(t, enc.Flush())

	var compressed bytes.Buffer
	lw := NewLZ4Writer(&compressed)
	_, err := lw.Write(hitsBin.Bytes())
	require.NoError(t, err)
	require.NoError(t, lw.Close())
	require.NotEmpty(t, compressed.Bytes())

	decoded, err := io.ReadAll(NewLZ4Reader(&compressed))
	require.NoError(t, err)
	require.Equal(t, hitsBin.Bytes(), decoded)

	got, err := ReadAll(bytes.NewReader(decoded))
	require.NoError(t, err)
	require.Equal(t, hits, got)
}

func TestZstdWriterReaderRoundTrip(t *testing.T) {
	var hitsBin bytes.Buffer
	enc := NewEncoder(&hitsBin)
	hits := []Hit{
		{Col: 3, Row: 3, ToA: 100, ToT: 7},
	}
	for _, h := range hits {
		require.NoError(t, enc.WriteHit(h))
	}
	require.NoError(t, enc.Flush())

	var compressed bytes.Buffer
	zw := NewZstdWriter(&compressed)
	_, err := zw.Write(hitsBin.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	decoded, err := io.ReadAll(NewZstdReader(&compressed))
	require.NoError(t, err)
	require.Equal(t, hitsBin.Bytes(), decoded)
}
