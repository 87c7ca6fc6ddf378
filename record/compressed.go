package record

import (
	"bytes"
	"io"

	"github.com/ariadne-exp/tpx3pipe/compress"
)

// LZ4Writer and ZstdWriter give callers a compressed alternative to the
// plain Encoder/Decoder pair for hits.bin, for large multi-GB runs where a
// smaller on-disk artifact matters more than being able to stream-process
// it record by record: everything written is buffered, then compressed as
// a single block on Close.

// bufferedCompressWriter buffers every byte written and compresses the
// whole buffer as one block on Close, using codec.
type bufferedCompressWriter struct {
	w     io.Writer
	codec compress.Codec
	buf   bytes.Buffer
}

func (cw *bufferedCompressWriter) Write(p []byte) (int, error) {
	return cw.buf.Write(p)
}

// Close compresses the buffered hits.bin bytes and flushes the single
// resulting block to the underlying writer.
func (cw *bufferedCompressWriter) Close() error {
	compressed, err := cw.codec.Compress(cw.buf.Bytes())
	if err != nil {
		return err
	}
	_, err = cw.w.Write(compressed)
	return err
}

// bufferedDecompressReader lazily reads and decompresses all of r on the
// first Read call, then serves subsequent reads from the decompressed
// bytes. Deferring to the first Read (rather than erroring out of the
// constructor) is what lets these stay plain io.Reader values.
type bufferedDecompressReader struct {
	r     io.Reader
	codec compress.Codec
	dec   *bytes.Reader
	err   error
}

func (cr *bufferedDecompressReader) Read(p []byte) (int, error) {
	if cr.dec == nil && cr.err == nil {
		compressed, err := io.ReadAll(cr.r)
		if err != nil {
			cr.err = err
		} else if decoded, err := cr.codec.Decompress(compressed); err != nil {
			cr.err = err
		} else {
			cr.dec = bytes.NewReader(decoded)
		}
	}
	if cr.err != nil {
		return 0, cr.err
	}
	return cr.dec.Read(p)
}

// NewLZ4Writer wraps w as an LZ4-compressed hits.bin sink, built on
// compress.LZ4Compressor (pierrec/lz4).
func NewLZ4Writer(w io.Writer) io.WriteCloser {
	return &bufferedCompressWriter{w: w, codec: compress.NewLZ4Compressor()}
}

// NewLZ4Reader reads and decompresses an LZ4-compressed hits.bin stream
// written by NewLZ4Writer.
func NewLZ4Reader(r io.Reader) io.Reader {
	return &bufferedDecompressReader{r: r, codec: compress.NewLZ4Compressor()}
}

// NewZstdWriter wraps w as a zstd-compressed hits.bin sink, built on
// compress.ZstdCompressor. ZstdCompressor itself is split cgo/pure-Go at
// build time (compress/zstd_cgo.go, compress/zstd_pure.go); this writer
// inherits that split automatically rather than re-declaring its own
// build-tagged pair, since the choice of backend is entirely
// ZstdCompressor's concern.
func NewZstdWriter(w io.Writer) io.WriteCloser {
	return &bufferedCompressWriter{w: w, codec: compress.NewZstdCompressor()}
}

// NewZstdReader reads and decompresses a zstd-compressed hits.bin stream
// written by NewZstdWriter.
func NewZstdReader(r io.Reader) io.Reader {
	return &bufferedDecompressReader{r: r, codec: compress.NewZstdCompressor()}
}
