// Package compress provides compression and decompression codecs for encoded
// hit/cluster record streams.
//
// This package offers multiple compression algorithms optimized for different
// characteristics of the pipeline's binary record streams. Compression is applied
// after encoding (record.Encoder / record.WriteCluster), providing an additional
// layer of space savings on top of the fixed-width wire format.
//
// # Overview
//
// The pipeline applies a two-stage strategy when writing archival output:
//
//  1. **Encoding**: record.Encoder/record.WriteCluster lay hits out as fixed
//     16-byte records, so the stream is already dense and highly repetitive.
//  2. **Compression**: this package further reduces the encoded stream using
//     general-purpose algorithms.
//
// The compress package implements the second stage, supporting multiple algorithms:
//   - None: No compression (fastest, largest)
//   - Zstd: Excellent compression ratio, moderate speed
//   - S2: Balanced compression and speed
//   - LZ4: Fast decompression, moderate compression
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
// **NoOp Compression** (format.CompressionNone)
//
//	codec := compress.NewNoOpCompressor()
//	compressed, _ := codec.Compress(data)  // Returns data unchanged
//	original, _ := codec.Decompress(compressed)  // Returns data unchanged
//
// Use when:
//   - CPU is more critical than storage
//   - Downstream tooling expects a raw hits.bin/clusters.bin layout
//
// **Zstandard (Zstd)** (format.CompressionZstd)
//
//	codec := compress.NewZstdCompressor()
//	compressed, _ := codec.Compress(data)  // Best compression ratio
//	original, _ := codec.Decompress(compressed)
//
// Characteristics:
//   - Compression: Excellent on fixed-width repetitive records
//   - Speed: Moderate (compression: ~400 MB/s, decompression: ~1000 MB/s)
//   - Memory: ~2-4 MB for compression, ~1-2 MB for decompression
//
// Best for:
//   - Cold storage / archival of completed runs (runset.CompressDat)
//
// **S2 (Snappy Alternative)** (format.CompressionS2)
//
//	codec := compress.NewS2Compressor()
//	compressed, _ := codec.Compress(data)  // Fast with good compression
//	original, _ := codec.Decompress(compressed)
//
// Characteristics:
//   - Compression: Good, roughly 1.5-2.5x
//   - Speed: Fast (compression: ~1000 MB/s, decompression: ~2000 MB/s)
//   - Memory: ~256KB for compression, ~64KB for decompression
//
// Best for:
//   - Streaming hits.bin output while a run is still being decoded
//
// **LZ4** (format.CompressionLZ4)
//
//	codec := compress.NewLZ4Compressor()
//	compressed, _ := codec.Compress(data)  // Very fast decompression
//	original, _ := codec.Decompress(compressed)
//
// Characteristics:
//   - Compression: Moderate, roughly 1.3-2x
//   - Speed: Very fast decompression (~3000 MB/s), moderate compression (~800 MB/s)
//   - Memory: ~64KB for compression, ~16KB for decompression
//
// Best for:
//   - hits.bin transport between the decoder and the sorter when disk
//     bandwidth, not CPU, is the bottleneck
//
// # Algorithm Selection Guide
//
// | Workload                     | Recommended | Reason                         |
// |-------------------------------|-------------|--------------------------------|
// | Archiving a finished run      | Zstd        | Best compression ratio         |
// | Live decode → sort pipe       | LZ4 or S2   | Minimize added latency         |
// | CPU-constrained worker        | None        | No compression overhead        |
// | Network transfer off detector | Zstd        | Reduce bandwidth usage         |
//
// # Memory Management
//
// The LZ4 codec and the pure-Go Zstd codec pool their compressor/encoder/decoder
// state in a sync.Pool and return it after each call. Output buffers are newly
// allocated per call and sized based on input. The S2 codec, the cgo Zstd codec
// and the NoOp codec do no pooling.
//
// # Thread Safety
//
// All codec implementations are thread-safe and can be safely shared across
// goroutines. For best performance under heavy concurrent use, prefer one
// codec instance per goroutine to avoid internal lock contention.
//
// # Error Handling
//
// Compression errors are rare but can occur:
//   - Input too large (exceeds algorithm limits)
//   - Memory allocation failure
//
// Decompression errors are more common:
//   - Corrupted compressed data
//   - Invalid compression format
//   - Decompressed size exceeds limits
//
// The pure-Go Zstd decoder wraps its errors with context; the other codecs
// return the underlying library's error unchanged.
//
// # Integration
//
// runset.CompressDat uses CreateCodec(format.CompressionZstd, ...) to archive a
// run's raw .dat files once processing completes. record's alternate writers
// (NewLZ4Writer, NewZstdWriter) construct an LZ4Compressor or ZstdCompressor
// directly as a transport codec for hits.bin, independently of the in-memory
// sort and window stages, which always operate on decoded Hit values.
package compress
