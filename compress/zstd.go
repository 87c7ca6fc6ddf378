package compress

// ZstdCompressor provides Zstandard compression optimized for hit-record streams.
//
// This compressor is designed for scenarios where compression ratio is more important
// than compression speed, making it ideal for:
//   - Cold storage and archival of processed .dat runs
//   - Long-term retention of hits.bin/clusters.bin output
//   - Network transmission where bandwidth is limited
//   - Scenarios where decompression happens infrequently
//
// Performance characteristics:
//   - Compression: ~5-20 ns/byte (depending on compression level)
//   - Decompression: ~2-5 ns/byte
//   - Compression ratio benefits from the fixed-width, highly repetitive
//     structure of hit records
//   - Memory usage: Moderate (the pure-Go build reuses pooled encoders/decoders;
//     the cgo build calls gozstd per operation)
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
//
// Returns:
//   - ZstdCompressor: New Zstd compressor instance
//
// Example:
//
//	compressor := NewZstdCompressor()
//	compressed, err := compressor.Compress(data)
//	if err != nil {
//		return err
//	}
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
