// Package format holds the shared wire constants used across the
// tpx3pipe pipeline: record sizes, clock conversions, and SPIDR
// framing limits. A tiny leaf package of typed constants with no
// behaviour beyond CompressionType's String method.
package format

// TOAClockToNS is the conversion factor from ToA clock ticks to
// nanoseconds. The Timepix3 ToA clock runs at a 640 MHz-equivalent
// rate, so one tick is 1.5625 ns.
const TOAClockToNS float64 = 1.5625

// TOTAduToNS converts a raw 10-bit ToT ADU count to nanoseconds.
const TOTAduToNS uint32 = 25

const (
	// HitRecordSize is the on-disk size, in bytes, of one hit record:
	// u16 col | u16 row | u64 toa | u32 tot.
	HitRecordSize = 16

	// ClusterTerminatorSize is the size, in bytes, of the all-zero
	// record that delimits clusters in a cluster .bin stream.
	ClusterTerminatorSize = 16

	// PacketSize is the size, in bytes, of one raw SPIDR packet.
	PacketSize = 8

	// MaxSPIDRHeaderSize is the maximum header length a .dat file may
	// declare; declared lengths above this are clamped.
	MaxSPIDRHeaderSize = 66304

	// HotPixelCount is the number of compiled-in hot-pixel entries.
	HotPixelCount = 30
)

// CompressionType identifies the codec used for an on-disk transport of
// a hits.bin stream.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x1 // CompressionNone applies no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd applies Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 applies S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 applies LZ4 compression.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
