// Package packet decodes a raw SPIDR .dat byte stream into Hit and Trigger
// records: it reads past the per-file SPIDR header, dispatches each 8-byte
// packet on its 4-bit header, reconstructs the 48-bit global time of
// arrival from the packet's local counters and the running wall-clock
// state, and filters out hits on known hot pixels.
package packet

import (
	"bufio"
	"fmt"
	"io"
	"iter"

	"github.com/ariadne-exp/tpx3pipe/endian"
	"github.com/ariadne-exp/tpx3pipe/errs"
	"github.com/ariadne-exp/tpx3pipe/format"
	"github.com/ariadne-exp/tpx3pipe/hotpixel"
	"github.com/ariadne-exp/tpx3pipe/logging"
	"github.com/ariadne-exp/tpx3pipe/record"
)

// Header identifies the kind of a raw packet from its top nibble.
type Header uint8

const (
	HeaderPixelA   Header = 0xA
	HeaderPixelB   Header = 0xB
	HeaderTDC1     Header = 0x4
	HeaderTDC2     Header = 0x6
)

// Subheader further classifies a TDC packet (header 0x4 or 0x6).
type Subheader uint8

const (
	SubheaderTrigger       Subheader = 0xF
	SubheaderTimeLSB       Subheader = 0x4
	SubheaderTimeMSB       Subheader = 0x5
)

// Reader reads the SPIDR file framing (device ID, header size, header
// bytes) from one .dat file and exposes the raw 8-byte packets that
// follow.
type Reader struct {
	r          *bufio.Reader
	engine     endian.EndianEngine
	SpidrID    uint32
	HeaderSize uint32
}

// NewReader opens a .dat stream, reads its SPIDR ID and header, and skips
// past the header so the next read returns the first packet. All
// multi-byte fields are read through endian.GetLittleEndianEngine(), never
// via unsafe transmutation.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, 1<<20)
	engine := endian.GetLittleEndianEngine()

	var hdr [8]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("packet: reading spidr file header: %w", err)
	}

	spidrID := engine.Uint32(hdr[0:4])
	headerSize := engine.Uint32(hdr[4:8])
	if headerSize > format.MaxSPIDRHeaderSize {
		headerSize = format.MaxSPIDRHeaderSize
	}

	if headerSize > 0 {
		if _, err := io.CopyN(io.Discard, br, int64(headerSize)); err != nil {
			return nil, fmt.Errorf("packet: skipping spidr header: %w", err)
		}
	}

	return &Reader{r: br, engine: engine, SpidrID: spidrID, HeaderSize: headerSize}, nil
}

// ReadPacket reads the next raw 8-byte packet. It returns io.EOF cleanly at
// the end of the stream, and errs.ErrShortPacket if a trailing partial
// packet remains.
func (r *Reader) ReadPacket() (uint64, error) {
	var buf [format.PacketSize]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return 0, fmt.Errorf("%w: %v", errs.ErrShortPacket, err)
		}
		return 0, err
	}
	return r.engine.Uint64(buf[:]), nil
}

// Packets returns an iterator over every raw packet remaining in the
// stream, in the teacher's range-over-func idiom. Iteration stops, without
// yielding io.EOF, once the stream is cleanly exhausted; any other read
// error (including a trailing partial packet) is yielded once and iteration
// stops.
//
// Example:
//
//	for word, err := range r.Packets() {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
func (r *Reader) Packets() iter.Seq2[uint64, error] {
	return func(yield func(uint64, error) bool) {
		for {
			word, err := r.ReadPacket()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(0, err)
				return
			}
			if !yield(word, nil) {
				return
			}
		}
	}
}

// Decoder holds the running state needed to reconstruct global time across
// a sequence of packets from one or more concatenated .dat files belonging
// to the same run: the previous trigger's coarse counter (for wrap
// detection), the extended trigger time, and the 64-bit wall-clock time
// assembled from alternating LSB/MSB sync packets.
type Decoder struct {
	hotPixels *hotpixel.Set
	log       logging.Logger

	prevTrigTimeCoarse uint64
	trigTimeGlobalExt  uint64

	longTime     uint64
	longTimeLSB  uint64

	// rawTriggerIndex and triggerOverflows implement the overflow-aware
	// trigger numbering: the 12-bit raw trigger counter in each packet
	// wraps at 4096, so consecutive triggers are renumbered onto a
	// monotonic uint32 sequence (raw + 4096*overflows) rather than the
	// wrapped raw value alone.
	haveRawTrigger  bool
	prevRawTrigger  uint32
	triggerOverflows uint32

	HitsParsed        uint64
	PacketsParsed     uint64
	TriggersParsed    uint64
	HotPixelsRemoved  uint64
}

// NewDecoder creates a Decoder. hotPixels may be nil to disable hot-pixel
// filtering; log may be nil to discard protocol anomaly warnings (time
// wraps/jumps), which is the default if logging.NoOp() is not passed.
func NewDecoder(hotPixels *hotpixel.Set, log logging.Logger) *Decoder {
	if log == nil {
		log = logging.NoOp()
	}
	return &Decoder{hotPixels: hotPixels, log: log}
}

// Result is the outcome of decoding one raw packet.
type Result struct {
	Hit     *record.Hit
	Trigger *record.Trigger
}

// DecodePacket dispatches one raw packet, updating the Decoder's running
// clock state and returning a Hit or a Trigger if the packet produced one.
// Time-sync packets (subheader 0x4/0x5) update internal state only and
// return a zero Result.
func (d *Decoder) DecodePacket(packet uint64) Result {
	d.PacketsParsed++

	header := Header((packet >> 60) & 0xF)

	switch header {
	case HeaderPixelA, HeaderPixelB:
		return d.decodeHit(packet)
	case HeaderTDC1, HeaderTDC2:
		return d.decodeTDC(packet)
	default:
		return Result{}
	}
}

func (d *Decoder) decodeHit(packet uint64) Result {
	d.HitsParsed++

	dcol := (packet & 0x0FE0_0000_0000_0000) >> 52
	spix := (packet & 0x001F_8000_0000_0000) >> 45
	pix := (packet & 0x0000_7000_0000_0000) >> 44
	col := uint16(dcol + pix/4)
	row := uint16(spix + (pix & 0x3))

	if d.hotPixels != nil && d.hotPixels.Contains(col, row) {
		d.HotPixelsRemoved++
		return Result{}
	}

	data := (packet & 0x0000_0FFF_FFFF_0000) >> 16

	tot := uint32((data&0x0000_3FF0)>>4) * format.TOTAduToNS

	spidrTime := packet & 0x0000_0000_0000_FFFF
	tempToA := (data & 0x0FFF_C000) >> 14
	tempToAFast := data & 0xF
	tempToACoarse := (spidrTime << 14) | tempToA

	pixelBits := int32((tempToACoarse >> 28) & 0x3)
	longTimeBits := int32((d.longTime >> 28) & 0x3)
	diff := longTimeBits - pixelBits

	var globalTime uint64
	switch diff {
	case 1, -3:
		globalTime = ((d.longTime - 0x1000_0000) & 0xFFFF_C000_0000) | (tempToACoarse & 0x3FFF_FFFF)
	case 3, -1:
		globalTime = ((d.longTime + 0x1000_0000) & 0xFFFF_C000_0000) | (tempToACoarse & 0x3FFF_FFFF)
	default:
		globalTime = (d.longTime & 0xFFFF_C000_0000) | (tempToACoarse & 0x3FFF_FFFF)
	}

	// Subtract fast ToA: the fast counter counts down until the next
	// clock edge, so fewer counts means a later arrival.
	toa := (globalTime << 4) - tempToAFast

	// Correct for the column-to-column phase shift.
	toa += (uint64(col) / 2) % 16
	if (col/2)%16 == 0 {
		toa += 16
	}

	h := record.Hit{Col: col, Row: row, ToA: toa, ToT: tot}
	return Result{Hit: &h}
}

func (d *Decoder) decodeTDC(packet uint64) Result {
	subheader := Subheader((packet >> 56) & 0xF)

	switch subheader {
	case SubheaderTrigger:
		return d.decodeTrigger(packet)
	case SubheaderTimeLSB:
		d.longTimeLSB = (packet & 0x0000_FFFF_FFFF_0000) >> 16
		return Result{}
	case SubheaderTimeMSB:
		longTimeMSB := (packet & 0x0000_0000_FFFF_0000) << 16
		tmpLongTime := longTimeMSB | d.longTimeLSB

		// 0x10000000 corresponds to roughly 6 seconds; a jump bigger than
		// that is treated as a spurious forward glitch rather than real
		// elapsed time.
		if tmpLongTime > d.longTime+0x1000_0000 && d.longTime > 0 {
			d.log.Warnf("packet: large forward time jump detected (from %d to %d)", d.longTime, tmpLongTime)
			d.longTime = (longTimeMSB - 0x1000_0000) | d.longTimeLSB
		} else {
			d.longTime = tmpLongTime
		}
		return Result{}
	default:
		return Result{}
	}
}

func (d *Decoder) decodeTrigger(packet uint64) Result {
	d.TriggersParsed++

	trigTimeCoarse := (packet & 0x0000_0FFF_FFFF_F000) >> 12
	trigTimeFine := (packet >> 5) & 0xF
	trigTimeFine = ((trigTimeFine - 1) << 9) / 12
	trigTimeFine = (packet & 0x0000_0000_0000_0E00) | (trigTimeFine & 0x0000_0000_0000_01FF)

	if trigTimeCoarse < d.prevTrigTimeCoarse {
		if trigTimeCoarse < d.prevTrigTimeCoarse-1000 {
			d.trigTimeGlobalExt += 0x1_0000_0000
			d.log.Warnf("packet: coarse trigger time counter wrapped")
		} else {
			d.log.Warnf("packet: small backward time jump in trigger packet")
		}
	}

	time := (d.trigTimeGlobalExt + trigTimeCoarse) | trigTimeFine
	time *= 25

	d.prevTrigTimeCoarse = trigTimeCoarse

	// The raw trigger index is a 12-bit counter (bits 44-55) that wraps at
	// 4096; renumber it onto a monotonic sequence so downstream event
	// indices survive arbitrarily long runs.
	rawIndex := uint32((packet >> 44) & 0xFFF)
	if !d.haveRawTrigger && rawIndex != 1 {
		d.log.Warnf("packet: first trigger index is %d, not 1", rawIndex)
	}
	if d.haveRawTrigger && rawIndex < d.prevRawTrigger {
		d.triggerOverflows++
	}
	d.haveRawTrigger = true
	d.prevRawTrigger = rawIndex

	event := rawIndex + 4096*d.triggerOverflows

	t := record.Trigger{Event: event, Time: time}
	return Result{Trigger: &t}
}
