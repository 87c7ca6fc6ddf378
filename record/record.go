// Package record defines the decoded Hit, Trigger, and ClusterMetadata
// types shared by every downstream pipeline stage, and the binary codec for
// the hits.bin / clusters.bin record streams those stages read and write.
package record

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/ariadne-exp/tpx3pipe/endian"
	"github.com/ariadne-exp/tpx3pipe/errs"
	"github.com/ariadne-exp/tpx3pipe/format"
	"github.com/ariadne-exp/tpx3pipe/internal/pool"
)

// Hit is one reconstructed pixel hit: its column/row on the Timepix3
// matrix, its global time of arrival in clock ticks, and its time over
// threshold in nanoseconds.
type Hit struct {
	Col uint16
	Row uint16
	ToA uint64
	ToT uint32
}

// Hits implements sort.Interface, ordering purely by ToA, matching the
// ordering the streaming sorter and the clustering stages both rely on.
type Hits []Hit

func (h Hits) Len() int           { return len(h) }
func (h Hits) Less(i, j int) bool { return h[i].ToA < h[j].ToA }
func (h Hits) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

var _ sort.Interface = Hits(nil)

// Trigger is one decoded trigger packet: its sequence index and its global
// time in nanoseconds.
type Trigger struct {
	Event uint32
	Time  uint64
}

// Triggers implements sort.Interface, ordering by Time.
type Triggers []Trigger

func (t Triggers) Len() int           { return len(t) }
func (t Triggers) Less(i, j int) bool { return t[i].Time < t[j].Time }
func (t Triggers) Swap(i, j int)      { t[i], t[j] = t[j], t[i] }

// ClusterMetadata is one row of a clusters.csv / trigger_events.csv sidecar:
// the cluster's source event index, its start time and duration, its hit
// count and summed ToT, and its byte offset into the paired .bin file.
type ClusterMetadata struct {
	Event   int     `csv:"event"`
	Time    float64 `csv:"time"`
	Duration float64 `csv:"duration"`
	Hits    int     `csv:"hits"`
	SumToT  uint32  `csv:"sum_tot"`
	Offset  int     `csv:"offset"`
}

// Encoder writes a sequence of Hit values to a hits.bin stream: each hit as
// a flat 16-byte little-endian record (u16 col | u16 row | u64 toa | u32 tot),
// with no framing or terminator between records.
type Encoder struct {
	w      *bufio.Writer
	engine endian.EndianEngine
	buf    [format.HitRecordSize]byte
}

// NewEncoder wraps w in a buffered hits.bin writer.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriterSize(w, 1<<20), engine: endian.GetLittleEndianEngine()}
}

// WriteHit appends one hit record.
func (e *Encoder) WriteHit(h Hit) error {
	e.engine.PutUint16(e.buf[0:2], h.Col)
	e.engine.PutUint16(e.buf[2:4], h.Row)
	e.engine.PutUint64(e.buf[4:12], h.ToA)
	e.engine.PutUint32(e.buf[12:16], h.ToT)

	_, err := e.w.Write(e.buf[:])
	return err
}

// WriteHits appends a batch of hits in order, using a single pooled
// ByteBuffer for the whole batch to minimize write syscalls.
func (e *Encoder) WriteHits(hits []Hit) error {
	bb := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(bb)

	bb.Reset()
	bb.ExtendOrGrow(len(hits) * format.HitRecordSize)
	buf := bb.Bytes()

	for i, h := range hits {
		off := i * format.HitRecordSize
		e.engine.PutUint16(buf[off:off+2], h.Col)
		e.engine.PutUint16(buf[off+2:off+4], h.Row)
		e.engine.PutUint64(buf[off+4:off+12], h.ToA)
		e.engine.PutUint32(buf[off+12:off+16], h.ToT)
	}

	_, err := e.w.Write(buf)
	return err
}

// Flush flushes any buffered bytes to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// Decoder reads Hit values from a hits.bin stream.
type Decoder struct {
	r      *bufio.Reader
	engine endian.EndianEngine
	buf    [format.HitRecordSize]byte
}

// NewDecoder wraps r in a buffered hits.bin reader.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 1<<20), engine: endian.GetLittleEndianEngine()}
}

// ReadHit reads the next hit record. It returns io.EOF when the stream is
// exhausted cleanly (on a record boundary); any other read error, or an
// all-zero record (reserved for the cluster terminator and never valid in a
// plain hits.bin stream), is returned as an error.
func (d *Decoder) ReadHit() (Hit, error) {
	if _, err := io.ReadFull(d.r, d.buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Hit{}, fmt.Errorf("%w: %v", errs.ErrShortRecord, err)
		}
		return Hit{}, err
	}

	h := Hit{
		Col: d.engine.Uint16(d.buf[0:2]),
		Row: d.engine.Uint16(d.buf[2:4]),
		ToA: d.engine.Uint64(d.buf[4:12]),
		ToT: d.engine.Uint32(d.buf[12:16]),
	}

	if h == (Hit{}) {
		return Hit{}, errs.ErrUnexpectedNullHit
	}

	return h, nil
}

// ReadAll reads every hit in the stream.
func ReadAll(r io.Reader) ([]Hit, error) {
	d := NewDecoder(r)
	var hits []Hit

	for {
		h, err := d.ReadHit()
		if err == io.EOF {
			return hits, nil
		}
		if err != nil {
			return hits, err
		}
		hits = append(hits, h)
	}
}

// Iterator wraps a hits.bin stream for range-over-func consumption, the
// teacher's idiom for exposing a decode loop as an iter.Seq rather than a
// pull-style ReadHit/error pair.
type Iterator struct {
	d   *Decoder
	err error
}

// NewIterator wraps r in a hits.bin iterator.
func NewIterator(r io.Reader) *Iterator {
	return &Iterator{d: NewDecoder(r)}
}

// All returns an iterator over every hit remaining in the stream. Iteration
// stops, without error, once the stream is cleanly exhausted; any other
// decode error is recorded and retrievable via Err after the range loop
// exits.
//
// Example:
//
//	it := record.NewIterator(r)
//	for h := range it.All() {
//	    ...
//	}
//	if err := it.Err(); err != nil {
//	    return err
//	}
func (it *Iterator) All() iter.Seq[Hit] {
	return func(yield func(Hit) bool) {
		for {
			h, err := it.d.ReadHit()
			if err != nil {
				if err != io.EOF {
					it.err = err
				}
				return
			}
			if !yield(h) {
				return
			}
		}
	}
}

// Err returns the first non-EOF error encountered by All, if any.
func (it *Iterator) Err() error {
	return it.err
}

// clusterTerminator is the all-zero 16-byte record delimiting clusters in a
// clusters.bin stream. It can never collide with a real hit: a hit with
// col=0, row=0, toa=0, tot=0 does not occur in practice (toa=0 would mean a
// hit at the very start of the detector clock, which the global-time
// reconstruction never produces for a real pixel hit).
var clusterTerminator [format.ClusterTerminatorSize]byte

// WriteCluster writes one cluster (a slice of hits, already in ToA order)
// followed by the all-zero terminator record, applying a ToA adjustment
// (used for RelativeToA normalization) to every hit's ToA before writing.
//
// It returns errs.ErrNegativeToA, without writing anything, if the
// adjustment would make any hit's ToA negative.
func WriteCluster(w io.Writer, hits []Hit, toaAdjustment int64) error {
	bb := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(bb)

	bb.Reset()
	bb.ExtendOrGrow((len(hits) + 1) * format.HitRecordSize)
	buf := bb.Bytes()
	engine := endian.GetLittleEndianEngine()

	for i, h := range hits {
		toa := int64(h.ToA) + toaAdjustment
		if toa < 0 {
			return fmt.Errorf("%w: hit toa=%d adjustment=%d", errs.ErrNegativeToA, h.ToA, toaAdjustment)
		}

		off := i * format.HitRecordSize
		engine.PutUint16(buf[off:off+2], h.Col)
		engine.PutUint16(buf[off+2:off+4], h.Row)
		engine.PutUint64(buf[off+4:off+12], uint64(toa))
		engine.PutUint32(buf[off+12:off+16], h.ToT)
	}

	termOff := len(hits) * format.HitRecordSize
	copy(buf[termOff:], clusterTerminator[:])

	_, err := w.Write(buf)
	return err
}

// ClusterReader reads successive terminator-delimited clusters from a
// clusters.bin stream.
type ClusterReader struct {
	d *Decoder
}

// NewClusterReader wraps r in a cluster-stream reader.
func NewClusterReader(r io.Reader) *ClusterReader {
	return &ClusterReader{d: NewDecoder(r)}
}

// ReadCluster reads the hits belonging to the next cluster, up to and
// consuming its terminator. It returns io.EOF only if the stream ends
// exactly at a cluster boundary with no more clusters to read; a stream
// that ends mid-cluster without a terminator is reported as
// errs.ErrShortRecord, since every real cluster is terminator-delimited.
func (c *ClusterReader) ReadCluster() ([]Hit, error) {
	var hits []Hit

	for {
		if _, err := io.ReadFull(c.d.r, c.d.buf[:]); err != nil {
			if err == io.EOF && len(hits) == 0 {
				return nil, io.EOF
			}
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return hits, fmt.Errorf("%w: truncated cluster stream", errs.ErrShortRecord)
			}
			return hits, err
		}

		h := Hit{
			Col: c.d.engine.Uint16(c.d.buf[0:2]),
			Row: c.d.engine.Uint16(c.d.buf[2:4]),
			ToA: c.d.engine.Uint64(c.d.buf[4:12]),
			ToT: c.d.engine.Uint32(c.d.buf[12:16]),
		}

		if h == (Hit{}) {
			return hits, nil
		}

		hits = append(hits, h)
	}
}

// ReadAllClusters reads every cluster in a clusters.bin stream into memory.
func ReadAllClusters(r io.Reader) ([][]Hit, error) {
	cr := NewClusterReader(r)
	var clusters [][]Hit

	for {
		hits, err := cr.ReadCluster()
		if err == io.EOF {
			return clusters, nil
		}
		if err != nil {
			return clusters, err
		}
		clusters = append(clusters, hits)
	}
}

// ReadClusters returns an iterator over every cluster in a clusters.bin
// stream, read one at a time rather than loaded eagerly. Iteration stops,
// without error, once the stream is cleanly exhausted at a cluster
// boundary; any other read error (including a stream truncated mid-cluster)
// stops iteration after yielding the partial cluster read so far.
func ReadClusters(r io.Reader) iter.Seq[[]Hit] {
	cr := NewClusterReader(r)

	return func(yield func([]Hit) bool) {
		for {
			hits, err := cr.ReadCluster()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(hits)
				return
			}
			if !yield(hits) {
				return
			}
		}
	}
}

// SumToT sums the ToT of every hit in a cluster.
func SumToT(hits []Hit) uint32 {
	var sum uint32
	for _, h := range hits {
		sum += h.ToT
	}
	return sum
}
