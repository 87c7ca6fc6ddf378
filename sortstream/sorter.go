// Package sortstream implements the bounded-memory streaming sort applied
// to hits as they come off the packet decoder: hits arrive in roughly
// ascending ToA order (each pixel's local counter is monotonic, but
// different pixels' hits interleave slightly out of order), so the sorter
// only ever needs to hold a bounded window of recent hits to fully
// reorder the stream.
package sortstream

import (
	"github.com/ariadne-exp/tpx3pipe/internal/options"
	"github.com/ariadne-exp/tpx3pipe/internal/pool"
	"github.com/ariadne-exp/tpx3pipe/record"
	"github.com/ariadne-exp/tpx3pipe/ringbuf"
)

// emittedPool pools the per-flush emitted-batch buffer; sink is always
// called synchronously and never retains it past the call.
var emittedPool = pool.NewSlicePool[record.Hit]()

// DefaultBatchSize is the number of hits buffered before a sort-and-flush
// pass runs.
const DefaultBatchSize = 1_000_000

// DefaultSkimOff is the number of oldest hits emitted by each flush; the
// remaining BatchSize-SkimOff most-recent hits stay in the buffer so that
// hits still arriving late (within the batch window) have something to
// sort against.
const DefaultSkimOff = 800_000

// Settings configures a Sorter.
type Settings struct {
	BatchSize int
	SkimOff   int
}

// Option configures a Sorter's Settings.
type Option = options.Option[*Settings]

// WithBatchSize overrides the flush threshold.
func WithBatchSize(n int) Option {
	return options.NoError(func(s *Settings) {
		s.BatchSize = n
	})
}

// WithSkimOff overrides how many hits each flush emits.
func WithSkimOff(n int) Option {
	return options.NoError(func(s *Settings) {
		s.SkimOff = n
	})
}

// Sorter holds a bounded window of hits, keeping them sorted by ToA, and
// flushes the oldest portion out to a sink once the window fills.
type Sorter struct {
	settings Settings
	buf      *ringbuf.Deque[record.Hit]
	sink     func([]record.Hit) error
}

// New creates a Sorter that calls sink with each flushed, sorted batch of
// hits (in ToA order). sink is called once more at Close time with
// whatever remains.
func New(sink func([]record.Hit) error, opts ...Option) (*Sorter, error) {
	settings := Settings{BatchSize: DefaultBatchSize, SkimOff: DefaultSkimOff}
	if err := options.Apply(&settings, opts...); err != nil {
		return nil, err
	}

	return &Sorter{
		settings: settings,
		buf:      ringbuf.New[record.Hit](settings.BatchSize),
		sink:     sink,
	}, nil
}

// Push adds one hit to the sorter, flushing a batch to the sink if the
// buffer has reached BatchSize. The flush emits the SkimOff oldest hits and
// retains the newest BatchSize-SkimOff as the tail still-arriving hits can
// sort against.
func (s *Sorter) Push(h record.Hit) error {
	s.buf.PushBack(h)

	if s.buf.Len() >= s.settings.BatchSize {
		return s.flush(s.settings.BatchSize - s.settings.SkimOff)
	}
	return nil
}

// flush sorts the whole buffer, emits everything except the last keep hits
// (the retained tail), and drops the emitted prefix from the buffer.
func (s *Sorter) flush(keep int) error {
	insertionSort(s.buf)

	n := s.buf.Len()
	if keep > n {
		keep = n
	}
	emitCount := n - keep

	emitted, putEmitted := emittedPool.Get(emitCount)
	defer putEmitted()
	for i := 0; i < emitCount; i++ {
		emitted[i] = s.buf.At(i)
	}

	if err := s.sink(emitted); err != nil {
		return err
	}

	s.buf.DropFront(emitCount)
	return nil
}

// Close sorts and emits everything remaining in the buffer.
func (s *Sorter) Close() error {
	return s.flush(0)
}

// insertionSort sorts d by ToA using the same adjacent-swap insertion sort
// as the reference decoder: with a nearly-sorted input (hits from
// different pixels interleave only slightly), this is faster in practice
// than a general-purpose sort despite its O(n^2) worst case, since the
// number of swaps needed is proportional to how far out of order the
// stream actually is, not to n^2.
func insertionSort(d *ringbuf.Deque[record.Hit]) {
	n := d.Len()
	for i := 1; i < n; i++ {
		for j := i; j > 0; j-- {
			a, b := d.At(j-1), d.At(j)
			if a.ToA <= b.ToA {
				break
			}
			d.Set(j-1, b)
			d.Set(j, a)
		}
	}
}
