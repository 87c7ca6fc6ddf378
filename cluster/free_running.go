package cluster

import (
	"io"
	"sort"

	"github.com/ariadne-exp/tpx3pipe/internal/options"
	"github.com/ariadne-exp/tpx3pipe/internal/pool"
	"github.com/ariadne-exp/tpx3pipe/record"
	"github.com/ariadne-exp/tpx3pipe/ringbuf"
)

// inStackPool hands out the flood-fill's per-seed "currently queued" marker
// slice, reused across seeds instead of allocated fresh for every one.
var inStackPool = pool.NewSlicePool[bool]()

// HitsBufferSize is the size of the sliding hit buffer the free-running
// clusterer keeps in memory while scanning an unbounded hits.bin stream.
const HitsBufferSize = 1_000_000

// FreeRunningSettings configures FreeRunning.
type FreeRunningSettings struct {
	MinClusterHits int
	MinClusterToT  uint32
	MaxPixelGap    uint32
	MaxToAGap      uint32
	MinHitToT      uint32
	// ToAWindow bounds how far forward in time (in ToA ticks) the
	// neighbour scan looks past a cluster's seed hit, so that clustering
	// an early run doesn't have to hold the whole stream in the buffer.
	ToAWindow uint32
	// RelativeToA, if set, shifts each cluster's ToA values to be
	// relative to its own start time when written out.
	RelativeToA bool
}

// FreeRunningOption configures FreeRunningSettings.
type FreeRunningOption = options.Option[*FreeRunningSettings]

func WithFRMinClusterHits(n int) FreeRunningOption {
	return options.NoError(func(s *FreeRunningSettings) { s.MinClusterHits = n })
}
func WithFRMinClusterToT(n uint32) FreeRunningOption {
	return options.NoError(func(s *FreeRunningSettings) { s.MinClusterToT = n })
}
func WithFRMaxPixelGap(n uint32) FreeRunningOption {
	return options.NoError(func(s *FreeRunningSettings) { s.MaxPixelGap = n })
}
func WithFRMaxToAGap(n uint32) FreeRunningOption {
	return options.NoError(func(s *FreeRunningSettings) { s.MaxToAGap = n })
}
func WithFRMinHitToT(n uint32) FreeRunningOption {
	return options.NoError(func(s *FreeRunningSettings) { s.MinHitToT = n })
}
func WithFRToAWindow(n uint32) FreeRunningOption {
	return options.NoError(func(s *FreeRunningSettings) { s.ToAWindow = n })
}
func WithFRRelativeToA(v bool) FreeRunningOption {
	return options.NoError(func(s *FreeRunningSettings) { s.RelativeToA = v })
}

// HitSource supplies hits in ascending ToA order.
type HitSource interface {
	ReadHit() (record.Hit, error)
}

// FreeRunning finds clusters across an unbounded hits stream via a
// sliding buffer flood fill.
type FreeRunning struct {
	settings FreeRunningSettings
	src      HitSource

	buf       *ringbuf.Deque[record.Hit]
	processed *ringbuf.Deque[bool]
	exhausted bool

	TotalHitsProcessed int
}

// NewFreeRunning creates a FreeRunning clusterer over src, immediately
// filling its sliding buffer to capacity.
func NewFreeRunning(src HitSource, opts ...FreeRunningOption) (*FreeRunning, error) {
	settings := FreeRunningSettings{}
	if err := options.Apply(&settings, opts...); err != nil {
		return nil, err
	}

	f := &FreeRunning{
		settings:  settings,
		src:       src,
		buf:       ringbuf.New[record.Hit](HitsBufferSize),
		processed: ringbuf.New[bool](HitsBufferSize),
	}

	for f.buf.Len() < HitsBufferSize {
		h, err := src.ReadHit()
		if err != nil {
			f.exhausted = true
			break
		}
		if h.ToT > settings.MinHitToT {
			f.buf.PushBack(h)
			f.processed.PushBack(false)
		}
	}

	return f, nil
}

// Next returns the next accepted cluster, sorted by ToA. It returns io.EOF
// once the stream and buffer are both exhausted.
//
// Each outer pass looks at the buffer's front hit. A front hit that is
// already processed is popped and the back is replenished from the source
// with the next hit whose ToT exceeds MinHitToT. An unprocessed front hit
// seeds a flood fill from buffer index 0, which marks it processed, so the
// following pass pops it.
func (f *FreeRunning) Next() ([]record.Hit, error) {
	for f.buf.Len() > 0 {
		if f.processed.At(0) {
			f.buf.PopFront()
			f.processed.PopFront()

			for {
				h, err := f.src.ReadHit()
				if err != nil {
					f.exhausted = true
					break
				}
				if h.ToT > f.settings.MinHitToT {
					f.buf.PushBack(h)
					f.processed.PushBack(false)
					break
				}
			}

			continue
		}

		startToA := f.buf.At(0).ToA

		var candidate []record.Hit
		stack := ringbuf.New[int](64)
		inStack, putInStack := inStackPool.Get(f.buf.Len())
		for i := range inStack {
			inStack[i] = false
		}

		stack.PushBack(0)

		for stack.Len() > 0 {
			j := stack.PopFront()
			inStack[j] = false

			hit1 := f.buf.At(j)
			candidate = append(candidate, hit1)
			f.processed.Set(j, true)
			f.TotalHitsProcessed++

			n := f.buf.Len()
			for k := 0; k < n; k++ {
				if f.processed.At(k) || inStack[k] {
					continue
				}

				hit2 := f.buf.At(k)

				if hit2.ToA-startToA > uint64(f.settings.ToAWindow) {
					break
				}

				if adjacent(hit1, hit2, f.settings.MaxToAGap, f.settings.MaxPixelGap) {
					stack.PushBack(k)
					inStack[k] = true
				}
			}
		}

		putInStack()

		if !accept(candidate, f.settings.MinClusterHits, f.settings.MinClusterToT) {
			continue
		}

		sort.Sort(record.Hits(candidate))
		return candidate, nil
	}

	return nil, io.EOF
}
