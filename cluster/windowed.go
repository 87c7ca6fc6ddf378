package cluster

import (
	"sort"

	"github.com/ariadne-exp/tpx3pipe/internal/options"
	"github.com/ariadne-exp/tpx3pipe/internal/pool"
	"github.com/ariadne-exp/tpx3pipe/record"
	"github.com/ariadne-exp/tpx3pipe/ringbuf"
)

// windowInStackPool hands out ClusterTriggerEvent's per-seed "currently
// queued" marker slice, reused across seeds within one trigger window.
var windowInStackPool = pool.NewSlicePool[bool]()

// TriggerSettings configures Windowed clustering over a trigger's already
// finite, already-bounded hit set (no ToA window cutoff is needed: the
// windowing stage already bounded the set in time).
type TriggerSettings struct {
	MinClusterHits int
	MinClusterToT  uint32
	MaxPixelGap    uint32
	MaxToAGap      uint32
	MinHitToT      uint32
}

// TriggerOption configures TriggerSettings.
type TriggerOption = options.Option[*TriggerSettings]

func WithMinClusterHits(n int) TriggerOption {
	return options.NoError(func(s *TriggerSettings) { s.MinClusterHits = n })
}
func WithMinClusterToT(n uint32) TriggerOption {
	return options.NoError(func(s *TriggerSettings) { s.MinClusterToT = n })
}
func WithMaxPixelGap(n uint32) TriggerOption {
	return options.NoError(func(s *TriggerSettings) { s.MaxPixelGap = n })
}

// WithMaxToAGap sets the maximum ToA gap (in ticks) for two hits to be
// considered adjacent. Unlike the reference CLI tool, where this setting
// was stranded at its default because the flag was never wired up, this
// is a normal, fully effective option here: there is no CLI layer in this
// package for a flag registration to go missing from.
func WithMaxToAGap(n uint32) TriggerOption {
	return options.NoError(func(s *TriggerSettings) { s.MaxToAGap = n })
}
func WithMinHitToT(n uint32) TriggerOption {
	return options.NoError(func(s *TriggerSettings) { s.MinHitToT = n })
}

// ClusterTriggerEvent runs flood-fill clustering over one trigger's hit
// window and returns every accepted cluster found (candidates that fail the
// min-hits/min-ToT gate are dropped). Callers
// that only want unambiguous single-cluster events should check
// len(result) == 1 themselves, matching the reference tool's behaviour of
// only emitting an event when clustering resolved to exactly one cluster.
func ClusterTriggerEvent(hits []record.Hit, settings TriggerSettings) [][]record.Hit {
	var clusters [][]record.Hit

	n := len(hits)
	processed := make([]bool, n)

	for i := 0; i < n; i++ {
		if processed[i] {
			continue
		}

		var candidate []record.Hit
		stack := ringbuf.New[int](64)
		inStack, putInStack := windowInStackPool.Get(n)
		for j := range inStack {
			inStack[j] = false
		}

		stack.PushBack(i)
		inStack[i] = true

		for stack.Len() > 0 {
			j := stack.PopFront()
			inStack[j] = false

			hit1 := hits[j]
			candidate = append(candidate, hit1)
			processed[j] = true

			// Scan from the outer seed index i, not from j: this lets the
			// flood fill look backwards in time for complex geometries,
			// same as the free-running variant, but anchored to i instead
			// of always 0 since there is no sliding buffer here to shift
			// the meaning of index 0 between passes.
			for k := i; k < n; k++ {
				if processed[k] || inStack[k] {
					continue
				}

				hit2 := hits[k]
				if adjacent(hit1, hit2, settings.MaxToAGap, settings.MaxPixelGap) {
					stack.PushBack(k)
					inStack[k] = true
				}
			}
		}

		putInStack()

		if !accept(candidate, settings.MinClusterHits, settings.MinClusterToT) {
			continue
		}

		sort.Sort(record.Hits(candidate))
		clusters = append(clusters, candidate)
	}

	return clusters
}
