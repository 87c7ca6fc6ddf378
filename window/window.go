// Package window associates hits with the trigger whose acquisition window
// contains them, turning a flat hits.bin + triggers.csv pair into a
// sequence of per-trigger hit windows (trigger_events.bin / .csv).
package window

import (
	"github.com/ariadne-exp/tpx3pipe/format"
	"github.com/ariadne-exp/tpx3pipe/internal/options"
	"github.com/ariadne-exp/tpx3pipe/record"
	"github.com/ariadne-exp/tpx3pipe/ringbuf"
)

// HitBufferSize is the size of the sliding hit buffer kept in memory while
// scanning for each trigger's window.
const HitBufferSize = 1_000_000

// refillBatch is how many hits are pulled in at a time once the buffer
// needs to advance past the current trigger's window.
const refillBatch = 100_000

// Settings configures a Windower.
type Settings struct {
	// MaxHits, if non-zero, stops processing once a window's start or end
	// hit index reaches it.
	MaxHits int
	// MaxTriggers, if non-zero, stops processing after this many triggers.
	MaxTriggers int
	// MinEventHits is the minimum hit count (strictly greater than) a
	// window must contain to be emitted, unless WriteAll is set.
	MinEventHits int
	// WindowLookBehindNS and WindowLookAheadNS bound the acquisition
	// window around each trigger's time, in nanoseconds.
	WindowLookBehindNS uint64
	WindowLookAheadNS  uint64
	// RelativeToA, if set, shifts each emitted window's ToA values to be
	// relative to the window's start time.
	RelativeToA bool
	// WriteAll, if set, emits every trigger's window even if it contains
	// no hits.
	WriteAll bool
	// PreventOverlap, if set, skips any trigger whose window overlaps a
	// later trigger's window.
	PreventOverlap bool
}

// NewSettingsFromWindow computes WindowLookBehindNS/WindowLookAheadNS from
// an acquisition window size (in microseconds) and the percentage of it
// placed after the trigger, matching the reference tool's CLI derivation.
func NewSettingsFromWindow(windowSizeUS uint64, postTriggerPercent float64) Settings {
	lookBehind := uint64(float64(windowSizeUS) * (100.0 - postTriggerPercent) * 10.0)
	lookAhead := uint64(float64(windowSizeUS) * postTriggerPercent * 10.0)
	return Settings{WindowLookBehindNS: lookBehind, WindowLookAheadNS: lookAhead}
}

// Option configures a Windower's Settings.
type Option = options.Option[*Settings]

func WithMaxHits(n int) Option {
	return options.NoError(func(s *Settings) { s.MaxHits = n })
}

func WithMaxTriggers(n int) Option {
	return options.NoError(func(s *Settings) { s.MaxTriggers = n })
}

func WithMinEventHits(n int) Option {
	return options.NoError(func(s *Settings) { s.MinEventHits = n })
}

func WithRelativeToA(v bool) Option {
	return options.NoError(func(s *Settings) { s.RelativeToA = v })
}

func WithWriteAll(v bool) Option {
	return options.NoError(func(s *Settings) { s.WriteAll = v })
}

func WithPreventOverlap(v bool) Option {
	return options.NoError(func(s *Settings) { s.PreventOverlap = v })
}

// Event is one emitted trigger window: its originating trigger's event
// index, the window's hits (possibly empty), and metadata mirroring the
// sidecar CSV row the reference tool writes.
type Event struct {
	TriggerEvent int
	Hits         []record.Hit
	Meta         record.ClusterMetadata
}

// HitSource supplies hits in ascending ToA order, such as record.Decoder.
type HitSource interface {
	ReadHit() (record.Hit, error)
}

// Windower scans a hit stream against a list of triggers (already sorted
// by time) and emits the hits falling within each trigger's acquisition
// window.
type Windower struct {
	settings Settings
	hits     *ringbuf.Deque[record.Hit]
	src      HitSource
	exhausted bool
}

// New creates a Windower over the given hit source.
func New(src HitSource, opts ...Option) (*Windower, error) {
	settings := Settings{}
	if err := options.Apply(&settings, opts...); err != nil {
		return nil, err
	}

	w := &Windower{settings: settings, hits: ringbuf.New[record.Hit](HitBufferSize), src: src}
	w.fill(HitBufferSize)
	insertionSort(w.hits)

	return w, nil
}

func (w *Windower) fill(n int) {
	if w.exhausted {
		return
	}
	for i := 0; i < n; i++ {
		h, err := w.src.ReadHit()
		if err != nil {
			w.exhausted = true
			return
		}
		w.hits.PushBack(h)
	}
}

// Run processes every trigger, calling emit for each window that passes
// the emission gate (WriteAll, or more hits than MinEventHits). The scan
// for each trigger starts at lastStart, which begins at 0 and is updated
// to lastStart minus startHit (saturating at 0), so it stays 0 and every
// scan starts at the front of the buffer.
func (w *Windower) Run(triggers []record.Trigger, emit func(Event) error) (overlapsIgnored int, err error) {
	lastStart := 0
	var accumulatedOffset int

	i := 0
	for i < len(triggers) {
		if w.settings.MaxTriggers != 0 && i == w.settings.MaxTriggers {
			break
		}

		trigger := triggers[i]

		startTimeNS := int64(trigger.Time) - int64(w.settings.WindowLookBehindNS)
		endTimeNS := int64(trigger.Time) + int64(w.settings.WindowLookAheadNS)

		startTicks := uint64(float64(startTimeNS) / format.TOAClockToNS)
		endTicks := uint64(float64(endTimeNS) / format.TOAClockToNS)

		for w.hits.Len() > 0 && w.hits.Front().ToA < startTicks && w.hits.Back().ToA < endTicks {
			drop := refillBatch
			if drop > w.hits.Len() {
				drop = w.hits.Len()
			}
			w.hits.DropFront(drop)
			w.fill(refillBatch)
			if w.hits.Len() == 0 {
				break
			}
		}
		insertionSort(w.hits)

		if w.settings.PreventOverlap {
			skip := 1
			for j := i + 1; j < len(triggers); j++ {
				if triggers[j].Time < uint64(endTimeNS) {
					skip++
				} else {
					break
				}
			}
			if skip > 1 {
				i += skip
				overlapsIgnored += skip
				continue
			}
		}

		startHit, endHit := 0, 0
		startSet, endSet := false, false

		n := w.hits.Len()
		for j := lastStart; j < n; j++ {
			hit := w.hits.At(j)
			if !startSet {
				if hit.ToA > startTicks {
					startHit = j
					startSet = true
				}
			} else if hit.ToA <= endTicks {
				endHit = j
				endSet = true
			} else {
				break
			}
		}

		if w.settings.MaxHits != 0 && (startHit >= w.settings.MaxHits || endHit >= w.settings.MaxHits) {
			break
		}

		if w.settings.WriteAll || (endSet && endHit-startHit > w.settings.MinEventHits) {
			var windowHits []record.Hit
			if endSet {
				windowHits = w.hits.Slice()[startHit:endHit]
			}

			toaAdjustment := int64(0)
			if w.settings.RelativeToA {
				toaAdjustment = -int64(startTicks)
			}

			meta := record.ClusterMetadata{
				Event:  i + 1,
				Time:   float64(startTimeNS),
				Offset: accumulatedOffset,
			}
			if endSet {
				meta.Duration = float64(endTimeNS-startTimeNS) * format.TOAClockToNS
				meta.Hits = endHit - startHit
				meta.SumToT = record.SumToT(windowHits)
				accumulatedOffset += (endHit - startHit + 1) * format.HitRecordSize
			} else {
				accumulatedOffset += format.HitRecordSize
			}

			ev := Event{TriggerEvent: i + 1, Hits: applyToAAdjustment(windowHits, toaAdjustment), Meta: meta}
			if err := emit(ev); err != nil {
				return overlapsIgnored, err
			}
		}

		lastStart = saturatingSub(lastStart, startHit)

		i++
	}

	return overlapsIgnored, nil
}

func applyToAAdjustment(hits []record.Hit, adj int64) []record.Hit {
	if adj == 0 || len(hits) == 0 {
		return hits
	}
	out := make([]record.Hit, len(hits))
	for i, h := range hits {
		h.ToA = uint64(int64(h.ToA) + adj)
		out[i] = h
	}
	return out
}

func saturatingSub(a, b int) int {
	if b >= a {
		return 0
	}
	return a - b
}

// insertionSort re-sorts the sliding buffer after it has shifted or been
// replenished, using the same adjacent-swap sort as the sorting stage: the
// buffer stays nearly sorted between refills, so this is cheap in
// practice.
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
