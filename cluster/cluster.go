// Package cluster groups hits into spatio-temporal clusters using a
// flood-fill over an adjacency predicate (close in time, close in pixel
// space). Two variants are provided: FreeRunning, which scans an
// unbounded hits.bin stream through a sliding buffer, and Windowed, which
// clusters the finite hit set already isolated for one trigger by the
// window package.
//
// Both variants deliberately preserve two behaviours of the reference
// implementation rather than "fixing" them: a cluster that is rejected
// for being too small/low-ToT still marks its member hits as processed,
// so they can never seed or join a later cluster; and the two variants
// restart their inner neighbour scan from different positions (always 0
// for FreeRunning, the outer seed index for Windowed) — a deliberate
// divergence between the two tools in the reference implementation, not
// an oversight, preserved here rather than unified.
package cluster

import (
	"github.com/ariadne-exp/tpx3pipe/record"
)

// adjacent reports whether hit2 may join a cluster seeded by hit1, under
// the asymmetric predicate the reference implementation uses: the ToA gap
// is a strict less-than, the pixel gap is a less-than-or-equal.
func adjacent(hit1, hit2 record.Hit, maxToAGap, maxPixelGap uint32) bool {
	toaDiff := absInt64(int64(hit2.ToA) - int64(hit1.ToA))
	colDiff := absInt64(int64(hit1.Col) - int64(hit2.Col))
	rowDiff := absInt64(int64(hit1.Row) - int64(hit2.Row))

	return toaDiff < int64(maxToAGap) && uint32(colDiff) <= maxPixelGap && uint32(rowDiff) <= maxPixelGap
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// accept reports whether a completed flood-fill candidate qualifies as an
// output cluster under the min-hits/min-ToT gate.
func accept(cluster []record.Hit, minHits int, minToT uint32) bool {
	if len(cluster) < minHits {
		return false
	}
	return record.SumToT(cluster) >= minToT
}
