// Package hotpixel identifies known noisy pixels on the Timepix3 matrix so
// the packet decoder can drop their hits before they ever reach the sorter.
package hotpixel

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ariadne-exp/tpx3pipe/format"
)

// pixel identifies a (col, row) location on the detector matrix.
type pixel struct {
	col, row uint16
}

// defaultPixels is the compiled-in set of known hot pixels for this
// detector, determined empirically from prior runs.
var defaultPixels = [format.HotPixelCount]pixel{
	{177, 245},
	{141, 245},
	{41, 130},
	{81, 205},
	{23, 196},
	{102, 249},
	{44, 114},
	{145, 236},
	{129, 164},
	{218, 103},
	{12, 90},
	{188, 88},
	{87, 148},
	{105, 253},
	{184, 175},
	{235, 142},
	{255, 238},
	{16, 163},
	{168, 203},
	{96, 207},
	{14, 101},
	{140, 164},
	{220, 102},
	{1, 112},
	{237, 174},
	{13, 228},
	{185, 122},
	{163, 120},
	{178, 142},
	{157, 114},
}

// Set is a queryable hot-pixel table. The zero value is not usable; use
// Default or LoadFromFile.
type Set struct {
	m map[pixel]struct{}
}

// Default returns the Set built from the compiled-in hot-pixel table.
func Default() *Set {
	s := &Set{m: make(map[pixel]struct{}, len(defaultPixels))}
	for _, p := range defaultPixels {
		s.m[p] = struct{}{}
	}
	return s
}

// Contains reports whether (col, row) is a known hot pixel.
func (s *Set) Contains(col, row uint16) bool {
	_, ok := s.m[pixel{col, row}]
	return ok
}

// Len returns the number of pixels in the set.
func (s *Set) Len() int {
	return len(s.m)
}

// LoadFromFile reads a CSV hot-pixel override, one "col,row" pair per line
// with no header, replacing the compiled-in table entirely.
func LoadFromFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = 2

	s := &Set{m: make(map[pixel]struct{})}

	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		col, err := strconv.ParseUint(rec[0], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("hotpixel: invalid col %q: %w", rec[0], err)
		}
		row, err := strconv.ParseUint(rec[1], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("hotpixel: invalid row %q: %w", rec[1], err)
		}

		s.m[pixel{uint16(col), uint16(row)}] = struct{}{}
	}

	return s, nil
}
