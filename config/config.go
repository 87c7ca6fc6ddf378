// Package config provides TOML-serializable settings models for each
// pipeline stage and a human-readable number parser for CLI-adjacent
// tooling built on top of this module.
//
// None of the stage packages (packet, sortstream, window, cluster) import
// this package themselves — each already exposes its own Settings type
// and functional options. config exists for a caller that wants to load
// or dump those settings as TOML, the on-disk format the reference
// tooling uses for its "settings dump" artifact.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// DecoderSettings configures the packet decoding stage.
type DecoderSettings struct {
	HotPixelFile string `toml:"hot_pixel_file,omitempty"`
}

// SorterSettings mirrors sortstream.Settings for TOML round-tripping.
type SorterSettings struct {
	BatchSize int `toml:"batch_size"`
	SkimOff   int `toml:"skim_off"`
}

// WindowSettings mirrors window.Settings for TOML round-tripping.
type WindowSettings struct {
	WindowSizeUS       uint64  `toml:"window_size_us"`
	PostTriggerPercent float64 `toml:"post_trigger_percent"`
	MaxHits            int     `toml:"max_hits"`
	MaxTriggers        int     `toml:"max_triggers"`
	MinEventHits       int     `toml:"min_event_hits"`
	RelativeToA        bool    `toml:"relative_toa"`
	WriteAll           bool    `toml:"write_all"`
	PreventOverlap     bool    `toml:"prevent_overlap"`
}

// ClusterSettings mirrors cluster.FreeRunningSettings for TOML
// round-tripping.
type ClusterSettings struct {
	MinClusterHits int    `toml:"min_cluster_hits"`
	MinClusterToT  uint32 `toml:"min_cluster_tot"`
	MaxPixelGap    uint32 `toml:"max_pixel_gap"`
	MaxToAGap      uint32 `toml:"max_toa_gap"`
	MinHitToT      uint32 `toml:"min_hit_tot"`
	ToAWindow      uint32 `toml:"toa_window"`
	RelativeToA    bool   `toml:"relative_toa"`
}

// TriggerClusterSettings mirrors cluster.TriggerSettings for TOML
// round-tripping.
type TriggerClusterSettings struct {
	MinClusterHits int    `toml:"min_cluster_hits"`
	MinClusterToT  uint32 `toml:"min_cluster_tot"`
	MaxPixelGap    uint32 `toml:"max_pixel_gap"`
	MaxToAGap      uint32 `toml:"max_toa_gap"`
	MinHitToT      uint32 `toml:"min_hit_tot"`
}

// DumpTOML writes settings (any of the *Settings types above, or a
// caller-defined struct with toml tags) to path as TOML, truncating any
// existing file. Every pipeline tool writes a settings dump like this
// alongside its output, so a run's exact configuration is always
// recoverable from its output directory.
func DumpTOML(path string, settings any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: creating %q: %w", path, err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("config: encoding TOML to %q: %w", path, err)
	}

	return nil
}

// LoadTOML reads a TOML file at path into settings (a pointer to one of
// the *Settings types above, or a caller-defined struct with toml tags).
func LoadTOML(path string, settings any) error {
	if _, err := toml.DecodeFile(path, settings); err != nil {
		return fmt.Errorf("config: decoding TOML from %q: %w", path, err)
	}
	return nil
}

// ParseHumanNumber parses a human-readable integer string with an
// optional k/K (thousand), m/M (million), or b/B (billion) suffix, e.g.
// "10k" -> 10000, "2.5M" -> 2500000. A bare numeric string with no
// suffix is parsed as a plain integer. Returns ok=false for anything
// that doesn't parse.
func ParseHumanNumber(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}

	last := s[len(s)-1]

	var multiplier float64
	switch {
	case last >= '0' && last <= '9':
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	case last == 'k' || last == 'K':
		multiplier = 1_000
	case last == 'm' || last == 'M':
		multiplier = 1_000_000
	case last == 'b' || last == 'B':
		multiplier = 1_000_000_000
	default:
		return 0, false
	}

	numeric := strings.TrimSpace(s[:len(s)-1])
	v, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, false
	}

	return int64(v * multiplier), true
}
