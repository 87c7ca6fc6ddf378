// Package tpx3pipe provides thin top-level convenience wrappers around the
// packet/sortstream/window/cluster/runset packages, the way the teacher's
// mebo.go wraps its blob package for the common-case caller.
//
// Each function here performs a complete pipeline stage end to end against
// plain file paths; for anything beyond the common case (custom settings
// composition, streaming a non-file source, inspecting intermediate
// state) use the stage packages directly.
package tpx3pipe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ariadne-exp/tpx3pipe/cluster"
	"github.com/ariadne-exp/tpx3pipe/format"
	"github.com/ariadne-exp/tpx3pipe/hotpixel"
	"github.com/ariadne-exp/tpx3pipe/logging"
	"github.com/ariadne-exp/tpx3pipe/packet"
	"github.com/ariadne-exp/tpx3pipe/record"
	"github.com/ariadne-exp/tpx3pipe/runset"
	"github.com/ariadne-exp/tpx3pipe/sortstream"
	"github.com/ariadne-exp/tpx3pipe/window"
)

// DecodeStats summarizes one DecodeRun call, mirroring the counters the
// reference tool prints to its progress bar.
type DecodeStats struct {
	PacketsParsed    uint64
	HitsParsed       uint64
	TriggersParsed   uint64
	HotPixelsRemoved uint64
}

// DecodeRun decodes every raw .dat file in run, in file-index order, into
// outputDir/hits.bin (sorted via a bounded streaming sort) and
// outputDir/triggers.csv. hotPixels may be nil, in which case
// hotpixel.Default() is used; log may be nil, in which case decoding
// proceeds silently.
func DecodeRun(run runset.Run, outputDir string, hotPixels *hotpixel.Set, log logging.Logger) (DecodeStats, error) {
	if hotPixels == nil {
		hotPixels = hotpixel.Default()
	}
	if log == nil {
		log = logging.NoOp()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return DecodeStats{}, fmt.Errorf("tpx3pipe: creating output dir %q: %w", outputDir, err)
	}

	hitsFile, err := os.Create(filepath.Join(outputDir, "hits.bin"))
	if err != nil {
		return DecodeStats{}, fmt.Errorf("tpx3pipe: creating hits.bin: %w", err)
	}
	defer hitsFile.Close()

	enc := record.NewEncoder(hitsFile)
	sorter, err := sortstream.New(func(hits []record.Hit) error {
		return enc.WriteHits(hits)
	})
	if err != nil {
		return DecodeStats{}, fmt.Errorf("tpx3pipe: building sorter: %w", err)
	}

	decoder := packet.NewDecoder(hotPixels, log)
	var triggers []record.Trigger

	for _, f := range run.Files {
		if err := decodeOneFile(f.Path, decoder, sorter, &triggers); err != nil {
			return DecodeStats{}, fmt.Errorf("tpx3pipe: decoding %q: %w", f.Path, err)
		}
	}

	if err := sorter.Close(); err != nil {
		return DecodeStats{}, fmt.Errorf("tpx3pipe: flushing sorter: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return DecodeStats{}, fmt.Errorf("tpx3pipe: flushing hits.bin: %w", err)
	}

	triggersFile, err := os.Create(filepath.Join(outputDir, "triggers.csv"))
	if err != nil {
		return DecodeStats{}, fmt.Errorf("tpx3pipe: creating triggers.csv: %w", err)
	}
	defer triggersFile.Close()

	if err := record.WriteTriggersCSV(triggersFile, triggers); err != nil {
		return DecodeStats{}, fmt.Errorf("tpx3pipe: writing triggers.csv: %w", err)
	}

	return DecodeStats{
		PacketsParsed:    decoder.PacketsParsed,
		HitsParsed:       decoder.HitsParsed,
		TriggersParsed:   decoder.TriggersParsed,
		HotPixelsRemoved: decoder.HotPixelsRemoved,
	}, nil
}

func decodeOneFile(path string, decoder *packet.Decoder, sorter *sortstream.Sorter, triggers *[]record.Trigger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := packet.NewReader(f)
	if err != nil {
		return err
	}

	for raw, err := range r.Packets() {
		if err != nil {
			return err
		}

		result := decoder.DecodePacket(raw)
		if result.Hit != nil {
			if err := sorter.Push(*result.Hit); err != nil {
				return err
			}
		}
		if result.Trigger != nil {
			*triggers = append(*triggers, *result.Trigger)
		}
	}

	return nil
}

// clusterTiming computes a cluster's start time and duration in nanoseconds
// from its first and last hit's ToA, matching the reference tool's
// clusters.csv columns. hits must already be in ToA order.
func clusterTiming(hits []record.Hit) (startNS, durationNS float64) {
	if len(hits) == 0 {
		return 0, 0
	}
	startNS = float64(hits[0].ToA) * format.TOAClockToNS
	durationNS = float64(hits[len(hits)-1].ToA-hits[0].ToA) * format.TOAClockToNS
	return startNS, durationNS
}

// WindowRun reads hitsPath and triggersPath (as produced by DecodeRun) and
// writes the per-trigger windowed events to outputDir/trigger_events.bin
// (a clusters.bin-shaped stream: one terminator-delimited hit group per
// trigger) and outputDir/trigger_events.csv, applying settings. It returns
// the count of triggers skipped for window overlap when
// settings.PreventOverlap is set.
func WindowRun(hitsPath, triggersPath, outputDir string, opts ...window.Option) (int, error) {
	hitsFile, err := os.Open(hitsPath)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: opening %q: %w", hitsPath, err)
	}
	defer hitsFile.Close()

	triggersFile, err := os.Open(triggersPath)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: opening %q: %w", triggersPath, err)
	}
	defer triggersFile.Close()

	triggers, err := record.ReadTriggersCSV(triggersFile)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: reading %q: %w", triggersPath, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("tpx3pipe: creating output dir %q: %w", outputDir, err)
	}

	eventsBin, err := os.Create(filepath.Join(outputDir, "trigger_events.bin"))
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: creating trigger_events.bin: %w", err)
	}
	defer eventsBin.Close()

	decoder := record.NewDecoder(hitsFile)
	w, err := window.New(decoder, opts...)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: building windower: %w", err)
	}

	var metadata []record.ClusterMetadata
	offset := 0

	overlapsIgnored, err := w.Run(triggers, func(e window.Event) error {
		if err := record.WriteCluster(eventsBin, e.Hits, 0); err != nil {
			return err
		}
		meta := e.Meta
		meta.Offset = offset
		metadata = append(metadata, meta)
		offset += (len(e.Hits) + 1) * 16
		return nil
	})
	if err != nil {
		return overlapsIgnored, fmt.Errorf("tpx3pipe: windowing: %w", err)
	}

	metaFile, err := os.Create(filepath.Join(outputDir, "trigger_events.csv"))
	if err != nil {
		return overlapsIgnored, fmt.Errorf("tpx3pipe: creating trigger_events.csv: %w", err)
	}
	defer metaFile.Close()

	if err := record.WriteClusterMetadataCSV(metaFile, metadata); err != nil {
		return overlapsIgnored, fmt.Errorf("tpx3pipe: writing trigger_events.csv: %w", err)
	}

	return overlapsIgnored, nil
}

// ClusterFreeRunning clusters an entire hits.bin stream with the
// sliding-buffer flood fill and writes outputDir/clusters.bin and
// outputDir/clusters.csv.
func ClusterFreeRunning(hitsPath, outputDir string, opts ...cluster.FreeRunningOption) error {
	hitsFile, err := os.Open(hitsPath)
	if err != nil {
		return fmt.Errorf("tpx3pipe: opening %q: %w", hitsPath, err)
	}
	defer hitsFile.Close()

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("tpx3pipe: creating output dir %q: %w", outputDir, err)
	}

	clustersBin, err := os.Create(filepath.Join(outputDir, "clusters.bin"))
	if err != nil {
		return fmt.Errorf("tpx3pipe: creating clusters.bin: %w", err)
	}
	defer clustersBin.Close()

	decoder := record.NewDecoder(hitsFile)
	fr, err := cluster.NewFreeRunning(decoder, opts...)
	if err != nil {
		return fmt.Errorf("tpx3pipe: building free-running clusterer: %w", err)
	}

	var metadata []record.ClusterMetadata
	offset := 0
	event := 0

	for {
		hits, err := fr.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("tpx3pipe: clustering: %w", err)
		}

		if err := record.WriteCluster(clustersBin, hits, 0); err != nil {
			return fmt.Errorf("tpx3pipe: writing cluster: %w", err)
		}

		startTimeNS, durationNS := clusterTiming(hits)
		metadata = append(metadata, record.ClusterMetadata{
			Event:    event,
			Time:     startTimeNS,
			Duration: durationNS,
			Hits:     len(hits),
			SumToT:   record.SumToT(hits),
			Offset:   offset,
		})
		offset += (len(hits) + 1) * 16
		event++
	}

	metaFile, err := os.Create(filepath.Join(outputDir, "clusters.csv"))
	if err != nil {
		return fmt.Errorf("tpx3pipe: creating clusters.csv: %w", err)
	}
	defer metaFile.Close()

	return record.WriteClusterMetadataCSV(metaFile, metadata)
}

// ClusterTriggerEvents reads the windowed events from eventsBinPath /
// eventsCSVPath (as produced by WindowRun) and clusters each one with the
// finite-event flood fill, emitting exactly one cluster per trigger — with
// the trigger's original Event index carried over, not a new counter —
// when and only when clustering resolved to exactly one accepted cluster.
// It returns the count of triggers that did emit a cluster.
func ClusterTriggerEvents(eventsBinPath, eventsCSVPath, outputDir string, settings cluster.TriggerSettings) (int, error) {
	eventsBin, err := os.Open(eventsBinPath)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: opening %q: %w", eventsBinPath, err)
	}
	defer eventsBin.Close()

	eventsCSV, err := os.Open(eventsCSVPath)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: opening %q: %w", eventsCSVPath, err)
	}
	defer eventsCSV.Close()

	meta, err := record.ReadClusterMetadataCSV(eventsCSV)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: reading %q: %w", eventsCSVPath, err)
	}

	events, err := record.ReadAllClusters(eventsBin)
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: reading %q: %w", eventsBinPath, err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return 0, fmt.Errorf("tpx3pipe: creating output dir %q: %w", outputDir, err)
	}

	clustersBin, err := os.Create(filepath.Join(outputDir, "trigger_clusters.bin"))
	if err != nil {
		return 0, fmt.Errorf("tpx3pipe: creating trigger_clusters.bin: %w", err)
	}
	defer clustersBin.Close()

	var outMeta []record.ClusterMetadata
	offset := 0
	emitted := 0

	for i, hits := range events {
		clusters := cluster.ClusterTriggerEvent(hits, settings)
		if len(clusters) != 1 {
			continue
		}

		candidate := clusters[0]
		if err := record.WriteCluster(clustersBin, candidate, 0); err != nil {
			return emitted, fmt.Errorf("tpx3pipe: writing trigger cluster: %w", err)
		}

		triggerEvent := i
		if i < len(meta) {
			triggerEvent = meta[i].Event
		}

		startTimeNS, durationNS := clusterTiming(candidate)
		outMeta = append(outMeta, record.ClusterMetadata{
			Event:    triggerEvent,
			Time:     startTimeNS,
			Duration: durationNS,
			Hits:     len(candidate),
			SumToT:   record.SumToT(candidate),
			Offset:   offset,
		})
		offset += (len(candidate) + 1) * 16
		emitted++
	}

	metaFile, err := os.Create(filepath.Join(outputDir, "trigger_clusters.csv"))
	if err != nil {
		return emitted, fmt.Errorf("tpx3pipe: creating trigger_clusters.csv: %w", err)
	}
	defer metaFile.Close()

	if err := record.WriteClusterMetadataCSV(metaFile, outMeta); err != nil {
		return emitted, fmt.Errorf("tpx3pipe: writing trigger_clusters.csv: %w", err)
	}

	return emitted, nil
}
