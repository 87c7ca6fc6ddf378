package runset

import (
	"fmt"
	"sort"
	"time"

	"github.com/ariadne-exp/tpx3pipe/logging"
)

// Run is one contiguous sequence of raw .dat files sharing a run name and
// device, starting from FileInRun == 1, collected by GroupRuns.
type Run struct {
	Name      string // e.g. "myrun"; empty if the filename carried no run name
	Device    string
	StartTime time.Time
	Files     []FileInfo
	// OutputDir is this run's output directory name, formatted as
	// "YYYY-MM-DD_HH-MM-SS[_name]"; relative to whatever output root the
	// caller chooses.
	OutputDir string
}

// GroupRuns sorts infos by start time, then by file index, and groups contiguous runs: a
// run starts at FileInRun == 1 and continues while the next file in
// sorted order has FileInRun incrementing by exactly one and shares the
// same run name and device. A file with FileInRun != 1 that doesn't
// follow a run in progress can't be the start of a run and is dropped,
// with a warning logged, matching the reference tool's "Unexpected first
// file in run" behaviour. log may be nil, in which case logging.NoOp() is
// used.
func GroupRuns(infos []FileInfo, log logging.Logger) []Run {
	if log == nil {
		log = logging.NoOp()
	}

	sorted := make([]FileInfo, len(infos))
	copy(sorted, infos)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].StartTime.Equal(sorted[j].StartTime) {
			return sorted[i].StartTime.Before(sorted[j].StartTime)
		}
		return sorted[i].FileInRun < sorted[j].FileInRun
	})

	var runs []Run

	i := 0
	for i < len(sorted) {
		info := sorted[i]

		if info.FileInRun != 1 {
			log.Warnf("runset: unexpected first file in run: %q", info.Path)
			i++
			continue
		}

		run := Run{
			Name:      info.RunName,
			Device:    info.Device,
			StartTime: info.StartTime,
			Files:     []FileInfo{info},
		}

		for i+1 < len(sorted) {
			next := sorted[i+1]
			expected := run.Files[len(run.Files)-1].FileInRun + 1
			if next.FileInRun == expected && next.RunName == run.Name && next.Device == run.Device {
				run.Files = append(run.Files, next)
				i++
				continue
			}
			break
		}

		run.OutputDir = outputDirName(run)
		runs = append(runs, run)
		i++
	}

	return runs
}

func outputDirName(r Run) string {
	datetime := r.StartTime.Format("2006-01-02_15-04-05")
	if r.Name == "" {
		return datetime
	}
	return fmt.Sprintf("%s_%s", datetime, r.Name)
}
