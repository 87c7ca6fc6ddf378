package runset

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ariadne-exp/tpx3pipe/compress"
	"github.com/ariadne-exp/tpx3pipe/format"
	"github.com/ariadne-exp/tpx3pipe/internal/hash"
	"github.com/ariadne-exp/tpx3pipe/internal/pool"
)

// RunID derives a stable identifier for a run from its output directory
// name, for use as a map/cache key or log correlation id.
func RunID(run Run) uint64 {
	return hash.ID(run.OutputDir)
}

// ProgressFunc is the write-only, per-worker progress hook: each worker
// calls it only for its own run, never across runs, so implementations
// don't need to synchronize between concurrent calls for different runs.
// The default is a no-op.
type ProgressFunc func(run Run, message string)

// Orchestrator fans a run-processing function out across multiple runs,
// one goroutine per run, bounded to Parallelism concurrent workers.
type Orchestrator struct {
	// Parallelism bounds how many runs are processed at once. Zero
	// selects runtime.GOMAXPROCS(0), matching the reference tool's
	// default of hardware parallelism.
	Parallelism int
	// Overwrite, if set, removes an existing output root before
	// processing instead of skipping runs whose output directory already
	// exists.
	Overwrite bool
	// OnProgress receives progress updates from Process; nil is treated
	// as a no-op.
	OnProgress ProgressFunc
}

// Process runs work over every run in runs, writing each run's output
// under outputRoot/run.OutputDir. A run whose output directory already
// exists is skipped unless Overwrite is set, in which case outputRoot is
// removed in its entirety before any run starts. Each run's error aborts
// only that run; Process collects every error and returns them joined via
// errors.Join once all runs have been attempted, so that one run's
// failure never prevents others from completing.
func (o *Orchestrator) Process(runs []Run, outputRoot string, work func(run Run, outputDir string) error) error {
	if len(runs) == 0 {
		return nil
	}

	if o.Overwrite {
		if err := os.RemoveAll(outputRoot); err != nil {
			return fmt.Errorf("runset: removing existing output root %q: %w", outputRoot, err)
		}
	}

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return fmt.Errorf("runset: creating output root %q: %w", outputRoot, err)
	}

	parallelism := o.Parallelism
	if parallelism < 1 {
		parallelism = runtime.GOMAXPROCS(0)
	}

	report := o.OnProgress
	if report == nil {
		report = func(Run, string) {}
	}

	runFn := func(run Run) error {
		outputDir := filepath.Join(outputRoot, run.OutputDir)

		if _, err := os.Stat(outputDir); err == nil {
			report(run, "skipped: output directory already exists")
			return nil
		}

		return work(run, outputDir)
	}

	if len(runs) == 1 || parallelism == 1 {
		var errs []error
		for _, run := range runs {
			if err := runFn(run); err != nil {
				errs = append(errs, fmt.Errorf("run %q: %w", run.OutputDir, err))
			}
		}
		return errors.Join(errs...)
	}

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	errs := make([]error, len(runs))

	for i, run := range runs {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, r Run) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := runFn(r); err != nil {
				errs[idx] = fmt.Errorf("run %q: %w", r.OutputDir, err)
			}
		}(i, run)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// CompressDat archives one run's raw .dat source files into a single
// zstd-compressed stream written to w, for cold storage once a run has
// been fully decoded into hits.bin. Files are concatenated in the run's
// file-index order, matching how the decoder itself reads them.
func CompressDat(run Run, w io.Writer) error {
	codec, err := compress.CreateCodec(format.CompressionZstd, "run archive")
	if err != nil {
		return fmt.Errorf("runset: creating archive codec: %w", err)
	}

	bb := pool.GetRunBuffer()
	defer pool.PutRunBuffer(bb)

	for _, f := range run.Files {
		data, err := readFileIntoBuffer(bb, f.Path)
		if err != nil {
			return fmt.Errorf("runset: reading %q: %w", f.Path, err)
		}

		compressed, err := codec.Compress(data)
		if err != nil {
			return fmt.Errorf("runset: compressing %q: %w", f.Path, err)
		}

		if _, err := w.Write(compressed); err != nil {
			return fmt.Errorf("runset: writing archived %q: %w", f.Path, err)
		}
	}

	return nil
}

// readFileIntoBuffer reads path's full contents into bb, reusing its
// backing array across calls instead of allocating a fresh slice per file.
func readFileIntoBuffer(bb *pool.ByteBuffer, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	bb.Reset()
	bb.ExtendOrGrow(int(info.Size()))
	if _, err := io.ReadFull(f, bb.Bytes()); err != nil {
		return nil, err
	}

	return bb.Bytes(), nil
}
