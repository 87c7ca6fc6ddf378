// Package errs defines the sentinel errors returned across the tpx3pipe
// pipeline, so callers can distinguish fatal conditions from the ones that
// only warrant a warning and continued processing.
package errs

import "errors"

var (
	// ErrShortPacket is returned when a .dat file's remaining byte count is
	// not a multiple of the raw packet size.
	ErrShortPacket = errors.New("tpx3pipe: packet stream not aligned to packet size")

	// ErrShortRecord is returned when a hits.bin or clusters.bin stream's
	// remaining byte count is not a multiple of the record size.
	ErrShortRecord = errors.New("tpx3pipe: record stream not aligned to record size")

	// ErrMissingPrerequisite is returned when a pipeline stage is asked to
	// run against a run directory that lacks the upstream file it depends on
	// (e.g. windowing without triggers.csv).
	ErrMissingPrerequisite = errors.New("tpx3pipe: missing prerequisite input for this stage")

	// ErrOutputExists is returned when a stage's output file already exists
	// in the run directory and overwrite was not requested; the run is
	// skipped rather than treated as fatal.
	ErrOutputExists = errors.New("tpx3pipe: output already exists")

	// ErrNegativeToA is returned when a requested ToA adjustment (relative
	// ToA or cluster offset) would make a written hit's ToA negative.
	ErrNegativeToA = errors.New("tpx3pipe: adjusted ToA is negative")

	// ErrUnexpectedNullHit is returned by the hits.bin reader when it
	// encounters an all-zero record outside of a cluster stream, where the
	// zero record has no meaning (it is reserved as the cluster terminator).
	ErrUnexpectedNullHit = errors.New("tpx3pipe: unexpected null hit in hits stream")

	// ErrInvalidSettings is returned when a stage's settings fail validation
	// (e.g. a zero window size, or post-trigger-percent outside (0, 100]).
	ErrInvalidSettings = errors.New("tpx3pipe: invalid settings")

	// ErrNoInputMatched is returned when a filename glob or run directory
	// pattern matches nothing.
	ErrNoInputMatched = errors.New("tpx3pipe: no input matched")
)
