// Package outwriter has output and writer logic.
package outwriter

import (
	"io"
	"os"
	"time"

	"github.com/huangsam/folio/core/egg"
	"github.com/huangsam/folio/internal/contract"
	"github.com/huangsam/folio/schema"
)

// OutWriter provides a unified interface for all output operations.
// Results go to the configured output file or out; notices go to errOut.
type OutWriter struct {
	out    io.Writer
	errOut io.Writer
	now    func() time.Time
}

// NewOutWriter creates an output writer on stdout and stderr.
func NewOutWriter() *OutWriter {
	return &OutWriter{out: os.Stdout, errOut: os.Stderr, now: time.Now}
}

// NewOutWriterTo creates an output writer on the given streams.
func NewOutWriterTo(out, errOut io.Writer) *OutWriter {
	return &OutWriter{out: out, errOut: errOut, now: time.Now}
}

// WriteStats prints a stats result using the configured output format.
func (ow *OutWriter) WriteStats(result schema.StatsResult, cfg *contract.Config, duration time.Duration) error {
	return ow.writeStatsResult(result, cfg, duration)
}

// WriteStatsError explains a failed stats request.
func (ow *OutWriter) WriteStatsError(identity string, err error) {
	ow.writeStatsError(identity, err)
}

// WriteFetchRuns prints recorded stats requests using the configured output format.
func (ow *OutWriter) WriteFetchRuns(runs []schema.FetchRun, cfg *contract.Config) error {
	return ow.writeFetchRuns(runs, cfg)
}

// WriteEggState prints chapter discovery progress using the configured output format.
func (ow *OutWriter) WriteEggState(state egg.State, cfg *contract.Config) error {
	return ow.writeEggState(state, cfg)
}

// WriteChapter announces a freshly triggered chapter.
func (ow *OutWriter) WriteChapter(active egg.ActiveChapter, progress egg.Progress, cfg *contract.Config) {
	ow.writeChapter(active, progress, cfg)
}
