// Package worker owns batch execution: it runs a queue of conversion jobs on
// one background goroutine, fans merged-PDF batches into a single conversion,
// and publishes typed events consumed by the presentation layer.
package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"liteconvert/contracts"
	"liteconvert/converter"
	"liteconvert/files_manager"
)

type convertFunc func(contracts.JobSpec, contracts.ProgressFunc, contracts.CancelFunc) contracts.ConversionResult

// Worker executes one batch. A Worker is single-use: construct, consume
// Events, run once.
type Worker struct {
	jobs      []contracts.JobSpec
	events    chan Event
	cancelled atomic.Bool
	runID     string
	log       zerolog.Logger
	convert   convertFunc
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger attaches a logger; the default is a no-op logger so library use
// stays silent.
func WithLogger(log zerolog.Logger) Option {
	return func(w *Worker) { w.log = log }
}

// New creates a Worker over a snapshot of jobs. The job list is read-only for
// the run's duration.
func New(jobs []contracts.JobSpec, opts ...Option) *Worker {
	w := &Worker{
		jobs:    append([]contracts.JobSpec(nil), jobs...),
		events:  make(chan Event),
		runID:   uuid.NewString(),
		log:     zerolog.Nop(),
		convert: converter.ConvertJob,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns the run's event stream. It is closed after the Done event.
func (w *Worker) Events() <-chan Event { return w.events }

// Cancel requests cooperative cancellation. Work already in flight finishes;
// nothing new starts.
func (w *Worker) Cancel() { w.cancelled.Store(true) }

// Cancelled reports whether cancellation was requested.
func (w *Worker) Cancelled() bool { return w.cancelled.Load() }

// Run executes the batch and blocks until the Done event has been consumed.
// Call it on a background goroutine; the event channel is unbuffered so
// emission order equals delivery order.
func (w *Worker) Run() {
	defer close(w.events)

	start := time.Now()
	total := len(w.jobs)
	log := w.log.With().Str("run_id", w.runID).Int("jobs", total).Logger()
	log.Info().Msg("run started")

	if w.hasMergedJob() && w.runMerged(log, start) {
		return
	}

	ok, failedCount := 0, 0
	for i, job := range w.jobs {
		if w.Cancelled() {
			log.Info().Int("next_job", i).Msg("run cancelled")
			break
		}
		w.emit(Status{Text: fmt.Sprintf("Processing %s…", filepath.Base(job.InputPath))})

		res, defect := w.runJob(i, job)
		if defect != "" {
			failedCount++
			log.Error().Int("job", i).Str("defect", defect).Msg("job defect")
			w.emit(ItemError{Index: i, Message: defect})
		} else {
			w.emit(ItemDone{Index: i, Result: res})
			if res.Success {
				ok++
			} else {
				failedCount++
				log.Warn().Int("job", i).Strs("errors", res.Errors).Msg("job failed")
			}
		}
		w.emit(TotalProgress{Fraction: float64(i+1) / float64(total)})
	}

	w.finish(log, contracts.WorkerSummary{
		Total:   total,
		OK:      ok,
		Failed:  failedCount,
		Elapsed: time.Since(start),
	})
}

// runJob executes one conversion behind a defect barrier: anything the
// conversion function did not catch itself is reported instead of crashing
// the run.
func (w *Worker) runJob(idx int, job contracts.JobSpec) (res contracts.ConversionResult, defect string) {
	defer func() {
		if r := recover(); r != nil {
			defect = fmt.Sprintf("%v", r)
		}
	}()
	progress := contracts.ProgressFunc(func(p float64) {
		w.emit(ItemProgress{Index: idx, Fraction: clamp01(p)})
	})
	res = w.convert(job, progress, w.Cancelled)
	return res, ""
}

func (w *Worker) hasMergedJob() bool {
	for _, job := range w.jobs {
		if job.Mode == contracts.ImagesToPDFMerged {
			return true
		}
	}
	return false
}

// runMerged treats the whole batch as one fan-in unit: all image inputs merge
// into a single PDF shaped by the first image job's pattern, policy and
// layout. Every contributing job receives the same result. Returns false when
// the batch holds no image inputs at all, in which case per-item processing
// takes over and the merged jobs fail individually.
func (w *Worker) runMerged(log zerolog.Logger, start time.Time) bool {
	var imageIdx []int
	for i, job := range w.jobs {
		if files_manager.IsImage(job.InputPath) {
			imageIdx = append(imageIdx, i)
		}
	}
	if len(imageIdx) == 0 {
		return false
	}

	first := w.jobs[imageIdx[0]]
	ctx := files_manager.NamingContext{InputPath: first.InputPath, Mode: first.Mode}
	stem := files_manager.ExpandPattern(first.NamingPattern, ctx)
	if stem == "" {
		stem = files_manager.SourceStem(first.InputPath) + "_merged"
	}
	out := files_manager.BuildOutputPath(first.OutputDir, stem, ".pdf")
	out = files_manager.ResolveCollision(out, first.Policy)

	var res contracts.ConversionResult
	if first.Policy == contracts.Skip && fileExists(out) {
		res = contracts.ConversionResult{
			Success: true,
			Outputs: []string{out},
			Pages:   len(imageIdx),
		}
	} else {
		w.emit(Status{Text: fmt.Sprintf("Merging %d images into a single PDF…", len(imageIdx))})
		inputs := make([]string, len(imageIdx))
		for i, idx := range imageIdx {
			inputs[i] = w.jobs[idx].InputPath
		}
		res = converter.MergeImagesToPDF(inputs, out, first.Layout())
	}

	total := len(w.jobs)
	ok, failedCount := 0, 0
	for i, job := range w.jobs {
		if files_manager.IsImage(job.InputPath) {
			w.emit(ItemProgress{Index: i, Fraction: 1.0})
			w.emit(ItemDone{Index: i, Result: res})
			if res.Success {
				ok++
			} else {
				failedCount++
			}
		} else {
			// Non-image jobs cannot contribute to the merge; they get an
			// explicit skipped outcome rather than vanishing from the run.
			failedCount++
			w.emit(ItemDone{Index: i, Result: contracts.ConversionResult{
				Errors: []string{fmt.Sprintf("skipped: %s is not an image input for the merged PDF", filepath.Base(job.InputPath))},
			}})
		}
		w.emit(TotalProgress{Fraction: float64(i+1) / float64(total)})
	}

	if !res.Success {
		log.Warn().Strs("errors", res.Errors).Msg("merge failed")
	}
	w.finish(log, contracts.WorkerSummary{
		Total:   total,
		OK:      ok,
		Failed:  failedCount,
		Elapsed: time.Since(start),
	})
	return true
}

func (w *Worker) finish(log zerolog.Logger, summary contracts.WorkerSummary) {
	log.Info().
		Int("ok", summary.OK).
		Int("failed", summary.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("run finished")
	w.emit(Done{Summary: summary})
}

func (w *Worker) emit(ev Event) {
	w.events <- ev
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
