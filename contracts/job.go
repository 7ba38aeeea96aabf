package contracts

import "time"

// JobSpec is one conversion request. It is immutable once constructed and
// consumed by exactly one conversion call; in merged mode it only contributes
// its input path to the shared merge.
type JobSpec struct {
	InputPath     string
	Mode          Mode
	OutputDir     string
	NamingPattern string
	Policy        CollisionPolicy

	// Options, interpreted per mode.
	PreserveOrientation bool   // apply EXIF orientation to pixel data
	Quality             int    // JPEG quality, 1-100
	DPI                 int    // PDF rasterization, floored at 72
	PageRange           string // e.g. "1-3,5"; empty means all pages
	PageSize            PageSize
	Fit                 FitMode
	MarginsMM           int
}

// PDFLayout carries the page geometry options of an images-to-PDF job.
type PDFLayout struct {
	PageSize  PageSize
	Fit       FitMode
	MarginsMM int
	Quality   int
}

// Layout extracts the PDF page geometry options from the job.
func (j JobSpec) Layout() PDFLayout {
	return PDFLayout{
		PageSize:  j.PageSize,
		Fit:       j.Fit,
		MarginsMM: j.MarginsMM,
		Quality:   j.Quality,
	}
}

// ConversionResult is the outcome of one conversion call. Success implies
// Errors is empty; a failed multi-page job may still list the outputs that
// were produced before pages started failing.
type ConversionResult struct {
	Success bool
	Outputs []string
	Errors  []string
	Elapsed time.Duration
	Pages   int
}

// WorkerSummary is the terminal aggregate of one batch run. Jobs skipped by
// cancellation count toward Total only.
type WorkerSummary struct {
	Total   int
	OK      int
	Failed  int
	Elapsed time.Duration
}

// ProgressFunc receives item progress in [0,1]. A nil func is a valid sink.
type ProgressFunc func(fraction float64)

// Report forwards a progress value, tolerating a nil sink.
func (f ProgressFunc) Report(fraction float64) {
	if f != nil {
		f(fraction)
	}
}

// CancelFunc reports whether the run has been cancelled. Conversions poll it
// at safe points (between pages); a nil func never cancels.
type CancelFunc func() bool

// Cancelled polls the flag, tolerating a nil func.
func (f CancelFunc) Cancelled() bool {
	return f != nil && f()
}
