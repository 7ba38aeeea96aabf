package worker

import "liteconvert/contracts"

// Event is the sealed set of notifications a run publishes. Events are
// delivered on the run's channel in emission order; the presentation side
// drains them on its own schedule.
type Event interface {
	event()
}

// ItemProgress reports one job's progress fraction in [0,1], monotonically
// non-decreasing within the job.
type ItemProgress struct {
	Index    int
	Fraction float64
}

// TotalProgress reports whole-batch progress, updated once per finished job.
type TotalProgress struct {
	Fraction float64
}

// Status carries human-readable progress text.
type Status struct {
	Text string
}

// ItemDone delivers a job's ConversionResult. In merged mode every
// contributing job receives the same shared result.
type ItemDone struct {
	Index  int
	Result contracts.ConversionResult
}

// ItemError reports a defect that escaped a conversion function. The job is
// counted as failed and the run continues.
type ItemError struct {
	Index   int
	Message string
}

// Done is the single terminal event of a run.
type Done struct {
	Summary contracts.WorkerSummary
}

func (ItemProgress) event()  {}
func (TotalProgress) event() {}
func (Status) event()        {}
func (ItemDone) event()      {}
func (ItemError) event()     {}
func (Done) event()          {}
