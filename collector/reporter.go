package collector

import "github.com/Guliveer/vitalis/vmstats/models"

// Reporter is the single path from collectors to the sink. It stamps every
// sample with the process id and passes it on without waiting, retrying or
// recovering: a sink that panics takes down the calling goroutine.
type Reporter struct {
	pid    int
	report models.ReportFunc
}

// NewReporter wraps report for the given process id.
func NewReporter(pid int, report models.ReportFunc) *Reporter {
	return &Reporter{pid: pid, report: report}
}

// Report forwards one sample.
func (r *Reporter) Report(typ models.SampleType, metrics interface{}) {
	r.report(typ, r.pid, metrics)
}

// ReportError forwards a failed read of the given family as a sample_error.
func (r *Reporter) ReportError(family string, err error) {
	r.Report(models.TypeSampleError, models.SampleError{Type: family, Error: err.Error()})
}
