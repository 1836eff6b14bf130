package publish

import "time"

// Report is the sole externally visible result of a pipeline run: the
// ordered step results plus a derived overall status. Assembled exactly
// once per invocation and immutable afterwards.
type Report struct {
	Name      string
	Connector string
	Results   []StepResult
	StartedAt time.Time
	EndedAt   time.Time
}

func newReport(pctx *ConnectorContext, started time.Time, results []StepResult) *Report {
	return &Report{
		Name:      "PUBLISH RESULTS",
		Connector: pctx.ConnectorName,
		Results:   results,
		StartedAt: started,
		EndedAt:   time.Now(),
	}
}

// Status derives the overall outcome: failure if any step failed,
// success otherwise. Skipped steps never fail a report.
func (r *Report) Status() StepStatus {
	for _, res := range r.Results {
		if res.Status == StatusFailure {
			return StatusFailure
		}
	}
	return StatusSuccess
}

// Failed reports whether any step in the run failed.
func (r *Report) Failed() bool {
	return r.Status() == StatusFailure
}
