package metrics

import (
	"strconv"
	"time"

	"grimm.is/vecmatrix/internal/builder"
	"grimm.is/vecmatrix/internal/matrix"
	"grimm.is/vecmatrix/internal/report"
)

// SetStage records how many configs survived a pipeline stage.
func (r *Registry) SetStage(stage string, configs int) {
	r.ConfigsByStage.WithLabelValues(stage).Set(float64(configs))
}

// ObserveConfigs records the emulated and sandbox share of the final set.
func (r *Registry) ObserveConfigs(configs []matrix.TestConfig) {
	emulated, sandbox := 0, 0
	for _, c := range configs {
		if c.Emulated() {
			emulated++
		}
		if c.Sandbox {
			sandbox++
		}
	}
	r.SetStage(StageEmulated, emulated)
	r.SetStage(StageSandbox, sandbox)
}

// Outcome classifies a finished job.
func Outcome(res builder.JobResult) string {
	switch {
	case !res.BuildOK:
		return OutcomeBuildFailed
	case res.FailedTests() > 0:
		return OutcomeTestFailed
	default:
		return OutcomePassed
	}
}

// ObserveJob records one finished job. Safe for concurrent use.
func (r *Registry) ObserveJob(res builder.JobResult) {
	cfg := res.Config
	r.Jobs.WithLabelValues(cfg.Family, cfg.Toolchain, Outcome(res)).Inc()
	r.JobDuration.WithLabelValues(cfg.Family, strconv.FormatBool(cfg.Emulated())).Observe(res.Duration.Seconds())
	for _, t := range res.Tests {
		if t.Failed() {
			r.TestFailures.WithLabelValues(t.Binary).Inc()
		}
	}
}

// ObserveReport records the aggregated counts and total run time.
func (r *Registry) ObserveReport(rep *report.Report, elapsed time.Duration) {
	r.LogFindings.WithLabelValues(report.ErrorPattern).Set(float64(rep.Errors))
	r.LogFindings.WithLabelValues(report.WarningPattern).Set(float64(rep.Warnings))
	r.RunDuration.Set(elapsed.Seconds())
}
