package domain

// Report kinds published to the sink topic.
const (
	ReportDegreeDay  = "degree_day"
	ReportAnomaly    = "anomaly"
	ReportRunDelta   = "run_delta"
	ReportRunSummary = "run_summary"
	ReportSeason     = "season"
)

// Report is one message for the downstream report consumer: a typed payload
// (DegreeDayRecord, Anomaly, RunDelta, RunSummary, or SeasonCurve) tagged with the run it
// describes. The sink adapter owns serialization.
type Report struct {
	Kind    string
	Model   string
	RunID   string
	Payload any
}
