package compact

// Phase names a stage of a compaction run.
type Phase string

const (
	PhaseScanning  Phase = "scanning"
	PhaseParsing   Phase = "parsing"
	PhaseFinishing Phase = "finishing"
	PhaseEmpty     Phase = "empty"
)

// Progress counts files, not bytes.
type Progress struct {
	Current int   `json:"current"`
	Total   int   `json:"total"`
	Phase   Phase `json:"phase"`
}

// ProgressReporter provides callbacks for reporting compaction progress.
// Implementations can display progress bars, log messages, or remain silent.
type ProgressReporter interface {
	// OnProgress is called at the start of a run, after each batch and
	// before finalizing.
	OnProgress(p Progress)

	// OnFileSkipped is called when a file could not be read or extracted.
	OnFileSkipped(path string, err error)

	// OnComplete is called when a run produced a result.
	OnComplete(result *Result)
}

// NoOpProgressReporter is a progress reporter that does nothing.
// Used when progress reporting is disabled (e.g., --quiet flag).
type NoOpProgressReporter struct{}

func (n *NoOpProgressReporter) OnProgress(p Progress)                {}
func (n *NoOpProgressReporter) OnFileSkipped(path string, err error) {}
func (n *NoOpProgressReporter) OnComplete(result *Result)            {}

// ProgressFunc adapts a progress callback to ProgressReporter.
type ProgressFunc func(p Progress)

func (f ProgressFunc) OnProgress(p Progress)                { f(p) }
func (f ProgressFunc) OnFileSkipped(path string, err error) {}
func (f ProgressFunc) OnComplete(result *Result)            {}
