package pipeline

// StepStatus is the state of a single parsing step
type StepStatus string

// Possible values for StepStatus
const (
	StepPending    StepStatus = "pending"
	StepProcessing StepStatus = "processing"
	StepComplete   StepStatus = "complete"
	StepError      StepStatus = "error"
)

// Step names reported to clients during a parse
const (
	StepConvert = "convert"
	StepExtract = "extract"
	StepStore   = "store"
)

// ParsingStep is one entry in the progress log returned with a parse
// response. Steps are ephemeral and never persisted.
type ParsingStep struct {
	Step    string     `json:"step"`
	Status  StepStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// StepLog accumulates parsing steps in order. Setting a step that is
// already present updates it in place instead of appending a duplicate.
type StepLog struct {
	steps []ParsingStep
}

// Set records the status (and optional message) for a named step
func (l *StepLog) Set(step string, status StepStatus, message string) {
	for i := range l.steps {
		if l.steps[i].Step == step {
			l.steps[i].Status = status
			l.steps[i].Message = message
			return
		}
	}
	l.steps = append(l.steps, ParsingStep{Step: step, Status: status, Message: message})
}

// Steps returns a copy of the recorded steps in insertion order
func (l *StepLog) Steps() []ParsingStep {
	out := make([]ParsingStep, len(l.steps))
	copy(out, l.steps)
	return out
}
