package poll

import (
	"strings"

	"github.com/sells-group/valence-cli/internal/model"
)

// StepState is the display state of one extraction step.
type StepState string

const (
	StepComplete StepState = "complete"
	StepCurrent  StepState = "current"
	StepPending  StepState = "pending"
)

// Step is one stage of the extraction pipeline.
type Step struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	State       StepState `json:"state"`
}

var extractionSteps = []Step{
	{ID: "parsing", Label: "PDF Parsed", Description: "Document structure analyzed"},
	{ID: "extracting", Label: "RP Content Extracted", Description: "Restricted payment provisions identified"},
	{ID: "answering", Label: "Answering Questions", Description: "Analyzing each provision"},
	{ID: "storing", Label: "Storing Results", Description: "Saving extracted data"},
}

// Steps derives the step checklist from a status. The backend's free-text
// current_step is matched against step ids; any mention of "question" means
// the answering step.
func Steps(s model.DealStatus) []Step {
	current := currentStepIndex(s.CurrentStep)

	out := make([]Step, len(extractionSteps))
	for i, step := range extractionSteps {
		switch {
		case s.Status == model.StatusComplete:
			step.State = StepComplete
		case s.Status == model.StatusError:
			step.State = StepPending
		case i < current:
			step.State = StepComplete
		case i == current, current == -1 && i == 0 && s.Status == model.StatusExtracting:
			step.State = StepCurrent
		default:
			step.State = StepPending
		}
		out[i] = step
	}
	return out
}

func currentStepIndex(label string) int {
	if label == "" {
		return -1
	}
	label = strings.ToLower(label)
	for i, step := range extractionSteps {
		if strings.Contains(label, step.ID) || (step.ID == "answering" && strings.Contains(label, "question")) {
			return i
		}
	}
	return -1
}
