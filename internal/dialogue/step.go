package dialogue

// Step is one stage of the intake sequence. The zero value is StepTitle
// so a fresh session starts at the first field.
type Step int

const (
	StepTitle Step = iota
	StepType
	StepDate
	StepCount
	StepLocation
	StepAttachment
	StepNote
	// StepConfirm stages the draft for explicit confirmation.
	StepConfirm
	// StepFieldMenu is the random-access menu in edit mode; it sits
	// outside the linear sequence.
	StepFieldMenu
)

var stepNames = map[Step]string{
	StepTitle:      "title",
	StepType:       "type",
	StepDate:       "date",
	StepCount:      "count",
	StepLocation:   "location",
	StepAttachment: "attachment",
	StepNote:       "note",
	StepConfirm:    "confirm",
	StepFieldMenu:  "field_menu",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// Next returns the following data-entry step, ending at StepConfirm.
func (s Step) Next() Step {
	if s >= StepConfirm {
		return StepConfirm
	}
	return s + 1
}

// Prev returns the preceding step; back is undefined at the first step
// and the caller handles that case.
func (s Step) Prev() Step {
	if s <= StepTitle {
		return StepTitle
	}
	return s - 1
}

// fieldSteps lists the steps reachable from the edit field menu, in
// menu order.
var fieldSteps = []Step{
	StepTitle,
	StepType,
	StepDate,
	StepCount,
	StepLocation,
	StepAttachment,
	StepNote,
}

// stepByName resolves a field-menu callback back to its step.
func stepByName(name string) (Step, bool) {
	for step, n := range stepNames {
		if n == name {
			return step, true
		}
	}
	return 0, false
}
