package dialogue

import (
	"fmt"
	"strings"

	"github.com/amirulm/aidlog/internal/domain/activity"
)

const (
	labelSkip   = "Skip"
	labelBack   = "Back"
	labelCancel = "Cancel"
)

// navButtons is the reply keyboard shown at every data-entry step.
var navButtons = [][]string{{labelSkip, labelBack, labelCancel}}

// promptFor builds the prompt text and keyboard for a step.
func promptFor(step Step, sess *Session) (string, *SendOptions) {
	opts := &SendOptions{ReplyButtons: navButtons}

	var text string
	switch step {
	case StepTitle:
		text = "What is the activity title?"
	case StepType:
		rows := make([][]Button, 0, len(activity.KnownTypes()))
		for _, t := range activity.KnownTypes() {
			rows = append(rows, []Button{{Label: string(t), Data: "type:" + string(t)}})
		}
		opts.InlineRows = rows
		text = "What kind of activity? Pick one or type your own."
	case StepDate:
		text = "When did it happen? Send a date like 2026-08-30 14:00, or \"now\"."
	case StepCount:
		text = "How many were reached or distributed? A number, or describe it."
	case StepLocation:
		opts.LocationButton = true
		text = "Where was it? Share your location or type a place name."
	case StepAttachment:
		text = "Attach a photo or document, or skip."
	case StepNote:
		text = "Any additional note?"
	}

	if sess.Mode == ModeEdit && step != StepConfirm {
		text += "\nCurrent: " + fieldValue(&sess.Draft, step)
	}
	return text, opts
}

// fieldValue renders the draft's value for one step, for edit prompts
// and the field menu.
func fieldValue(rec *activity.Record, step Step) string {
	switch step {
	case StepTitle:
		return emptyDash(rec.Title)
	case StepType:
		return emptyDash(string(rec.Type))
	case StepDate:
		if rec.OccurredAtRaw != "" {
			return rec.OccurredAtRaw
		}
		if rec.OccurredAt.IsZero() {
			return "—"
		}
		return rec.OccurredAt.Format("2006-01-02 15:04")
	case StepCount:
		if !rec.Count.Known() {
			return "—"
		}
		return rec.Count.String()
	case StepLocation:
		return emptyDash(rec.Location)
	case StepAttachment:
		if rec.Attachment == nil {
			return "—"
		}
		return string(rec.Attachment.Kind)
	case StepNote:
		return emptyDash(rec.Note)
	}
	return "—"
}

func emptyDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// fieldMenuHint points back at whichever keyboard is currently shown:
// the One-field/All-fields choice before a submode is picked, the field
// menu after.
func fieldMenuHint(sess *Session) string {
	if sess.Submode == SubmodeNone {
		return "Choose \"One field\" or \"All fields\" using the buttons above."
	}
	return "Pick a field from the menu above, or Done to review."
}

// fieldMenuOptions builds the random-access edit menu keyboard.
func fieldMenuOptions(rec *activity.Record) *SendOptions {
	rows := make([][]Button, 0, len(fieldSteps)+1)
	for _, step := range fieldSteps {
		label := fmt.Sprintf("%s: %s", step.String(), fieldValue(rec, step))
		rows = append(rows, []Button{{Label: label, Data: "field:" + step.String()}})
	}
	rows = append(rows, []Button{{Label: "Done — review", Data: "field:done"}})
	return &SendOptions{InlineRows: rows, RemoveKeyboard: true}
}

// confirmOptions builds the preview confirmation keyboard.
func confirmOptions() *SendOptions {
	return &SendOptions{
		InlineRows: [][]Button{{
			{Label: "✅ Confirm", Data: "confirm"},
			{Label: "❌ Cancel", Data: "cancel"},
		}},
		RemoveKeyboard: true,
	}
}

// renderPreview formats a staged record for confirmation.
func renderPreview(rec *activity.Record) string {
	var b strings.Builder
	b.WriteString("Please review:\n\n")
	writeRecordBody(&b, rec)
	b.WriteString("\nConfirm to save, or cancel.")
	return b.String()
}

// renderAnnouncement formats a committed record for the public channel.
func renderAnnouncement(rec *activity.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📣 %s\n\n", rec.Title)
	writeRecordBody(&b, rec)
	return b.String()
}

func writeRecordBody(b *strings.Builder, rec *activity.Record) {
	fmt.Fprintf(b, "Title: %s\n", rec.Title)
	fmt.Fprintf(b, "Type: %s\n", rec.Type)
	if rec.OccurredAtRaw != "" {
		fmt.Fprintf(b, "When: %s (%s)\n", rec.OccurredAt.Format("2006-01-02 15:04"), rec.OccurredAtRaw)
	} else {
		fmt.Fprintf(b, "When: %s\n", rec.OccurredAt.Format("2006-01-02 15:04"))
	}
	if rec.Count.Known() {
		fmt.Fprintf(b, "Count: %s\n", rec.Count.String())
	}
	if rec.Location != "" {
		fmt.Fprintf(b, "Location: %s\n", rec.Location)
	}
	if rec.Coordinates != nil {
		fmt.Fprintf(b, "Coordinates: %.5f, %.5f\n", rec.Coordinates.Lat, rec.Coordinates.Lng)
	}
	if rec.Attachment != nil {
		if rec.Attachment.PublicURL != "" {
			fmt.Fprintf(b, "Attachment: %s (%s)\n", rec.Attachment.Kind, rec.Attachment.PublicURL)
		} else {
			fmt.Fprintf(b, "Attachment: %s\n", rec.Attachment.Kind)
		}
	}
	if rec.Note != "" {
		fmt.Fprintf(b, "Note: %s\n", rec.Note)
	}
}

// renderRecordLine is the one-line summary used by /list.
func renderRecordLine(rec *activity.Record) string {
	short := rec.ID
	if len(short) > 8 {
		short = short[:8]
	}
	line := fmt.Sprintf("%s  %s  [%s] %s", short, rec.OccurredAt.Format("2006-01-02"), rec.Type, rec.Title)
	if rec.Count.Known() {
		line += " — " + rec.Count.String()
	}
	return line
}

const helpText = `I log field aid activities.

/new — log a new activity
/edit <id> — edit a logged activity
/delete <id> — remove a logged activity
/list — recent activities
/cancel — abandon the current dialogue
/help — this message

During a dialogue you can Skip a field, go Back one step, or Cancel.`
