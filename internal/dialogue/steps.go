package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/observability"
	"github.com/amirulm/aidlog/internal/parse"
)

// locationPrompts are button labels some clients echo back as text;
// they are not answers.
var locationPrompts = map[string]struct{}{
	"send my location": {},
	"type location":    {},
}

// handleStepInput applies one inbound event to the session's current
// step. Input errors re-prompt without mutating the session; only
// unexpected failures propagate.
func (e *Engine) handleStepInput(ctx context.Context, sess *Session, ev Event) error {
	switch sess.Step {
	case StepTitle:
		return e.stepTitle(ctx, sess, ev)
	case StepType:
		return e.stepType(ctx, sess, ev)
	case StepDate:
		return e.stepDate(ctx, sess, ev)
	case StepCount:
		return e.stepCount(ctx, sess, ev)
	case StepLocation:
		return e.stepLocation(ctx, sess, ev)
	case StepAttachment:
		return e.stepAttachment(ctx, sess, ev)
	case StepNote:
		return e.stepNote(ctx, sess, ev)
	case StepConfirm:
		return e.stepConfirm(ctx, sess, ev)
	case StepFieldMenu:
		return e.send(ctx, sess.ChatID, fieldMenuHint(sess), nil)
	}
	return fmt.Errorf("unhandled step %s", sess.Step)
}

func (e *Engine) stepTitle(ctx context.Context, sess *Session, ev Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != EventText || text == "" {
		return e.send(ctx, sess.ChatID, "Please send the title as text, or Skip.", nil)
	}
	sess.Draft.Title = text
	return e.advance(ctx, sess)
}

func (e *Engine) stepType(ctx context.Context, sess *Session, ev Event) error {
	if ev.Kind != EventText || strings.TrimSpace(ev.Text) == "" {
		return e.send(ctx, sess.ChatID, "Pick a type from the buttons or type one, or Skip.", nil)
	}
	sess.Draft.Type = activity.NormalizeType(ev.Text)
	return e.advance(ctx, sess)
}

func (e *Engine) stepDate(ctx context.Context, sess *Session, ev Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != EventText || text == "" {
		return e.send(ctx, sess.ChatID, "Please send the date as text, or Skip for now.", nil)
	}

	when, ok := parse.When(text, e.now())
	if ok {
		sess.Draft.OccurredAt = when
		sess.Draft.OccurredAtRaw = ""
	} else {
		// Unresolvable text falls back to the current instant; the
		// raw text is kept for display.
		sess.Draft.OccurredAt = e.now()
		sess.Draft.OccurredAtRaw = text
	}
	return e.advance(ctx, sess)
}

func (e *Engine) stepCount(ctx context.Context, sess *Session, ev Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != EventText || text == "" {
		return e.send(ctx, sess.ChatID, "Please send the count as text, or Skip.", nil)
	}
	sess.Draft.Count = parse.Count(text)
	return e.advance(ctx, sess)
}

func (e *Engine) stepLocation(ctx context.Context, sess *Session, ev Event) error {
	switch ev.Kind {
	case EventLocation:
		// Device-shared coordinates are trusted; no geocoding.
		sess.Draft.Coordinates = &activity.Coordinates{Lat: ev.Latitude, Lng: ev.Longitude}
		if sess.Draft.Location == "" {
			sess.Draft.Location = fmt.Sprintf("%.5f, %.5f", ev.Latitude, ev.Longitude)
		}
		return e.advance(ctx, sess)

	case EventText:
		text := strings.TrimSpace(ev.Text)
		if text == "" {
			return e.send(ctx, sess.ChatID, "Share your location or type a place name, or Skip.", nil)
		}
		if _, ok := locationPrompts[strings.ToLower(text)]; ok {
			return nil
		}

		place, err := e.geo.Geocode(ctx, text)
		if err != nil {
			observability.GeocodeFailed()
			e.logger.Warn("geocoding failed", "query", text, "error", err)
		}

		// The session may have been torn down while the geocoder was
		// in flight; discard the result rather than write into it.
		if e.sessions.Get(sess.ChatID) != sess {
			return nil
		}

		if place == nil {
			sess.Draft.Location = text
			sess.Draft.Coordinates = nil
			if err := e.send(ctx, sess.ChatID, "I couldn't place that on the map, so I kept the text as-is.", nil); err != nil {
				return err
			}
		} else {
			sess.Draft.Location = place.DisplayName
			sess.Draft.Coordinates = &activity.Coordinates{Lat: place.Lat, Lng: place.Lng}
		}
		return e.advance(ctx, sess)
	}

	return e.send(ctx, sess.ChatID, "Share your location or type a place name, or Skip.", nil)
}

func (e *Engine) stepAttachment(ctx context.Context, sess *Session, ev Event) error {
	switch ev.Kind {
	case EventPhoto:
		sess.Draft.Attachment = &activity.Attachment{Kind: activity.AttachmentPhoto, FileID: ev.FileID}
		return e.advance(ctx, sess)
	case EventDocument:
		sess.Draft.Attachment = &activity.Attachment{Kind: activity.AttachmentDocument, FileID: ev.FileID}
		return e.advance(ctx, sess)
	}
	return e.send(ctx, sess.ChatID, "Send a photo or a document, or Skip.", nil)
}

func (e *Engine) stepNote(ctx context.Context, sess *Session, ev Event) error {
	text := strings.TrimSpace(ev.Text)
	if ev.Kind != EventText || text == "" {
		return e.send(ctx, sess.ChatID, "Please send the note as text, or Skip.", nil)
	}
	sess.Draft.Note = text
	return e.advance(ctx, sess)
}

// stepConfirm only accepts an affirmative; literal "cancel" never
// reaches here because nav words are routed before step handlers.
// Anything else is rejected without mutating the session.
func (e *Engine) stepConfirm(ctx context.Context, sess *Session, ev Event) error {
	if ev.Kind == EventText {
		switch strings.ToLower(strings.TrimSpace(ev.Text)) {
		case "confirm", "yes", "ya":
			return e.commit(ctx, sess)
		}
	}
	return e.send(ctx, sess.ChatID, "Please Confirm or Cancel using the buttons above.", nil)
}
