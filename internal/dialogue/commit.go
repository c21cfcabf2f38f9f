package dialogue

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/observability"
	"github.com/google/uuid"
)

// commit persists the staged record and announces it. The staged record
// is copied out of the session before any side effect so teardown
// cannot race it. A storage failure is reported to the user and leaves
// the session at the confirmation step for another attempt.
func (e *Engine) commit(ctx context.Context, sess *Session) error {
	rec := sess.Staged.Clone()
	mode := sess.Mode
	now := e.now()

	if mode == ModeCreate {
		rec.ID = uuid.NewString()
		rec.ReporterID = sess.OwnerID
		rec.CreatedAt = now
	}
	rec.ModifiedAt = now

	// Best effort: make the attachment publicly dereferenceable. A
	// failure never blocks the commit.
	e.resolveAttachmentURL(ctx, &rec)

	var err error
	if mode == ModeEdit {
		err = e.records.Update(ctx, &rec)
	} else {
		err = e.records.Insert(ctx, &rec)
	}
	if err != nil {
		e.logger.Error("persisting record failed", "id", rec.ID, "error", err)
		return e.send(ctx, sess.ChatID,
			"Saving failed — the record was NOT stored. Confirm again to retry, or Cancel.",
			confirmOptions())
	}

	e.sessions.End(sess.ChatID)
	observability.DialogueCommitted()

	short := rec.ID
	if len(short) > 8 {
		short = short[:8]
	}
	verb := "saved"
	if mode == ModeEdit {
		verb = "updated"
	}
	if err := e.send(ctx, sess.ChatID,
		fmt.Sprintf("Activity %s. ID: %s", verb, short),
		&SendOptions{RemoveKeyboard: true}); err != nil {
		e.logger.Warn("sending confirmation failed", "error", err)
	}

	e.announce(ctx, &rec)
	return nil
}

// resolveAttachmentURL uploads the attachment to the object store when
// one is configured and the attachment has no public URL yet.
func (e *Engine) resolveAttachmentURL(ctx context.Context, rec *activity.Record) {
	att := rec.Attachment
	if e.uploader == nil || att == nil || att.PublicURL != "" || att.FileID == "" {
		return
	}

	srcURL, err := e.sender.FileURL(ctx, att.FileID)
	if err != nil {
		e.logger.Warn("resolving file url failed", "file_id", att.FileID, "error", err)
		return
	}

	contentType := "application/octet-stream"
	if att.Kind == activity.AttachmentPhoto {
		contentType = "image/jpeg"
	}
	objectName := rec.ID + strings.ToLower(path.Ext(srcURL))

	publicURL, err := e.uploader.UploadFromURL(ctx, srcURL, objectName, contentType)
	if err != nil {
		e.logger.Warn("attachment upload failed", "file_id", att.FileID, "error", err)
		return
	}
	att.PublicURL = publicURL
}

// announce forwards the committed record to the public channel, best
// effort: a failure is logged and never rolls back the commit.
func (e *Engine) announce(ctx context.Context, rec *activity.Record) {
	if e.channelID == 0 {
		return
	}

	text := renderAnnouncement(rec)
	var err error
	switch {
	case rec.Attachment != nil && rec.Attachment.Kind == activity.AttachmentPhoto && rec.Attachment.FileID != "":
		err = e.sender.SendPhoto(ctx, e.channelID, rec.Attachment.FileID, text)
	case rec.Attachment != nil && rec.Attachment.Kind == activity.AttachmentDocument && rec.Attachment.FileID != "":
		err = e.sender.SendDocument(ctx, e.channelID, rec.Attachment.FileID, text)
	default:
		err = e.sender.SendMessage(ctx, e.channelID, text, nil)
	}
	if err != nil {
		observability.AnnounceFailed()
		e.logger.Error("announcing record failed", "id", rec.ID, "error", err)
	}
}
