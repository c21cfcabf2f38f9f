package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/observability"
	"github.com/amirulm/aidlog/internal/repository"
)

// Engine drives the intake dialogues. Events for one chat are handled
// strictly one at a time in arrival order; chats are independent.
type Engine struct {
	sessions *Store
	records  repository.ActivityRepository
	sender   Transport
	geo      Geocoder
	uploader Uploader
	auth     *Allowlist
	logger   *slog.Logger

	// channelID is the public announcement target; zero disables
	// announcements.
	channelID int64

	now func() time.Time

	extra []CallbackHandler

	chatLocks sync.Map // chatID -> *sync.Mutex
}

// NewEngine creates a dialogue engine. uploader may be nil.
func NewEngine(
	records repository.ActivityRepository,
	sender Transport,
	geo Geocoder,
	uploader Uploader,
	auth *Allowlist,
	channelID int64,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		sessions:  NewStore(),
		records:   records,
		sender:    sender,
		geo:       geo,
		uploader:  uploader,
		auth:      auth,
		channelID: channelID,
		logger:    logger,
		now:       time.Now,
	}
}

// Sessions exposes the session store for the idle sweeper.
func (e *Engine) Sessions() *Store {
	return e.sessions
}

// RegisterCallbackHandler adds a fallback handler for callback data the
// engine doesn't own.
func (e *Engine) RegisterCallbackHandler(h CallbackHandler) {
	e.extra = append(e.extra, h)
}

// HandleEvent processes one inbound event. Any unexpected error aborts
// the chat's session defensively and notifies the user.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) {
	unlock := e.lockChat(ev.ChatID)
	defer unlock()

	if err := e.dispatch(ctx, ev); err != nil {
		e.logger.Error("dialogue event failed",
			"chat_id", ev.ChatID, "kind", ev.Kind, "error", err)
		if e.sessions.Get(ev.ChatID) != nil {
			e.sessions.End(ev.ChatID)
			observability.DialogueCanceled()
			e.send(ctx, ev.ChatID,
				"Something went wrong, so the current dialogue was canceled. Your entry was not saved.",
				&SendOptions{RemoveKeyboard: true})
		}
	}
}

func (e *Engine) lockChat(chatID int64) func() {
	v, _ := e.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (e *Engine) dispatch(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventCallback:
		return e.handleCallback(ctx, ev)
	case EventText:
		if cmd, args, ok := parseCommand(ev.Text); ok {
			return e.handleCommand(ctx, ev, cmd, args)
		}
		if nav, ok := parseNav(ev.Text); ok {
			return e.handleNav(ctx, ev, nav)
		}
	}

	sess := e.sessions.Get(ev.ChatID)
	if sess == nil {
		if ev.Kind == EventText {
			return e.send(ctx, ev.ChatID, "No dialogue in progress. Send /new to log an activity or /help for commands.", nil)
		}
		return nil
	}
	sess.LastActivity = e.now()
	return e.handleStepInput(ctx, sess, ev)
}

// parseCommand splits "/cmd arg text" into its parts. The bot-suffix
// form "/cmd@botname" is accepted.
func parseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	rest := ""
	if i := strings.IndexByte(text, ' '); i >= 0 {
		rest = strings.TrimSpace(text[i+1:])
		text = text[:i]
	}
	if i := strings.IndexByte(text, '@'); i >= 0 {
		text = text[:i]
	}
	return strings.ToLower(text), rest, true
}

type navAction int

const (
	navNone navAction = iota
	navSkip
	navBack
	navCancel
)

func parseNav(text string) (navAction, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "skip":
		return navSkip, true
	case "back":
		return navBack, true
	case "cancel":
		return navCancel, true
	}
	return navNone, false
}

func (e *Engine) handleCommand(ctx context.Context, ev Event, cmd, args string) error {
	switch cmd {
	case "/start", "/help":
		return e.send(ctx, ev.ChatID, helpText, nil)
	case "/new":
		return e.startCreate(ctx, ev, args)
	case "/edit":
		return e.startEdit(ctx, ev, args)
	case "/delete":
		return e.requestDelete(ctx, ev, args)
	case "/list":
		return e.listRecent(ctx, ev)
	case "/cancel":
		return e.cancel(ctx, ev)
	case "/skip":
		return e.handleNav(ctx, ev, navSkip)
	case "/back":
		return e.handleNav(ctx, ev, navBack)
	default:
		return e.send(ctx, ev.ChatID, "Unknown command. Send /help for the list.", nil)
	}
}

func (e *Engine) startCreate(ctx context.Context, ev Event, title string) error {
	if !e.auth.Allowed(ev.SenderID) {
		return e.send(ctx, ev.ChatID, "You are not authorized to log activities.", nil)
	}

	sess := &Session{
		ChatID:       ev.ChatID,
		OwnerID:      ev.SenderID,
		Mode:         ModeCreate,
		Step:         StepTitle,
		LastActivity: e.now(),
	}
	if err := e.sessions.Begin(sess); err != nil {
		if errors.Is(err, ErrSessionExists) {
			return e.send(ctx, ev.ChatID, "A dialogue is already in progress. Send /cancel first if you want to start over.", nil)
		}
		return err
	}
	observability.DialogueStarted()

	// "/new Agihan Mushaf" pre-fills the title and skips its step.
	if title != "" {
		sess.Draft.Title = title
		sess.Step = StepType
	}

	return e.prompt(ctx, sess)
}

func (e *Engine) startEdit(ctx context.Context, ev Event, idOrPrefix string) error {
	if !e.auth.Allowed(ev.SenderID) {
		return e.send(ctx, ev.ChatID, "You are not authorized to edit activities.", nil)
	}
	if idOrPrefix == "" {
		return e.send(ctx, ev.ChatID, "Usage: /edit <id>. Find IDs with /list.", nil)
	}
	if existing := e.sessions.Get(ev.ChatID); existing != nil {
		return e.send(ctx, ev.ChatID, "A dialogue is already in progress. Send /cancel first if you want to start over.", nil)
	}

	rec, err := e.loadByPrefix(ctx, ev.ChatID, idOrPrefix)
	if err != nil || rec == nil {
		return err
	}

	sess := &Session{
		ChatID:       ev.ChatID,
		OwnerID:      ev.SenderID,
		Mode:         ModeEdit,
		Submode:      SubmodeNone,
		Step:         StepFieldMenu,
		Draft:        *rec,
		LastActivity: e.now(),
	}
	if err := e.sessions.Begin(sess); err != nil {
		return e.send(ctx, ev.ChatID, "A dialogue is already in progress. Send /cancel first.", nil)
	}
	observability.DialogueStarted()

	return e.send(ctx, ev.ChatID,
		fmt.Sprintf("Editing \"%s\". Change one field, or walk through all fields?", rec.Title),
		&SendOptions{InlineRows: [][]Button{{
			{Label: "One field", Data: "editmode:menu"},
			{Label: "All fields", Data: "editmode:all"},
		}}})
}

// loadByPrefix resolves an ID prefix and loads the record, reporting
// lookup problems to the user. A nil record with nil error means the
// problem was already reported.
func (e *Engine) loadByPrefix(ctx context.Context, chatID int64, idOrPrefix string) (*activity.Record, error) {
	id, err := e.records.ResolveID(ctx, idOrPrefix)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, e.send(ctx, chatID, fmt.Sprintf("No activity matches %q.", idOrPrefix), nil)
		case errors.Is(err, repository.ErrAmbiguousID):
			return nil, e.send(ctx, chatID, fmt.Sprintf("More than one activity matches %q — use a longer ID.", idOrPrefix), nil)
		default:
			return nil, fmt.Errorf("resolving id: %w", err)
		}
	}
	rec, err := e.records.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading record: %w", err)
	}
	return rec, nil
}

func (e *Engine) requestDelete(ctx context.Context, ev Event, idOrPrefix string) error {
	if !e.auth.Allowed(ev.SenderID) {
		return e.send(ctx, ev.ChatID, "You are not authorized to delete activities.", nil)
	}
	if idOrPrefix == "" {
		return e.send(ctx, ev.ChatID, "Usage: /delete <id>. Find IDs with /list.", nil)
	}

	rec, err := e.loadByPrefix(ctx, ev.ChatID, idOrPrefix)
	if err != nil || rec == nil {
		return err
	}

	return e.send(ctx, ev.ChatID,
		fmt.Sprintf("Delete \"%s\"? This cannot be undone.", rec.Title),
		&SendOptions{InlineRows: [][]Button{{
			{Label: "Delete", Data: "delete:" + rec.ID},
			{Label: "Keep", Data: "delete_cancel"},
		}}})
}

func (e *Engine) listRecent(ctx context.Context, ev Event) error {
	recs, err := e.records.ListRecent(ctx, 10, 0)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}
	if len(recs) == 0 {
		return e.send(ctx, ev.ChatID, "No activities logged yet.", nil)
	}

	var b strings.Builder
	b.WriteString("Recent activities:\n")
	for i := range recs {
		b.WriteString(renderRecordLine(&recs[i]))
		b.WriteByte('\n')
	}
	return e.send(ctx, ev.ChatID, b.String(), nil)
}

func (e *Engine) cancel(ctx context.Context, ev Event) error {
	if e.sessions.Get(ev.ChatID) == nil {
		return e.send(ctx, ev.ChatID, "Nothing to cancel.", nil)
	}
	e.sessions.End(ev.ChatID)
	observability.DialogueCanceled()
	return e.send(ctx, ev.ChatID, "Dialogue canceled. Nothing was saved.", &SendOptions{RemoveKeyboard: true})
}

func (e *Engine) handleNav(ctx context.Context, ev Event, nav navAction) error {
	if nav == navCancel {
		return e.cancel(ctx, ev)
	}

	sess := e.sessions.Get(ev.ChatID)
	if sess == nil {
		return e.send(ctx, ev.ChatID, "No dialogue in progress. Send /new to start one.", nil)
	}
	sess.LastActivity = e.now()

	switch nav {
	case navSkip:
		if sess.Step == StepConfirm || sess.Step == StepFieldMenu {
			return e.send(ctx, ev.ChatID, "Nothing to skip here.", nil)
		}
		e.applySkip(sess)
		return e.advance(ctx, sess)
	case navBack:
		// The staged record only accepts confirm or cancel.
		if sess.Step == StepConfirm {
			return e.send(ctx, ev.ChatID, "Please Confirm or Cancel using the buttons above.", nil)
		}
		return e.stepBack(ctx, sess)
	}
	return nil
}

// applySkip implements the skip asymmetry: create mode clears or
// defaults the field, edit mode keeps the seeded value.
func (e *Engine) applySkip(sess *Session) {
	if sess.Mode == ModeEdit {
		return
	}

	switch sess.Step {
	case StepTitle:
		sess.Draft.Title = activity.DefaultTitle
	case StepType:
		sess.Draft.Type = activity.TypeOther
	case StepDate:
		sess.Draft.OccurredAt = e.now()
		sess.Draft.OccurredAtRaw = ""
	case StepCount:
		sess.Draft.Count = activity.Count{}
	case StepLocation:
		sess.Draft.Location = ""
		sess.Draft.Coordinates = nil
	case StepAttachment:
		sess.Draft.Attachment = nil
	case StepNote:
		sess.Draft.Note = ""
	}
}

func (e *Engine) stepBack(ctx context.Context, sess *Session) error {
	if sess.Submode == SubmodeFieldMenu && sess.Step != StepFieldMenu {
		return e.showFieldMenu(ctx, sess)
	}
	if sess.Step == StepFieldMenu {
		return e.send(ctx, sess.ChatID, fieldMenuHint(sess), nil)
	}
	if sess.Step == StepTitle {
		return e.send(ctx, sess.ChatID, "Already at the first step.", nil)
	}
	sess.Step = sess.Step.Prev()
	return e.prompt(ctx, sess)
}

func (e *Engine) handleCallback(ctx context.Context, ev Event) error {
	data := ev.CallbackData

	// Always acknowledge so the client stops its spinner.
	defer func() {
		if err := e.sender.AnswerCallback(ctx, ev.CallbackID, ""); err != nil {
			e.logger.Warn("answering callback failed", "error", err)
		}
	}()

	switch {
	case data == "confirm" || data == "cancel":
		return e.handleConfirmCallback(ctx, ev, data)
	case strings.HasPrefix(data, "type:"):
		return e.handleTypeCallback(ctx, ev, strings.TrimPrefix(data, "type:"))
	case strings.HasPrefix(data, "editmode:"):
		return e.handleEditModeCallback(ctx, ev, strings.TrimPrefix(data, "editmode:"))
	case strings.HasPrefix(data, "field:"):
		return e.handleFieldCallback(ctx, ev, strings.TrimPrefix(data, "field:"))
	case strings.HasPrefix(data, "delete:"):
		return e.confirmDelete(ctx, ev, strings.TrimPrefix(data, "delete:"))
	case data == "delete_cancel":
		return e.clearAndSend(ctx, ev, "Kept. Nothing was deleted.")
	}

	for _, h := range e.extra {
		handled, err := h.HandleCallback(ctx, ev)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	e.logger.Warn("unhandled callback", "data", data, "chat_id", ev.ChatID)
	return nil
}

func (e *Engine) handleConfirmCallback(ctx context.Context, ev Event, data string) error {
	sess := e.sessions.Get(ev.ChatID)
	if sess == nil || sess.Step != StepConfirm || sess.Staged == nil {
		return e.send(ctx, ev.ChatID, "Nothing is awaiting confirmation.", nil)
	}
	sess.LastActivity = e.now()

	if err := e.sender.ClearMessageKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("clearing keyboard failed", "error", err)
	}

	if data == "cancel" {
		e.sessions.End(ev.ChatID)
		observability.DialogueCanceled()
		return e.send(ctx, ev.ChatID, "Canceled. Nothing was saved.", &SendOptions{RemoveKeyboard: true})
	}
	return e.commit(ctx, sess)
}

func (e *Engine) handleTypeCallback(ctx context.Context, ev Event, value string) error {
	sess := e.sessions.Get(ev.ChatID)
	if sess == nil || sess.Step != StepType {
		return nil
	}
	sess.LastActivity = e.now()
	sess.Draft.Type = activity.NormalizeType(value)
	if err := e.sender.ClearMessageKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("clearing keyboard failed", "error", err)
	}
	return e.advance(ctx, sess)
}

func (e *Engine) handleEditModeCallback(ctx context.Context, ev Event, choice string) error {
	sess := e.sessions.Get(ev.ChatID)
	if sess == nil || sess.Mode != ModeEdit || sess.Submode != SubmodeNone {
		return nil
	}
	sess.LastActivity = e.now()
	if err := e.sender.ClearMessageKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("clearing keyboard failed", "error", err)
	}

	switch choice {
	case "menu":
		sess.Submode = SubmodeFieldMenu
		return e.showFieldMenu(ctx, sess)
	case "all":
		sess.Submode = SubmodeGuided
		sess.Step = StepTitle
		return e.prompt(ctx, sess)
	}
	return nil
}

func (e *Engine) handleFieldCallback(ctx context.Context, ev Event, name string) error {
	sess := e.sessions.Get(ev.ChatID)
	if sess == nil || sess.Submode != SubmodeFieldMenu {
		return nil
	}
	sess.LastActivity = e.now()
	if err := e.sender.ClearMessageKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("clearing keyboard failed", "error", err)
	}

	if name == "done" {
		return e.stage(ctx, sess)
	}

	step, ok := stepByName(name)
	if !ok || step >= StepConfirm {
		return nil
	}
	sess.Step = step
	return e.prompt(ctx, sess)
}

func (e *Engine) confirmDelete(ctx context.Context, ev Event, id string) error {
	if !e.auth.Allowed(ev.SenderID) {
		return e.send(ctx, ev.ChatID, "You are not authorized to delete activities.", nil)
	}
	if err := e.sender.ClearMessageKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("clearing keyboard failed", "error", err)
	}

	err := e.records.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return e.send(ctx, ev.ChatID, "That activity no longer exists.", nil)
	}
	if err != nil {
		return fmt.Errorf("deleting record: %w", err)
	}
	return e.send(ctx, ev.ChatID, "Deleted.", nil)
}

func (e *Engine) clearAndSend(ctx context.Context, ev Event, text string) error {
	if err := e.sender.ClearMessageKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
		e.logger.Warn("clearing keyboard failed", "error", err)
	}
	return e.send(ctx, ev.ChatID, text, nil)
}

// advance moves past the just-completed step: back to the field menu in
// menu-edit submode, otherwise one step forward, staging the draft when
// the sequence is done.
func (e *Engine) advance(ctx context.Context, sess *Session) error {
	if sess.Submode == SubmodeFieldMenu {
		return e.showFieldMenu(ctx, sess)
	}
	sess.Step = sess.Step.Next()
	if sess.Step == StepConfirm {
		return e.stage(ctx, sess)
	}
	return e.prompt(ctx, sess)
}

// stage snapshots the draft and shows the confirmation preview.
func (e *Engine) stage(ctx context.Context, sess *Session) error {
	e.finalizeDraft(sess)
	staged := sess.Draft.Clone()
	sess.Staged = &staged
	sess.Step = StepConfirm
	return e.send(ctx, sess.ChatID, renderPreview(sess.Staged), confirmOptions())
}

// finalizeDraft fills defaults the user never provided.
func (e *Engine) finalizeDraft(sess *Session) {
	if sess.Draft.Title == "" {
		sess.Draft.Title = activity.DefaultTitle
	}
	if sess.Draft.Type == "" {
		sess.Draft.Type = activity.TypeOther
	}
	if sess.Draft.OccurredAt.IsZero() {
		sess.Draft.OccurredAt = e.now()
	}
}

func (e *Engine) showFieldMenu(ctx context.Context, sess *Session) error {
	sess.Step = StepFieldMenu
	return e.send(ctx, sess.ChatID, "Which field do you want to change?", fieldMenuOptions(&sess.Draft))
}

func (e *Engine) prompt(ctx context.Context, sess *Session) error {
	text, opts := promptFor(sess.Step, sess)
	return e.send(ctx, sess.ChatID, text, opts)
}

func (e *Engine) send(ctx context.Context, chatID int64, text string, opts *SendOptions) error {
	if err := e.sender.SendMessage(ctx, chatID, text, opts); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

// CancelIdleSessions sweeps sessions idle longer than maxIdle and
// notifies their owners. Run periodically by the caller. Each chat's
// lock is taken before its session is inspected, so the sweep never
// overlaps an in-flight handler for the same chat.
func (e *Engine) CancelIdleSessions(ctx context.Context, maxIdle time.Duration) {
	now := e.now()
	for _, chatID := range e.sessions.ChatIDs() {
		e.cancelIfIdle(ctx, chatID, maxIdle, now)
	}
}

func (e *Engine) cancelIfIdle(ctx context.Context, chatID int64, maxIdle time.Duration, now time.Time) {
	unlock := e.lockChat(chatID)
	defer unlock()

	sess := e.sessions.Get(chatID)
	if sess == nil || now.Sub(sess.LastActivity) <= maxIdle {
		return
	}

	e.sessions.End(chatID)
	observability.DialogueCanceled()
	e.logger.Info("idle session canceled", "chat_id", chatID)
	_ = e.send(ctx, chatID,
		"The dialogue timed out and was canceled. Send /new to start again.",
		&SendOptions{RemoveKeyboard: true})
}
