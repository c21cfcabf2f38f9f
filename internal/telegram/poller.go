package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amirulm/aidlog/internal/dialogue"
)

// Poller receives Telegram updates and dispatches them to the dialogue
// engine, preserving arrival order within each chat while letting chats
// proceed independently.
type Poller struct {
	transport *Transport
	engine    *dialogue.Engine

	mu     sync.Mutex
	queues map[int64]chan dialogue.Event
	wg     sync.WaitGroup
}

// NewPoller creates a Poller for the given transport and engine.
func NewPoller(transport *Transport, engine *dialogue.Engine) *Poller {
	return &Poller{
		transport: transport,
		engine:    engine,
		queues:    make(map[int64]chan dialogue.Event),
	}
}

// Run blocks receiving updates until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := p.transport.bot.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			p.transport.bot.StopReceivingUpdates()
			p.drain()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := mapUpdate(update); ok {
				p.enqueue(ctx, ev)
			}
		}
	}
}

// enqueue hands the event to the chat's ordered worker, creating one on
// first contact.
func (p *Poller) enqueue(ctx context.Context, ev dialogue.Event) {
	p.mu.Lock()
	queue, ok := p.queues[ev.ChatID]
	if !ok {
		queue = make(chan dialogue.Event, 32)
		p.queues[ev.ChatID] = queue
		p.wg.Add(1)
		go p.work(ctx, queue)
	}
	p.mu.Unlock()

	select {
	case queue <- ev:
	case <-ctx.Done():
	}
}

func (p *Poller) work(ctx context.Context, queue chan dialogue.Event) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-queue:
			p.engine.HandleEvent(ctx, ev)
		}
	}
}

func (p *Poller) drain() {
	p.wg.Wait()
}

// mapUpdate converts a Telegram update to a dialogue event. Updates the
// engine has no use for are dropped.
func mapUpdate(update tgbotapi.Update) (dialogue.Event, bool) {
	if cb := update.CallbackQuery; cb != nil && cb.Message != nil {
		return dialogue.Event{
			Kind:         dialogue.EventCallback,
			ChatID:       cb.Message.Chat.ID,
			SenderID:     cb.From.ID,
			CallbackID:   cb.ID,
			CallbackData: cb.Data,
			MessageID:    cb.Message.MessageID,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.From == nil {
		return dialogue.Event{}, false
	}

	ev := dialogue.Event{
		ChatID:   msg.Chat.ID,
		SenderID: msg.From.ID,
	}

	switch {
	case msg.Location != nil:
		ev.Kind = dialogue.EventLocation
		ev.Latitude = msg.Location.Latitude
		ev.Longitude = msg.Location.Longitude
	case len(msg.Photo) > 0:
		ev.Kind = dialogue.EventPhoto
		// Telegram lists photo sizes smallest first.
		ev.FileID = msg.Photo[len(msg.Photo)-1].FileID
	case msg.Document != nil:
		ev.Kind = dialogue.EventDocument
		ev.FileID = msg.Document.FileID
	case msg.Text != "":
		ev.Kind = dialogue.EventText
		ev.Text = msg.Text
	default:
		return dialogue.Event{}, false
	}

	return ev, true
}
