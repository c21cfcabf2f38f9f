package recap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/amirulm/aidlog/internal/dialogue"
	"github.com/amirulm/aidlog/internal/repository"
)

// Scheduler produces recaps on a cron schedule, sends them to the admin
// chat for approval and posts approved recaps to the public channel.
// It implements dialogue.CallbackHandler for the approval buttons.
type Scheduler struct {
	repo        repository.ActivityRepository
	sender      dialogue.Transport
	adminChatID int64
	channelID   int64
	logger      *slog.Logger
	now         func() time.Time

	cron *cron.Cron

	mu      sync.Mutex
	pending map[string]string // recap id -> rendered text
}

// NewScheduler creates a Scheduler. Recaps are disabled when either
// chat ID is zero.
func NewScheduler(
	repo repository.ActivityRepository,
	sender dialogue.Transport,
	adminChatID, channelID int64,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		repo:        repo,
		sender:      sender,
		adminChatID: adminChatID,
		channelID:   channelID,
		logger:      logger,
		now:         time.Now,
		cron:        cron.New(),
		pending:     make(map[string]string),
	}
}

// Start registers the cron entry and starts the scheduler.
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" || s.adminChatID == 0 || s.channelID == 0 {
		s.logger.Info("recaps disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(schedule, s.produce); err != nil {
		return fmt.Errorf("invalid recap schedule: %w", err)
	}
	s.cron.Start()
	s.logger.Info("recap scheduler started", "schedule", schedule)
	return nil
}

// Stop halts the scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) produce() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := Build(ctx, s.repo, s.now())
	if err != nil {
		s.logger.Error("building recap failed", "error", err)
		return
	}
	if summary.Total == 0 {
		s.logger.Info("no activities today, recap skipped")
		return
	}

	text := Render(summary)
	id := uuid.NewString()

	s.mu.Lock()
	s.pending[id] = text
	s.mu.Unlock()

	err = s.sender.SendMessage(ctx, s.adminChatID,
		text+"\n\nPost this recap to the channel?",
		&dialogue.SendOptions{InlineRows: [][]dialogue.Button{{
			{Label: "Post", Data: "recap:approve:" + id},
			{Label: "Discard", Data: "recap:discard:" + id},
		}}})
	if err != nil {
		s.logger.Error("sending recap draft failed", "error", err)
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
	}
}

// HandleCallback claims recap approval button presses.
func (s *Scheduler) HandleCallback(ctx context.Context, ev dialogue.Event) (bool, error) {
	data := ev.CallbackData
	if !strings.HasPrefix(data, "recap:") {
		return false, nil
	}

	parts := strings.SplitN(data, ":", 3)
	if len(parts) != 3 {
		return true, nil
	}
	action, id := parts[1], parts[2]

	s.mu.Lock()
	text, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	if err := s.sender.ClearMessageKeyboard(ctx, ev.ChatID, ev.MessageID); err != nil {
		s.logger.Warn("clearing keyboard failed", "error", err)
	}

	if !ok {
		return true, s.sender.SendMessage(ctx, ev.ChatID, "That recap is no longer pending.", nil)
	}

	switch action {
	case "approve":
		if err := s.sender.SendMessage(ctx, s.channelID, text, nil); err != nil {
			return true, fmt.Errorf("posting recap: %w", err)
		}
		return true, s.sender.SendMessage(ctx, ev.ChatID, "Recap posted.", nil)
	case "discard":
		return true, s.sender.SendMessage(ctx, ev.ChatID, "Recap discarded.", nil)
	}
	return true, nil
}
