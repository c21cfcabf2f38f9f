package recap

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amirulm/aidlog/internal/dialogue"
	"github.com/amirulm/aidlog/internal/domain/activity"
	"github.com/amirulm/aidlog/internal/repository/mocks"
)

const (
	adminChat = int64(11)
	channel   = int64(-100200)
)

type recordedSend struct {
	chatID int64
	text   string
	opts   *dialogue.SendOptions
}

type stubTransport struct {
	sent []recordedSend
}

func (s *stubTransport) SendMessage(_ context.Context, chatID int64, text string, opts *dialogue.SendOptions) error {
	s.sent = append(s.sent, recordedSend{chatID: chatID, text: text, opts: opts})
	return nil
}

func (s *stubTransport) SendPhoto(context.Context, int64, string, string) error    { return nil }
func (s *stubTransport) SendDocument(context.Context, int64, string, string) error { return nil }
func (s *stubTransport) AnswerCallback(context.Context, string, string) error      { return nil }
func (s *stubTransport) ClearMessageKeyboard(context.Context, int64, int) error    { return nil }
func (s *stubTransport) FileURL(context.Context, string) (string, error)           { return "", nil }

func (s *stubTransport) lastTo(chatID int64) string {
	for i := len(s.sent) - 1; i >= 0; i-- {
		if s.sent[i].chatID == chatID {
			return s.sent[i].text
		}
	}
	return ""
}

func newTestScheduler(repo *mocks.ActivityRepository, tr *stubTransport) *Scheduler {
	s := NewScheduler(repo, tr, adminChat, channel, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2026, 8, 30, 21, 0, 0, 0, time.UTC) }
	return s
}

// approvalID pulls the pending recap ID out of the draft's buttons.
func approvalID(t *testing.T, tr *stubTransport) string {
	t.Helper()
	for _, m := range tr.sent {
		if m.chatID != adminChat || m.opts == nil || len(m.opts.InlineRows) == 0 {
			continue
		}
		data := m.opts.InlineRows[0][0].Data
		require.True(t, strings.HasPrefix(data, "recap:approve:"))
		return strings.TrimPrefix(data, "recap:approve:")
	}
	t.Fatal("no recap draft was sent to the admin chat")
	return ""
}

func TestProduceSendsDraftToAdminOnly(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	tr := &stubTransport{}
	s := newTestScheduler(repo, tr)

	recs := []activity.Record{{ID: "a", Type: activity.TypeDistribution}}
	repo.On("ListBetween", mock.Anything, mock.Anything, mock.Anything).Return(recs, nil)

	s.produce()

	assert.Contains(t, tr.lastTo(adminChat), "Post this recap to the channel?")
	assert.Empty(t, tr.lastTo(channel))
	assert.Len(t, s.pending, 1)
}

func TestProduceSkipsEmptyDay(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	tr := &stubTransport{}
	s := newTestScheduler(repo, tr)

	repo.On("ListBetween", mock.Anything, mock.Anything, mock.Anything).Return([]activity.Record{}, nil)

	s.produce()

	assert.Empty(t, tr.sent)
	assert.Empty(t, s.pending)
}

func TestApprovePostsToChannel(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	tr := &stubTransport{}
	s := newTestScheduler(repo, tr)

	recs := []activity.Record{{ID: "a", Type: activity.TypeClass}}
	repo.On("ListBetween", mock.Anything, mock.Anything, mock.Anything).Return(recs, nil)
	s.produce()
	id := approvalID(t, tr)

	handled, err := s.HandleCallback(context.Background(), dialogue.Event{
		Kind: dialogue.EventCallback, ChatID: adminChat,
		CallbackData: "recap:approve:" + id, MessageID: 3,
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, tr.lastTo(channel), "Daily recap")
	assert.Contains(t, tr.lastTo(adminChat), "Recap posted.")
	assert.Empty(t, s.pending)
}

func TestDiscardNeverPosts(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	tr := &stubTransport{}
	s := newTestScheduler(repo, tr)

	recs := []activity.Record{{ID: "a", Type: activity.TypeClass}}
	repo.On("ListBetween", mock.Anything, mock.Anything, mock.Anything).Return(recs, nil)
	s.produce()
	id := approvalID(t, tr)

	handled, err := s.HandleCallback(context.Background(), dialogue.Event{
		Kind: dialogue.EventCallback, ChatID: adminChat,
		CallbackData: "recap:discard:" + id,
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Empty(t, tr.lastTo(channel))
	assert.Contains(t, tr.lastTo(adminChat), "Recap discarded.")
}

func TestCallbackIgnoresForeignData(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	tr := &stubTransport{}
	s := newTestScheduler(repo, tr)

	handled, err := s.HandleCallback(context.Background(), dialogue.Event{
		Kind: dialogue.EventCallback, ChatID: adminChat, CallbackData: "type:class",
	})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestStaleApprovalReported(t *testing.T) {
	repo := &mocks.ActivityRepository{}
	tr := &stubTransport{}
	s := newTestScheduler(repo, tr)

	handled, err := s.HandleCallback(context.Background(), dialogue.Event{
		Kind: dialogue.EventCallback, ChatID: adminChat,
		CallbackData: "recap:approve:gone",
	})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, tr.lastTo(adminChat), "no longer pending")
}
