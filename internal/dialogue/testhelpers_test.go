package dialogue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirulm/aidlog/internal/geocode"
	"github.com/amirulm/aidlog/internal/repository"
)

var testClock = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	chatID int64
	text   string
	opts   *SendOptions
	kind   string // "text", "photo", "document"
	fileID string
}

// fakeSender records outgoing traffic. failSend fails every send;
// failTo fails sends to one chat only.
type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	failSend bool
	failTo   int64
}

func (f *fakeSender) failing(chatID int64) bool {
	return f.failSend || (f.failTo != 0 && f.failTo == chatID)
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string, opts *SendOptions) error {
	if f.failing(chatID) {
		return errors.New("transport down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, opts: opts, kind: "text"})
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	if f.failing(chatID) {
		return errors.New("transport down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: caption, kind: "photo", fileID: fileID})
	return nil
}

func (f *fakeSender) SendDocument(_ context.Context, chatID int64, fileID, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: caption, kind: "document", fileID: fileID})
	return nil
}

func (f *fakeSender) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeSender) ClearMessageKeyboard(context.Context, int64, int) error { return nil }

func (f *fakeSender) FileURL(_ context.Context, fileID string) (string, error) {
	return "https://files.example.org/" + fileID + ".jpg", nil
}

func (f *fakeSender) lastTo(chatID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].chatID == chatID {
			return f.sent[i].text
		}
	}
	return ""
}

func (f *fakeSender) sentTo(chatID int64) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) contains(chatID int64, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if m.chatID == chatID && strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

// fakeGeocoder returns a fixed answer and counts lookups.
type fakeGeocoder struct {
	place *geocode.Place
	err   error
	calls int
}

func (f *fakeGeocoder) Geocode(context.Context, string) (*geocode.Place, error) {
	f.calls++
	return f.place, f.err
}

// fakeUploader records uploads and returns a fixed public URL.
type fakeUploader struct {
	url          string
	err          error
	objects      []string
	contentTypes []string
}

func (f *fakeUploader) UploadFromURL(_ context.Context, srcURL, objectName, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.objects = append(f.objects, objectName)
	f.contentTypes = append(f.contentTypes, contentType)
	return f.url, nil
}

const (
	testChannelID = int64(-100500)
	testChatID    = int64(1001)
	testSenderID  = int64(42)
)

func newTestEngine(repo repository.ActivityRepository, sender *fakeSender, geo Geocoder) *Engine {
	if geo == nil {
		geo = &fakeGeocoder{}
	}
	e := NewEngine(
		repo,
		sender,
		geo,
		nil,
		NewAllowlist(nil),
		testChannelID,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	e.now = func() time.Time { return testClock }
	return e
}

func textEv(text string) Event {
	return Event{Kind: EventText, ChatID: testChatID, SenderID: testSenderID, Text: text}
}

func callbackEv(data string) Event {
	return Event{
		Kind:         EventCallback,
		ChatID:       testChatID,
		SenderID:     testSenderID,
		CallbackID:   "cb1",
		CallbackData: data,
		MessageID:    7,
	}
}

func photoEv(fileID string) Event {
	return Event{Kind: EventPhoto, ChatID: testChatID, SenderID: testSenderID, FileID: fileID}
}

func locationEv(lat, lng float64) Event {
	return Event{Kind: EventLocation, ChatID: testChatID, SenderID: testSenderID, Latitude: lat, Longitude: lng}
}
