package dialogue

import (
	"context"

	"github.com/amirulm/aidlog/internal/geocode"
)

// EventKind enumerates the inbound event types the transport delivers.
type EventKind int

const (
	EventText EventKind = iota
	EventLocation
	EventPhoto
	EventDocument
	EventCallback
)

// Event is one inbound message or button press, tagged with its
// conversation and sender.
type Event struct {
	Kind     EventKind
	ChatID   int64
	SenderID int64

	// Text carries message text for EventText.
	Text string

	// Latitude/Longitude carry a device location share.
	Latitude  float64
	Longitude float64

	// FileID is the transport-native file reference for photo and
	// document events.
	FileID string

	// CallbackID and CallbackData carry button presses. MessageID
	// identifies the message whose keyboard was pressed.
	CallbackID   string
	CallbackData string
	MessageID    int
}

// Button is one labeled inline action; Data is returned on press.
type Button struct {
	Label string
	Data  string
}

// SendOptions describes the keyboard attached to an outgoing message.
type SendOptions struct {
	// InlineRows attaches an inline keyboard.
	InlineRows [][]Button
	// ReplyButtons attaches a one-tap reply keyboard.
	ReplyButtons [][]string
	// LocationButton prepends a share-location button to the reply
	// keyboard.
	LocationButton bool
	// RemoveKeyboard clears any visible reply keyboard.
	RemoveKeyboard bool
	// ForceReply hints the client to open a reply prompt.
	ForceReply bool
}

// Transport is the outbound side of the chat collaborator.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts *SendOptions) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	ClearMessageKeyboard(ctx context.Context, chatID int64, messageID int) error
	// FileURL resolves a transport-native file reference to a
	// downloadable URL.
	FileURL(ctx context.Context, fileID string) (string, error)
}

// Geocoder resolves free-text locations, best effort.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*geocode.Place, error)
}

// Uploader copies an attachment to public object storage. Optional; a
// nil Uploader leaves attachments as transport-native references.
type Uploader interface {
	UploadFromURL(ctx context.Context, srcURL, objectName, contentType string) (string, error)
}

// CallbackHandler lets other components claim callback presses the
// engine doesn't own (recap approval buttons).
type CallbackHandler interface {
	HandleCallback(ctx context.Context, ev Event) (bool, error)
}
