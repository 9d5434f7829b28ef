// Package bot implements the candidate conversation: a per-chat state
// machine that turns chat events into lifecycle actions and replies.
package bot

import "context"

// EventKind classifies an inbound chat event.
type EventKind string

const (
	KindText     EventKind = "text"
	KindCommand  EventKind = "command"
	KindCallback EventKind = "callback"
	KindFile     EventKind = "file"
	KindLocation EventKind = "location"
)

// File is an uploaded document. Its content is fetched lazily so that files
// sent in the wrong state are never downloaded.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Fetch       func(ctx context.Context) ([]byte, error)
}

type Location struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Event is a transport-neutral inbound chat event.
type Event struct {
	ChatID   int64
	Kind     EventKind
	Text     string
	Command  string
	Data     string
	File     *File
	Location *Location
}

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

// Keyboard is attached to an outbound message. RequestLocation, when set, is
// the label of a reply button asking the user to share their location.
type Keyboard struct {
	Rows            [][]Button
	RequestLocation string
}

// Transport sends messages back to a chat.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	SendFile(ctx context.Context, chatID int64, data []byte, filename, caption string) error
}
