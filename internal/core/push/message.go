package push

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colonyops/storefront/internal/core/notify"
)

// Message is a server-pushed notification.
type Message struct {
	Title   string
	Message string
	Level   notify.Level
}

type wireMessage struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`
}

// ErrEmptyMessage is returned for payloads with neither a title nor a
// message, such as null or {}.
var ErrEmptyMessage = errors.New("push message has no title or message")

// ParseMessage decodes a text frame. A missing level means info; an unknown
// level or an empty payload is an error and the message must be dropped.
func ParseMessage(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("decode push message: %w", err)
	}
	if w.Title == "" && w.Message == "" {
		return Message{}, ErrEmptyMessage
	}

	level, err := notify.ParseLevel(w.Level)
	if err != nil {
		return Message{}, err
	}

	return Message{Title: w.Title, Message: w.Message, Level: level}, nil
}

// Sink receives every valid message, in arrival order, on the consumer's
// read goroutine.
type Sink interface {
	Deliver(Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

func (f SinkFunc) Deliver(m Message) { f(m) }

// Notifier is the subset of the notification queue a QueueSink needs.
type Notifier interface {
	Enqueue(title, message string, level notify.Level) notify.Record
}

// QueueSink forwards every message to n.
func QueueSink(n Notifier) Sink {
	return SinkFunc(func(m Message) {
		n.Enqueue(m.Title, m.Message, m.Level)
	})
}
