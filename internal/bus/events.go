package bus

import (
	"strings"
	"time"
)

// Attachment is a binary payload received with a message, usually a photo.
type Attachment struct {
	MediaType string
	Data      []byte
	Name      string
}

func (a Attachment) IsImage() bool {
	return len(a.Data) > 0 && strings.HasPrefix(a.MediaType, "image/")
}

type InboundMessage struct {
	Channel     string
	SenderID    string
	ChatID      string
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
	Metadata    map[string]any
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

// Image returns the first image attachment.
func (m *InboundMessage) Image() (Attachment, bool) {
	for _, a := range m.Attachments {
		if a.IsImage() {
			return a, true
		}
	}
	return Attachment{}, false
}

// Action is a suggested follow-up command, rendered as a button where the
// channel supports it.
type Action struct {
	Label   string
	Command string
}

type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	ReplyTo  string
	Actions  []Action
	Metadata map[string]any
}
