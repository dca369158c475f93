package notify

import "context"

// Message is one rendered notification for a channel.
type Message struct {
	Channel string
	Title   string
	// Body is Markdown.
	Body         string
	HighPriority bool
	// RecordIDs are the records the message covers; empty for a "nothing new" digest.
	RecordIDs []string
}

// Text returns the title and body as a single Markdown document.
func (m Message) Text() string {
	if m.Title == "" {
		return m.Body
	}
	return "**" + m.Title + "**\n\n" + m.Body
}

// Deliverer sends a message to one destination.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}
