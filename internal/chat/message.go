// Package chat implements the conversation log and the request pipeline that
// turns user input into authenticated backend calls.
package chat

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Kind classifies a conversation entry.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	KindError     Kind = "error"
)

// FileRef is the retained metadata of an attachment; file content is not
// kept client-side after dispatch.
type FileRef struct {
	Name      string
	MIMEType  string
	SizeBytes int64
}

// Message is one immutable conversation entry.
type Message struct {
	ID        string
	Kind      Kind
	Content   string
	Timestamp time.Time
	Files     []FileRef
	TaskName  string

	// Assistant replies carry the backend's attribution.
	Provider  string
	Model     string
	SessionID string
}

func newMessage(kind Kind, content string) Message {
	return Message{
		ID:        ulid.Make().String(),
		Kind:      kind,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Conversation is the append-only message log for one session. Entries are
// never mutated in place; Clear empties the log and advances the epoch so
// in-flight responses from before the clear are discarded.
type Conversation struct {
	mu    sync.Mutex
	msgs  []Message
	epoch uint64
}

// NewConversation returns an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) append(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
}

// Messages returns a snapshot copy of the log.
func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len reports the number of entries.
func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// Clear empties the log without destroying the conversation.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = c.msgs[:0]
	c.epoch++
}

// Epoch identifies the current lifetime of the log contents.
func (c *Conversation) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}
