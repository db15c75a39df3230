package review

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/valence-cli/internal/answertext"
	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/pkg/valence"
)

// Chat errors.
var (
	ErrEmptyQuestion    = eris.New("review: question is empty")
	ErrQuestionInFlight = eris.New("review: a question is already being answered")
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a chat transcript. Assistant messages carry the
// parsed answer blocks alongside the raw text.
type Message struct {
	ID         string             `json:"id"`
	Role       Role               `json:"role"`
	Content    string             `json:"content"`
	Blocks     []answertext.Block `json:"blocks,omitempty"`
	Citations  []model.Citation   `json:"citations,omitempty"`
	DataSource string             `json:"data_source,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ChatSession is the question/answer transcript for one deal. At most one
// question is outstanding at a time.
type ChatSession struct {
	client valence.Client
	dealID string

	mu       sync.Mutex
	busy     bool
	messages []Message
	now      func() time.Time
}

// NewChatSession starts an empty transcript for dealID.
func NewChatSession(client valence.Client, dealID string) *ChatSession {
	return &ChatSession{client: client, dealID: dealID, now: time.Now}
}

// Ask sends question to the backend. The question and its answer are added
// to the transcript together once the answer arrives; a failed question
// leaves the transcript untouched.
func (c *ChatSession) Ask(ctx context.Context, question string) (Message, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Message{}, ErrEmptyQuestion
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, ErrQuestionInFlight
	}
	c.busy = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	resp, err := c.client.Ask(ctx, c.dealID, question)
	if err != nil {
		return Message{}, eris.Wrapf(err, "review: ask deal %s", c.dealID)
	}

	now := c.now()
	user := Message{ID: uuid.NewString(), Role: RoleUser, Content: question, CreatedAt: now}
	answer := Message{
		ID:         uuid.NewString(),
		Role:       RoleAssistant,
		Content:    resp.Answer,
		Blocks:     answertext.Parse(resp.Answer),
		Citations:  resp.Citations,
		DataSource: resp.DataSource,
		CreatedAt:  now,
	}

	c.mu.Lock()
	c.messages = append(c.messages, user, answer)
	c.mu.Unlock()
	return answer, nil
}

// Pending reports whether a question is outstanding.
func (c *ChatSession) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Transcript returns a copy of the messages so far.
func (c *ChatSession) Transcript() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Reset clears the transcript.
func (c *ChatSession) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}
