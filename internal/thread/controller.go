// Package thread orchestrates chat sessions: the Controller bridges
// composer output to the AI collaborator and the store, simulating
// streamed delivery of each complete response; the List manages the
// session sidebar.
package thread

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/ai"
	"github.com/rgs-labs/rgsai/internal/chat"
	"github.com/rgs-labs/rgsai/internal/composer"
	"github.com/rgs-labs/rgsai/internal/preview"
	"github.com/rgs-labs/rgsai/internal/store"
)

// FallbackReply is appended in place of an assistant message when the
// collaborator call fails. The underlying error is logged, not shown.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// DefaultTokenDelay paces the simulated streaming playback.
const DefaultTokenDelay = 40 * time.Millisecond

var (
	ErrSendInFlight = errors.New("a send is already in flight")
	ErrClosed       = errors.New("controller is closed")
)

// Controller owns the working copy of one session's messages and
// reconciles it into the store on every mutation.
type Controller struct {
	store      *store.Store
	provider   ai.Provider
	previews   *preview.Registry
	logger     *zap.Logger
	tokenDelay time.Duration

	onUpdate func()
	onStream func(text string)

	mu        sync.Mutex
	sessionID string
	messages  []chat.Message
	loading   bool
	streaming strings.Builder
	closed    bool
}

type Option func(*Controller)

// WithTokenDelay overrides the per-token playback delay; zero reveals
// without pacing (used by tests).
func WithTokenDelay(d time.Duration) Option {
	return func(c *Controller) { c.tokenDelay = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithOnUpdate registers a hook invoked after every message-list change.
func WithOnUpdate(f func()) Option {
	return func(c *Controller) { c.onUpdate = f }
}

// WithOnStream registers a hook invoked with the growing streaming
// buffer, once per revealed token.
func WithOnStream(f func(string)) Option {
	return func(c *Controller) { c.onStream = f }
}

// Open attaches a controller to a session, loading any stored history.
// An id that was never written reads as an empty session; the session
// becomes visible in the list once its first message is persisted. An
// empty id starts a fresh session.
func Open(ctx context.Context, st *store.Store, provider ai.Provider, sessionID string, opts ...Option) (*Controller, error) {
	if sessionID == "" {
		id, err := chat.NewSessionID()
		if err != nil {
			return nil, err
		}
		sessionID = id
	}

	c := &Controller{
		store:      st,
		provider:   provider,
		previews:   preview.NewRegistry(),
		logger:     zap.NewNop(),
		tokenDelay: DefaultTokenDelay,
		sessionID:  sessionID,
	}
	for _, opt := range opts {
		opt(c)
	}

	msgs, err := st.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c.messages = msgs
	return c, nil
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the working message list.
func (c *Controller) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Streaming returns the transient playback buffer, empty outside of an
// active reveal.
func (c *Controller) Streaming() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming.String()
}

// Send runs the full protocol for one outbound message: optimistic user
// append, collaborator call, simulated streaming playback, assistant
// append. A collaborator failure appends the fixed fallback reply and
// reports success; only transport of the user's intent failing (store
// write) or controller state errors surface to the caller.
func (c *Controller) Send(ctx context.Context, out composer.Outbound) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.loading {
		c.mu.Unlock()
		return ErrSendInFlight
	}

	userMsg := c.buildUserMessageLocked(out)
	c.messages = append(c.messages, userMsg)
	c.loading = true
	c.streaming.Reset()
	c.persistLocked(ctx)
	c.mu.Unlock()
	c.notifyUpdate()

	reply, err := c.provider.Generate(ctx, toAIRequest(out))
	if err != nil {
		c.logger.Error("collaborator call failed",
			zap.String("session_id", c.sessionID), zap.Error(err))
		c.appendAssistant(ctx, FallbackReply)
		return nil
	}

	c.playback(reply)
	c.appendAssistant(ctx, reply)
	return nil
}

func (c *Controller) buildUserMessageLocked(out composer.Outbound) chat.Message {
	var lastID int64
	if n := len(c.messages); n > 0 {
		lastID = c.messages[n-1].ID
	}
	id := chat.NextMessageID(lastID)

	msg := chat.Message{
		ID:        id,
		Role:      chat.RoleUser,
		Content:   out.Text,
		Timestamp: id,
	}
	if out.File != nil {
		ref := &chat.FileRef{
			Name:     out.File.Name,
			MIMEType: ai.InferMIMEType(out.File.Name, out.File.MIMEType),
		}
		if strings.HasPrefix(ref.MIMEType, "image/") {
			ref.PreviewURL = c.previews.Create(out.File.Name, ref.MIMEType, out.File.Data)
		}
		msg.File = ref
	}
	return msg
}

// playback reveals the reply token by token into the streaming buffer.
// It stops early only when the controller is torn down.
func (c *Controller) playback(reply string) {
	tokens := strings.Split(reply, " ")
	for i, tok := range tokens {
		if c.tokenDelay > 0 {
			time.Sleep(c.tokenDelay)
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		if i > 0 {
			c.streaming.WriteString(" ")
		}
		c.streaming.WriteString(tok)
		text := c.streaming.String()
		c.mu.Unlock()

		if c.onStream != nil {
			c.onStream(text)
		}
	}
}

func (c *Controller) appendAssistant(ctx context.Context, content string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	var lastID int64
	if n := len(c.messages); n > 0 {
		lastID = c.messages[n-1].ID
	}
	id := chat.NextMessageID(lastID)
	c.messages = append(c.messages, chat.Message{
		ID:        id,
		Role:      chat.RoleAssistant,
		Content:   content,
		Timestamp: id,
	})
	c.streaming.Reset()
	c.loading = false
	c.persistLocked(ctx)
	c.mu.Unlock()
	c.notifyUpdate()
}

// persistLocked reconciles the working copy into the store: message log,
// recomputed title and updated metadata. Store failures are logged; the
// in-memory state stays authoritative for this controller.
func (c *Controller) persistLocked(ctx context.Context) {
	ts := time.Now().UnixMilli()
	if n := len(c.messages); n > 0 && c.messages[n-1].Timestamp > ts {
		ts = c.messages[n-1].Timestamp
	}
	if err := c.store.Put(ctx, c.sessionID, c.messages); err != nil {
		c.logger.Error("persist message log failed",
			zap.String("session_id", c.sessionID), zap.Error(err))
	}
	meta := chat.Session{
		ID:           c.sessionID,
		Title:        chat.GenerateTitle(c.messages),
		Timestamp:    ts,
		MessageCount: len(c.messages),
	}
	if err := c.store.PutSessionMeta(ctx, meta); err != nil {
		c.logger.Error("persist session meta failed",
			zap.String("session_id", c.sessionID), zap.Error(err))
	}
}

func (c *Controller) notifyUpdate() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

// Close tears the controller down: in-flight playback stops applying
// state and every preview reference owned by this session is released.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.streaming.Reset()
	c.previews.ReleaseAll()
}

func toAIRequest(out composer.Outbound) ai.Request {
	req := ai.Request{Text: out.Text}
	if out.File != nil {
		req.File = &ai.File{
			Name:     out.File.Name,
			MIMEType: out.File.MIMEType,
			Data:     out.File.Data,
		}
	}
	return req
}
