package thread

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/chat"
	"github.com/rgs-labs/rgsai/internal/store"
)

var (
	ErrBlankTitle      = errors.New("title must not be blank")
	ErrSessionNotFound = errors.New("session not found")
)

// List manages the session sidebar: non-empty sessions, newest first.
// It refreshes itself on store change events and on an explicit Focus.
type List struct {
	store  *store.Store
	logger *zap.Logger

	onChange func()

	mu       sync.Mutex
	sessions []chat.Session
	activeID string

	unsubscribe func()
	done        chan struct{}
}

// NewList builds the controller and starts watching the store's bus.
// activeID may be empty; a fresh session id is activated then.
func NewList(ctx context.Context, st *store.Store, activeID string, logger *zap.Logger, onChange func()) (*List, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if activeID == "" {
		id, err := chat.NewSessionID()
		if err != nil {
			return nil, err
		}
		activeID = id
	}

	l := &List{
		store:    st,
		logger:   logger,
		onChange: onChange,
		activeID: activeID,
		done:     make(chan struct{}),
	}
	if err := l.Refresh(ctx); err != nil {
		return nil, err
	}

	events, cancel := st.Bus().Subscribe()
	l.unsubscribe = cancel
	go l.watch(events)
	return l, nil
}

func (l *List) watch(events <-chan store.Event) {
	defer close(l.done)
	for range events {
		if err := l.Refresh(context.Background()); err != nil {
			l.logger.Warn("session list refresh failed", zap.Error(err))
		}
	}
}

// Refresh re-reads the store: sessions with at least one message, sorted
// by last-modified descending (stable for equal timestamps).
func (l *List) Refresh(ctx context.Context) error {
	all, err := l.store.List(ctx)
	if err != nil {
		return err
	}
	visible := make([]chat.Session, 0, len(all))
	for _, s := range all {
		if s.MessageCount > 0 {
			visible = append(visible, s)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Timestamp > visible[j].Timestamp
	})

	l.mu.Lock()
	l.sessions = visible
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange()
	}
	return nil
}

// Focus mirrors the window regaining focus: an explicit re-read trigger.
func (l *List) Focus(ctx context.Context) error {
	return l.Refresh(ctx)
}

// Sessions returns the current visible snapshot.
func (l *List) Sessions() []chat.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]chat.Session, len(l.sessions))
	copy(out, l.sessions)
	return out
}

func (l *List) ActiveID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activeID
}

// Select navigates to a session.
func (l *List) Select(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeID = id
}

// Rename updates a session's title. Blank titles are rejected and the
// prior title stands.
func (l *List) Rename(ctx context.Context, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrBlankTitle
	}
	all, err := l.store.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range all {
		if s.ID == id {
			s.Title = title
			return l.store.PutSessionMeta(ctx, s)
		}
	}
	return ErrSessionNotFound
}

// Delete removes a session's metadata and message log. Deleting the
// active session immediately activates a fresh empty one.
func (l *List) Delete(ctx context.Context, id string) error {
	if err := l.store.Delete(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.activeID == id {
		next, err := chat.NewSessionID()
		if err != nil {
			return err
		}
		l.activeID = next
	}
	return nil
}

// Archive currently behaves exactly like Delete; it is kept as its own
// operation so a soft-archive state can replace it without an API break.
func (l *List) Archive(ctx context.Context, id string) error {
	return l.Delete(ctx, id)
}

// Close detaches the list from the store bus.
func (l *List) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
		<-l.done
	}
}
