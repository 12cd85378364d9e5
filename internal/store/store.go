// Package store persists chat sessions as JSON text blobs in a key-value
// backend and notifies subscribers on every mutation.
//
// Two logical keys are used: an index of session metadata, and one key per
// session holding its message log. The index never duplicates messages.
package store

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rgs-labs/rgsai/internal/chat"
)

const (
	indexKey         = "rgs-chats"
	sessionKeyPrefix = "chat-"
)

// Store is the durable owner of sessions and their message logs.
type Store struct {
	kv     KV
	bus    *Bus
	logger *zap.Logger
}

func New(kv KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, bus: NewBus(), logger: logger}
}

// Bus exposes the store-owned change bus. External change sources (such
// as a broker relay) publish into it; controllers subscribe to it.
func (s *Store) Bus() *Bus { return s.bus }

// List returns all session metadata, unfiltered. Corrupted index data
// degrades to an empty result.
func (s *Store) List(ctx context.Context) ([]chat.Session, error) {
	raw, ok, err := s.kv.Get(ctx, indexKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var sessions []chat.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		s.logger.Warn("corrupted session index, treating as empty", zap.Error(err))
		return nil, nil
	}
	return sessions, nil
}

// Get returns the message log for a session. A never-written or corrupted
// log reads as empty.
func (s *Store) Get(ctx context.Context, id string) ([]chat.Message, error) {
	raw, ok, err := s.kv.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var msgs []chat.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		s.logger.Warn("corrupted message log, treating as empty",
			zap.String("session_id", id), zap.Error(err))
		return nil, nil
	}
	return msgs, nil
}

// Put replaces a session's message log.
func (s *Store) Put(ctx context.Context, id string, msgs []chat.Message) error {
	if msgs == nil {
		msgs = []chat.Message{}
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, sessionKeyPrefix+id, string(raw)); err != nil {
		return err
	}
	s.bus.Publish(Event{Op: OpPut, SessionID: id})
	return nil
}

// PutSessionMeta inserts or updates one session's entry in the index.
// Messages are stripped before writing; the index holds metadata only.
func (s *Store) PutSessionMeta(ctx context.Context, sess chat.Session) error {
	sessions, err := s.List(ctx)
	if err != nil {
		return err
	}
	sess.Messages = nil

	found := false
	for i := range sessions {
		if sessions[i].ID == sess.ID {
			sessions[i] = sess
			found = true
			break
		}
	}
	if !found {
		sessions = append(sessions, sess)
	}

	if err := s.writeIndex(ctx, sessions); err != nil {
		return err
	}
	s.bus.Publish(Event{Op: OpMeta, SessionID: sess.ID})
	return nil
}

// Delete removes a session's metadata and its message log.
func (s *Store) Delete(ctx context.Context, id string) error {
	sessions, err := s.List(ctx)
	if err != nil {
		return err
	}
	kept := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			kept = append(kept, sess)
		}
	}
	if err := s.writeIndex(ctx, kept); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, sessionKeyPrefix+id); err != nil {
		return err
	}
	s.bus.Publish(Event{Op: OpDelete, SessionID: id})
	return nil
}

func (s *Store) writeIndex(ctx context.Context, sessions []chat.Session) error {
	if sessions == nil {
		sessions = []chat.Session{}
	}
	raw, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, indexKey, string(raw))
}
