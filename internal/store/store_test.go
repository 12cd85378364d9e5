package store_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgs-labs/rgsai/internal/chat"
	"github.com/rgs-labs/rgsai/internal/store"
	"github.com/rgs-labs/rgsai/internal/store/gormkv"
)

var dbSeq int64

func openTestStore(t *testing.T) (*store.Store, *gormkv.KV) {
	t.Helper()
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	kv, err := gormkv.Open("sqlite", dsn)
	require.NoError(t, err)
	return store.New(kv, nil), kv
}

func TestStore_PutGetRoundtrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	msgs := []chat.Message{
		{ID: 1, Role: chat.RoleUser, Content: "hello", Timestamp: 100},
		{ID: 2, Role: chat.RoleAssistant, Content: "hi there", Timestamp: 200},
	}
	require.NoError(t, s.Put(ctx, "s1", msgs))

	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestStore_GetUnknownSessionIsEmpty(t *testing.T) {
	s, _ := openTestStore(t)

	got, err := s.Get(context.Background(), "never-written")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_CorruptedDataDegradesToEmpty(t *testing.T) {
	s, kv := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "rgs-chats", "{not json"))
	require.NoError(t, kv.Set(ctx, "chat-s1", "also not json"))

	sessions, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	msgs, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// A corrupted index must not block new writes.
	require.NoError(t, s.PutSessionMeta(ctx, chat.Session{ID: "s2", Title: "ok", Timestamp: 1}))
	sessions, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID)
}

func TestStore_PutSessionMetaUpserts(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSessionMeta(ctx, chat.Session{ID: "a", Title: "first", Timestamp: 1, MessageCount: 2}))
	require.NoError(t, s.PutSessionMeta(ctx, chat.Session{ID: "b", Title: "second", Timestamp: 2, MessageCount: 4}))
	require.NoError(t, s.PutSessionMeta(ctx, chat.Session{ID: "a", Title: "renamed", Timestamp: 3, MessageCount: 2}))

	sessions, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byID := map[string]chat.Session{}
	for _, sess := range sessions {
		byID[sess.ID] = sess
	}
	assert.Equal(t, "renamed", byID["a"].Title)
	assert.Equal(t, int64(3), byID["a"].Timestamp)
	assert.Equal(t, "second", byID["b"].Title)
}

func TestStore_MetaNeverCarriesMessages(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	sess := chat.Session{
		ID: "a", Title: "t", Timestamp: 1, MessageCount: 1,
		Messages: []chat.Message{{ID: 1, Role: chat.RoleUser, Content: "x"}},
	}
	require.NoError(t, s.PutSessionMeta(ctx, sess))

	sessions, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Nil(t, sessions[0].Messages)
	assert.Equal(t, 1, sessions[0].MessageCount)
}

func TestStore_DeleteRemovesMetaAndLog(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSessionMeta(ctx, chat.Session{ID: "a", Title: "t", Timestamp: 1}))
	require.NoError(t, s.Put(ctx, "a", []chat.Message{{ID: 1, Role: chat.RoleUser, Content: "x"}}))

	require.NoError(t, s.Delete(ctx, "a"))

	sessions, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	msgs, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStore_EveryMutationNotifies(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	events, cancel := s.Bus().Subscribe()
	defer cancel()

	require.NoError(t, s.Put(ctx, "a", nil))
	require.NoError(t, s.PutSessionMeta(ctx, chat.Session{ID: "a", Timestamp: 1}))
	require.NoError(t, s.Delete(ctx, "a"))

	want := []store.Op{store.OpPut, store.OpMeta, store.OpDelete}
	for _, op := range want {
		select {
		case ev := <-events:
			assert.Equal(t, op, ev.Op)
			assert.Equal(t, "a", ev.SessionID)
		case <-time.After(time.Second):
			t.Fatalf("missing %s notification", op)
		}
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	b := store.NewBus()
	events, cancel := b.Subscribe()
	cancel()
	_, open := <-events
	assert.False(t, open)

	// Publishing after cancel must not panic.
	b.Publish(store.Event{Op: store.OpPut, SessionID: "x"})
}
