package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-msgbox/pkg/types"
)

func at(sec int) *time.Time {
	t := time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC)
	return &t
}

func wire(id, recipient, box string, sec int) *types.WireMessage {
	return &types.WireMessage{
		MessageID: id, Sender: "s", Recipient: recipient, MessageBox: box,
		Body: types.WireBody("body-" + id), CreatedAt: at(sec),
	}
}

// testStore 对两种实现运行相同的行为测试
func testStore(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("PutListAck", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		for _, m := range []*types.WireMessage{
			wire("b", "alice", "inbox", 2),
			wire("a", "alice", "inbox", 1),
			wire("c", "alice", "other", 3),
			wire("d", "bob", "inbox", 4),
		} {
			ok, err := s.Put(ctx, m)
			require.NoError(t, err)
			assert.True(t, ok)
		}

		msgs, err := s.List(ctx, "alice", "inbox")
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "a", msgs[0].MessageID)
		assert.Equal(t, "b", msgs[1].MessageID)
		assert.Equal(t, types.WireBody("body-a"), msgs[0].Body)

		n, err := s.Acknowledge(ctx, "alice", []string{"a", "c", "missing", "d"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		msgs, err = s.List(ctx, "alice", "inbox")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "b", msgs[0].MessageID)

		// 他人的消息不受影响
		msgs, err = s.List(ctx, "bob", "inbox")
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})

	t.Run("DuplicateIgnored", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		ok, err := s.Put(ctx, wire("x", "alice", "inbox", 1))
		require.NoError(t, err)
		assert.True(t, ok)

		dup := wire("x", "alice", "inbox", 9)
		dup.Body = "changed"
		ok, err = s.Put(ctx, dup)
		require.NoError(t, err)
		assert.False(t, ok)

		msgs, err := s.List(ctx, "alice", "inbox")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, types.WireBody("body-x"), msgs[0].Body)
	})

	t.Run("EmptyAndInvalid", func(t *testing.T) {
		s := open(t)
		defer s.Close()

		msgs, err := s.List(ctx, "nobody", "inbox")
		require.NoError(t, err)
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)

		_, err = s.Put(ctx, &types.WireMessage{MessageID: "x"})
		assert.ErrorIs(t, err, ErrInvalidMessage)
		_, err = s.Put(ctx, nil)
		assert.ErrorIs(t, err, ErrInvalidMessage)
	})

	t.Run("Closed", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Close())
		require.NoError(t, s.Close())

		_, err := s.Put(ctx, wire("x", "alice", "inbox", 1))
		assert.ErrorIs(t, err, ErrClosed)
		_, err = s.List(ctx, "alice", "inbox")
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestMemory(t *testing.T) {
	testStore(t, func(*testing.T) Store { return NewMemory() })
}

func TestBadger_InMemory(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		s, err := OpenBadger(BadgerConfig{InMemory: true})
		require.NoError(t, err)
		return s
	})
}

// TestBadger_Persistence 测试重新打开后数据仍在
func TestBadger_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "msgbox.db")

	s, err := OpenBadger(BadgerConfig{Path: path, SyncWrites: true})
	require.NoError(t, err)
	_, err = s.Put(ctx, wire("persisted", "alice", "inbox", 1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenBadger(BadgerConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()
	msgs, err := s.List(ctx, "alice", "inbox")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].MessageID)
}
