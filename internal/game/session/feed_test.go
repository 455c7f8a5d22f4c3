package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/idlequest/internal/game/battle"
)

func batch(text string) []battle.Event {
	return []battle.Event{{Kind: battle.EventDamage, Text: text}}
}

func TestFeed_Push(t *testing.T) {
	f := NewFeed("b1", 4)
	assert.Equal(t, "b1", f.BattleID())
	require.NoError(t, f.Push(batch("hello")))
	assert.Equal(t, batch("hello"), <-f.Events())
}

func TestFeed_PushClosed(t *testing.T) {
	f := NewFeed("b1", 4)
	require.NoError(t, f.Close())
	assert.True(t, f.IsClosed())
	assert.Error(t, f.Push(batch("fail")))
}

func TestFeed_PushFull(t *testing.T) {
	f := NewFeed("b1", 1)
	require.NoError(t, f.Push(batch("first")))
	err := f.Push(batch("overflow"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
}

func TestFeed_CloseIdempotent(t *testing.T) {
	f := NewFeed("b1", 4)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.True(t, f.IsClosed())
}

func TestProperty_FeedDeliversInOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 32).Draw(rt, "n")
		f := NewFeed("b", n)
		for i := 0; i < n; i++ {
			if err := f.Push([]battle.Event{{Seq: i}}); err != nil {
				rt.Fatalf("push %d: %v", i, err)
			}
		}
		if err := f.Push(batch("extra")); err == nil {
			rt.Fatal("expected full buffer")
		}
		for i := 0; i < n; i++ {
			got := <-f.Events()
			if got[0].Seq != i {
				rt.Fatalf("expected seq %d, got %d", i, got[0].Seq)
			}
		}
	})
}
