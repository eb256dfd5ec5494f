package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster(t *testing.T) {
	t.Run("fans out to every subscriber", func(t *testing.T) {
		b := NewBroadcaster(4)
		a, cancelA := b.Subscribe()
		c, cancelC := b.Subscribe()
		defer cancelA()
		defer cancelC()

		b.Publish(Event{Kind: EventProgressChanged, ProgressMS: 10})

		require.Len(t, drain(a), 1)
		require.Len(t, drain(c), 1)
	})

	t.Run("drops events for full subscribers", func(t *testing.T) {
		b := NewBroadcaster(1)
		ch, cancel := b.Subscribe()
		defer cancel()

		b.Publish(Event{Kind: EventProgressChanged, ProgressMS: 1})
		b.Publish(Event{Kind: EventProgressChanged, ProgressMS: 2})

		events := drain(ch)
		require.Len(t, events, 1)
		assert.Equal(t, 1, events[0].ProgressMS)
	})

	t.Run("cancel closes and unregisters", func(t *testing.T) {
		b := NewBroadcaster(1)
		ch, cancel := b.Subscribe()
		require.Equal(t, 1, b.Subscribers())

		cancel()
		cancel()

		_, ok := <-ch
		assert.False(t, ok)
		assert.Equal(t, 0, b.Subscribers())
		assert.NotPanics(t, func() { b.Publish(Event{}) })
	})

	t.Run("close", func(t *testing.T) {
		b := NewBroadcaster(1)
		ch, cancel := b.Subscribe()
		b.Close()
		b.Close()
		cancel()

		_, ok := <-ch
		assert.False(t, ok)

		late, _ := b.Subscribe()
		_, ok = <-late
		assert.False(t, ok)
	})

	t.Run("event kind names", func(t *testing.T) {
		assert.Equal(t, "state_changed", EventStateChanged.String())
		assert.Equal(t, "progress_changed", EventProgressChanged.String())
		assert.Equal(t, "locality_changed", EventLocalityChanged.String())
	})
}
