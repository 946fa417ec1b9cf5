package feed

import (
	"testing"

	"github.com/hsautopilot/tracker-go/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishOrder(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.Subscribe(func(s game.Snapshot) { got = append(got, "a:"+s.GameID) })
	bus.Subscribe(func(s game.Snapshot) { got = append(got, "b:"+s.GameID) })
	assert.Equal(t, -1, bus.Subscribe(nil))
	assert.Equal(t, 2, bus.Len())

	bus.Publish(game.Snapshot{GameID: "g1"})
	assert.Equal(t, []string{"a:g1", "b:g1"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	h := bus.Subscribe(func(game.Snapshot) { calls++ })

	bus.Publish(game.Snapshot{})
	bus.Unsubscribe(h)
	bus.Unsubscribe(h)
	bus.Publish(game.Snapshot{})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, bus.Len())
}

func TestBusLatest(t *testing.T) {
	bus := NewBus()
	_, ok := bus.Latest()
	assert.False(t, ok)

	bus.Publish(game.Snapshot{GameID: "g1", Turn: 1})
	bus.Publish(game.Snapshot{GameID: "g1", Turn: 2})

	latest, ok := bus.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, latest.Turn)

	bus.Reset()
	_, ok = bus.Latest()
	assert.False(t, ok)
}

func TestBusListenerMaySubscribe(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(func(game.Snapshot) {
		bus.Subscribe(func(game.Snapshot) {})
	})

	bus.Publish(game.Snapshot{})
	assert.Equal(t, 2, bus.Len())
}
