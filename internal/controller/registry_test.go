package controller

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientRegistry(t *testing.T) {
	r := newClientRegistry(slog.Default())

	first := &client{roomId: "room-1", participantId: "p-1"}
	second := &client{roomId: "room-1", participantId: "p-1"}
	other := &client{roomId: "room-2", participantId: "p-1"}

	assert.Nil(t, r.Add(first))
	assert.Nil(t, r.Add(other))
	assert.Same(t, first, r.Add(second))
	assert.Equal(t, 2, r.Len())

	// a replaced client does not unregister its successor
	assert.False(t, r.Remove(first))
	cl, ok := r.Get("room-1", "p-1")
	assert.True(t, ok)
	assert.Same(t, second, cl)

	assert.True(t, r.Remove(second))
	_, ok = r.Get("room-1", "p-1")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}
