package controller

import (
	"log/slog"
	"sync"
)

// clientRegistry tracks the live connection of every participant per room.
type clientRegistry struct {
	clients map[string]*client
	mu      sync.Mutex
	logger  *slog.Logger
}

func newClientRegistry(logger *slog.Logger) *clientRegistry {
	return &clientRegistry{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

func registryKey(roomId, participantId string) string {
	return roomId + ":" + participantId
}

// Add registers cl and returns the connection it replaced, if any.
func (r *clientRegistry) Add(cl *client) *client {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(cl.roomId, cl.participantId)
	prev := r.clients[key]
	r.clients[key] = cl

	r.logger.Debug("client registered", "room_id", cl.roomId, "participant_id", cl.participantId, "replaced", prev != nil)
	return prev
}

// Remove unregisters cl unless a newer connection has already replaced it.
func (r *clientRegistry) Remove(cl *client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := registryKey(cl.roomId, cl.participantId)
	if r.clients[key] != cl {
		return false
	}

	delete(r.clients, key)
	r.logger.Debug("client removed", "room_id", cl.roomId, "participant_id", cl.participantId)
	return true
}

func (r *clientRegistry) Get(roomId, participantId string) (*client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cl, ok := r.clients[registryKey(roomId, participantId)]
	return cl, ok
}

func (r *clientRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.clients)
}
