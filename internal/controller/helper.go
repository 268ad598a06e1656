package controller

import (
	"fmt"
	"net/http"

	"github.com/lulubrolive/server/internal/service/room"
)

const (
	headerPrefix  = "St-"
	sessionHeader = "Session"
)

func (c controller) getHeader(r *http.Request, key string) string {
	return r.Header.Get(headerPrefix + key)
}

// getParticipantId resolves the St-Session header into a participant id.
func (c controller) getParticipantId(r *http.Request) (string, error) {
	token := c.getHeader(r, sessionHeader)
	if token == "" {
		return "", fmt.Errorf("%w: %s header", ErrMissingSession, headerPrefix+sessionHeader)
	}

	return c.roomService.ParseSession(token)
}

// getOrIssueSession returns the participant of the request's session. When the
// request carries none, a new session is issued and returned alongside.
func (c controller) getOrIssueSession(r *http.Request) (string, *room.IssueSessionResponse, error) {
	if c.getHeader(r, sessionHeader) != "" {
		participantId, err := c.getParticipantId(r)
		return participantId, nil, err
	}

	session, err := c.roomService.IssueSession(r.Context())
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue session: %w", err)
	}

	return session.ParticipantId, &session, nil
}
