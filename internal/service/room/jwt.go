package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lulubrolive/server/internal/domain"
)

type Claims struct {
	ParticipantId string `json:"participant_id"`
}

func (s service) generateJWT(participantId string) (string, error) {
	claims := jwt.MapClaims{
		"participant_id": participantId,
		"iat":            s.now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s service) parseJWT(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token")
	}

	participantId, ok := claims["participant_id"].(string)
	if !ok || participantId == "" {
		return nil, errors.New("token has no participant id")
	}

	return &Claims{
		ParticipantId: participantId,
	}, nil
}

type IssueSessionResponse struct {
	Token         string `json:"token"`
	ParticipantId string `json:"participant_id"`
}

// IssueSession returns an opaque session token carrying a freshly generated
// participant identity. Callers never choose the identity.
func (s service) IssueSession(ctx context.Context) (IssueSessionResponse, error) {
	participantId := newId()

	token, err := s.generateJWT(participantId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to generate jwt", "error", err)
		return IssueSessionResponse{}, fmt.Errorf("failed to generate jwt: %w", err)
	}

	return IssueSessionResponse{
		Token:         token,
		ParticipantId: participantId,
	}, nil
}

// ParseSession returns the participant identity carried by token.
func (s service) ParseSession(token string) (string, error) {
	claims, err := s.parseJWT(token)
	if err != nil {
		return "", fmt.Errorf("%w: invalid session: %s", domain.ErrUnauthorized, err.Error())
	}

	return claims.ParticipantId, nil
}
