package room

import (
	"context"
	"fmt"
	"strings"

	"github.com/lulubrolive/server/internal/domain"
	"github.com/lulubrolive/server/internal/repository/room"
)

type SendMessageParams struct {
	RoomId  string `json:"room_id"`
	UserId  string `json:"user_id"`
	Content string `json:"content"`
}

// SendMessage appends a chat message. Only approved members may chat.
func (s service) SendMessage(ctx context.Context, params *SendMessageParams) (domain.Message, error) {
	content := strings.TrimSpace(params.Content)

	if err := validateField("room_id", params.RoomId, RoomIdRule...); err != nil {
		return domain.Message{}, err
	}

	if err := validateField("content", content, MessageContentRule...); err != nil {
		return domain.Message{}, err
	}

	author, err := s.getActor(ctx, params.RoomId, params.UserId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get author", "error", err)
		return domain.Message{}, fmt.Errorf("failed to get author: %w", err)
	}

	if author == nil || !author.IsApproved() {
		return domain.Message{}, fmt.Errorf("%w: waiting for approval", domain.ErrUnauthorized)
	}

	msg := domain.Message{
		ID:        newId(),
		RoomID:    params.RoomId,
		UserID:    author.UserID,
		Username:  author.Username,
		Content:   content,
		CreatedAt: s.now(),
	}

	if err := s.roomRepo.InsertMessage(ctx, &room.InsertMessageParams{Message: msg}); err != nil {
		s.logger.InfoContext(ctx, "failed to insert message", "error", err)
		return domain.Message{}, fmt.Errorf("failed to insert message: %w", storeErr(err))
	}

	return msg, nil
}

type ListMessagesParams struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
}

// ListMessages returns the latest messages in ascending order, for approved members only.
func (s service) ListMessages(ctx context.Context, params *ListMessagesParams) ([]domain.Message, error) {
	if err := validateField("room_id", params.RoomId, RoomIdRule...); err != nil {
		return nil, err
	}

	reader, err := s.getActor(ctx, params.RoomId, params.UserId)
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get reader", "error", err)
		return nil, fmt.Errorf("failed to get reader: %w", err)
	}

	if reader == nil || !reader.IsApproved() {
		return nil, fmt.Errorf("%w: waiting for approval", domain.ErrUnauthorized)
	}

	messages, err := s.roomRepo.GetMessages(ctx, &room.GetMessagesParams{
		RoomID: params.RoomId,
		Limit:  s.messagesLimit,
	})
	if err != nil {
		s.logger.InfoContext(ctx, "failed to get messages", "error", err)
		return nil, fmt.Errorf("failed to get messages: %w", storeErr(err))
	}

	return messages, nil
}
