package view

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/cookingstore/internal/model"
)

const (
	chatFailedReply = "Sorry, something went wrong."
	chatEmptyReply  = "Sorry, no reply."
)

// maxChatMessage はチャットメッセージの最大文字数。
const maxChatMessage = 2000

// ChatReply はチャットボットの返答。
// Failedがtrueの場合、Replyは失敗時の定型文。
type ChatReply struct {
	Reply  string `json:"reply"`
	Failed bool   `json:"failed,omitempty"`
}

// Chat はメッセージをチャットボットへ転送する。空のメッセージは検証エラー。
// バックエンドの失敗はエラーにせず、定型文の返答として返す。
func (s *Service) Chat(ctx context.Context, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, model.NewInvalidRequestError("message is required")
	}
	if len([]rune(message)) > maxChatMessage {
		return nil, model.NewInvalidRequestError("message is too long")
	}

	reply, err := s.backend.Chat(ctx, message)
	if err != nil {
		s.logger.Warn("chat failed", slog.String("error", err.Error()))
		return &ChatReply{Reply: chatFailedReply, Failed: true}, nil
	}
	if strings.TrimSpace(reply) == "" {
		reply = chatEmptyReply
	}
	return &ChatReply{Reply: reply}, nil
}
