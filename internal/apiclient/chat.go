package apiclient

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"
)

// Chat はチャットボットにメッセージを送り、返答を返す。
// 応答にreplyが無い場合は空文字を返す。
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	body, err := c.do(ctx, call{
		resource: "chat",
		op:       "chat",
		method:   http.MethodPost,
		url:      c.endpoints.Chat + "/chat",
		body:     map[string]string{"message": message},
		fallback: "Sorry, something went wrong.",
	})
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "reply").String(), nil
}
