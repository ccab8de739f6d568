package apiclient

import (
	"context"
	"net/http"

	"github.com/hitoshi/cookingstore/internal/model"
)

// ListUsers は管理者向けにユーザー一覧を取得する。
// 管理者グループに属さないトークンではバックエンドが403を返す。
func (c *Client) ListUsers(ctx context.Context, token string) ([]model.AdminUser, error) {
	const fallback = "Failed to fetch users"

	body, err := c.do(ctx, call{
		resource: "users",
		op:       "list_users",
		method:   http.MethodGet,
		url:      c.endpoints.API + "/Users",
		token:    token,
		auth:     true,
		fallback: fallback,
	})
	if err != nil {
		return nil, err
	}

	users := []model.AdminUser{}
	if err := decode("list_users", body, &users, fallback); err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.AdminUser{}
	}
	return users, nil
}

// RegisterUser はログイン直後にバックエンドのUsersテーブルへユーザーを登録する。
// 登録済みの場合もバックエンド側で冪等に扱われる。
func (c *Client) RegisterUser(ctx context.Context, token string) error {
	_, err := c.do(ctx, call{
		resource: "users",
		op:       "register_user",
		method:   http.MethodPost,
		url:      c.endpoints.API + "/Users",
		token:    token,
		auth:     true,
		body:     map[string]string{"source": "cognito-login"},
		fallback: "Failed to register user",
	})
	return err
}
