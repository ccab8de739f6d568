// Package apiclient はレシピ共有バックエンド（API Gateway + Lambda）のクライアントを提供する。
// リソースごとに1つのメソッドを持ち、通信失敗は分類済みの*model.BackendErrorとして返す。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hitoshi/cookingstore/internal/metrics"
	"github.com/hitoshi/cookingstore/internal/model"
)

// maxResponseSize はレスポンスボディの最大読み取りサイズ。
const maxResponseSize = 5 << 20

// Endpoints はリソース群ごとのベースURL。
type Endpoints struct {
	Recipes    string // get-recipes
	Categories string // Category
	API        string // Recipes, Users, Favorites, Review, Rating
	Chat       string // chat
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	endpoints  Endpoints

	// PageSize はレシピ一覧の1ページ件数。0の場合はバックエンドの既定値に任せる。
	PageSize int
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, endpoints Endpoints, mc metrics.MetricsCollector, logger *slog.Logger) *Client {
	if mc == nil {
		mc = metrics.Nop{}
	}
	endpoints.Recipes = strings.TrimRight(endpoints.Recipes, "/")
	endpoints.Categories = strings.TrimRight(endpoints.Categories, "/")
	endpoints.API = strings.TrimRight(endpoints.API, "/")
	endpoints.Chat = strings.TrimRight(endpoints.Chat, "/")
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    mc,
		endpoints:  endpoints,
	}
}

// call は1回のバックエンド呼び出しを表す。
type call struct {
	resource string // メトリクスのリソースラベル
	op       string // 操作名
	method   string
	url      string
	token    string
	auth     bool // trueの場合トークン必須
	body     interface{}
	fallback string // ボディからメッセージを取れない場合の汎用メッセージ
}

// do はリクエストを実行し、2xxの場合はレスポンスボディを返す。
// トークン必須の操作でトークンが空の場合はネットワーク呼び出し前にErrNotAuthenticatedを返す。
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	if cl.auth && cl.token == "" {
		return nil, model.ErrNotAuthenticated
	}

	var reader io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", cl.op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordBackendCall(cl.resource, cl.op, 0, time.Since(start))
		c.logger.Error("backend request failed",
			slog.String("op", cl.op),
			slog.String("error", err.Error()),
		)
		return nil, &model.BackendError{Op: cl.op, Kind: model.KindTransport, Message: cl.fallback, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	c.metrics.RecordBackendCall(cl.resource, cl.op, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &model.BackendError{Op: cl.op, Kind: model.KindTransport, StatusCode: resp.StatusCode, Message: cl.fallback, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := extractMessage(body, cl.fallback)
		c.logger.Warn("backend returned error status",
			slog.String("op", cl.op),
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", msg),
		)
		return nil, &model.BackendError{Op: cl.op, Kind: model.KindStatus, StatusCode: resp.StatusCode, Message: msg}
	}

	return unwrapEnvelope(body), nil
}

// extractMessage はエラーレスポンスのJSONからerror、message、replyの順にメッセージを取り出す。
func extractMessage(body []byte, fallback string) string {
	if !gjson.ValidBytes(body) {
		return fallback
	}
	for _, field := range []string{"error", "message", "reply"} {
		if v := gjson.GetBytes(body, field); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return fallback
}

// unwrapEnvelope はLambdaプロキシ統合の {"statusCode":..., "body":"<json>"} 形式を展開する。
func unwrapEnvelope(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return trimmed
	}
	inner := gjson.GetBytes(trimmed, "body")
	if inner.Type != gjson.String {
		return trimmed
	}
	return bytes.TrimSpace([]byte(inner.String()))
}

// decode はレスポンスJSONをvへデコードする。空ボディはゼロ値のまま成功とする。
func decode(op string, body []byte, v interface{}, fallback string) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &model.BackendError{Op: op, Kind: model.KindParse, Message: fallback, Err: err}
	}
	return nil
}
