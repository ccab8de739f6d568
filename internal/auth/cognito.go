// Package auth はCognito Hosted UIとの認可コードフローとトークンのクレーム解析を提供する。
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/cookingstore/internal/model"
)

// ErrMissingIDToken はトークンエンドポイントの応答にid_tokenが含まれないことを示す。
var ErrMissingIDToken = errors.New("token response has no id_token")

// CognitoConfig はCognito Hosted UIの設定。
type CognitoConfig struct {
	// Domain はHosted UIのドメイン。スキームを省略した場合はhttpsとみなす。
	Domain       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string

	// HTTPClient はトークン交換に使用するクライアント。nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client
}

// CognitoProvider はCognitoの認可コードフローを提供する。
type CognitoProvider struct {
	config  CognitoConfig
	baseURL string
}

// NewCognitoProvider はCognitoProviderを生成する。
func NewCognitoProvider(config CognitoConfig) *CognitoProvider {
	if config.Scope == "" {
		config.Scope = "openid email profile"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	base := strings.TrimRight(config.Domain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}

	return &CognitoProvider{config: config, baseURL: base}
}

// LoginURL はHosted UIのログインURLを生成する。
// ブラウザはこのURLへ全画面遷移し、認可後にRedirectURLへcode付きで戻る。
func (p *CognitoProvider) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"response_type": {"code"},
		"scope":         {p.config.Scope},
		"redirect_uri":  {p.config.RedirectURL},
	}
	if state != "" {
		params.Set("state", state)
	}
	return p.baseURL + "/login?" + params.Encode()
}

// LogoutURL はHosted UIのログアウトURLを生成する。
func (p *CognitoProvider) LogoutURL(logoutRedirect string) string {
	params := url.Values{
		"client_id":  {p.config.ClientID},
		"logout_uri": {logoutRedirect},
	}
	return p.baseURL + "/logout?" + params.Encode()
}

// cognitoTokenResponse はトークンエンドポイントのレスポンス。
type cognitoTokenResponse struct {
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode は認可コードをトークンに交換する。
// redirect_uriは認可リクエスト時と完全に一致している必要がある。
func (p *CognitoProvider) ExchangeCode(ctx context.Context, code string) (*model.TokenSet, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {p.config.ClientID},
		"code":         {code},
		"redirect_uri": {p.config.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp cognitoTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.IDToken == "" {
		return nil, ErrMissingIDToken
	}

	return &model.TokenSet{
		IDToken:     tokenResp.IDToken,
		AccessToken: tokenResp.AccessToken,
	}, nil
}
