package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/cookingstore/internal/model"
)

// ErrInvalidToken はIDトークンを表示用ユーザーとして解釈できないことを示す。
var ErrInvalidToken = errors.New("invalid identity token")

// GroupsClaim はアクセストークン上のグループクレーム名。
const GroupsClaim = "cognito:groups"

// DecodeUser はIDトークンとアクセストークンからユーザーを組み立てる。
// 署名は検証しない。IDトークンは表示用途に限定して解釈する。
// 期限切れ・不正形式・sub欠落はErrInvalidTokenを返す。
// アクセストークンが無い、または解釈できない場合はグループなしとして扱う。
func DecodeUser(tokens model.TokenSet, now time.Time) (*model.User, error) {
	claims, err := parseClaims(tokens.IDToken)
	if err != nil {
		return nil, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil && !now.Before(exp.Time) {
		return nil, fmt.Errorf("%w: token expired at %s", ErrInvalidToken, exp.Time.Format(time.RFC3339))
	}

	sub := getStringClaim(claims, "sub")
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	email := getStringClaim(claims, "email")

	user := &model.User{
		IDToken:         tokens.IDToken,
		AccessToken:     tokens.AccessToken,
		SubjectID:       sub,
		Email:           email,
		DisplayName:     displayName(claims, email),
		ProfileImageURL: getStringClaim(claims, "picture"),
	}

	if tokens.AccessToken != "" {
		if access, err := parseClaims(tokens.AccessToken); err == nil {
			user.Groups = NormalizeGroups(access[GroupsClaim])
		}
	}

	return user, nil
}

func parseClaims(token string) (jwt.MapClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// displayName はcognito:username → username → メールのローカル部 → "user" の順で表示名を決める。
func displayName(claims jwt.MapClaims, email string) string {
	if v := getStringClaim(claims, "cognito:username"); v != "" {
		return v
	}
	if v := getStringClaim(claims, "username"); v != "" {
		return v
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	return "user"
}

// NormalizeGroups はグループクレームを文字列スライスに正規化する。
// 配列、単一文字列、JSON配列文字列、カンマ区切り文字列を受け付ける。
// 値が無い場合はnilを返す。
func NormalizeGroups(v interface{}) []string {
	var raw []string

	switch g := v.(type) {
	case nil:
		return nil
	case []string:
		raw = g
	case []interface{}:
		for _, item := range g {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		s := strings.TrimSpace(g)
		if strings.HasPrefix(s, "[") {
			var parsed []string
			if err := json.Unmarshal([]byte(s), &parsed); err == nil {
				raw = parsed
				break
			}
		}
		raw = strings.Split(s, ",")
	default:
		return nil
	}

	groups := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			groups = append(groups, s)
		}
	}
	if len(groups) == 0 {
		return nil
	}
	return groups
}

func getStringClaim(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
