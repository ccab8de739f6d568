// Package model はドメインモデルを定義する。
package model

import "strings"

// User はIDトークンをデコードして得たログインユーザーを表す。
// Session Managerのみが生成し、利用側には読み取り専用のコピーを渡す。
type User struct {
	IDToken         string
	AccessToken     string
	SubjectID       string
	Email           string
	DisplayName     string
	ProfileImageURL string
	Groups          []string
}

// HasGroup はユーザーが指定グループに所属しているかを返す。
// グループ名の比較は大文字小文字を区別しない。
func (u *User) HasGroup(group string) bool {
	if u == nil {
		return false
	}
	for _, g := range u.Groups {
		if strings.EqualFold(g, group) {
			return true
		}
	}
	return false
}

// Clone はUserのディープコピーを返す。
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Groups != nil {
		c.Groups = append([]string(nil), u.Groups...)
	}
	return &c
}

// TokenSet はIdPのトークンエンドポイントから受け取ったトークンの組を表す。
// AccessTokenは任意。
type TokenSet struct {
	IDToken     string
	AccessToken string
}

// AdminUser は管理画面に表示するユーザー情報を表す。
// バックエンドのUsersテーブルの形に合わせる。
type AdminUser struct {
	UserID   string `json:"UserID"`
	Email    string `json:"email"`
	UserName string `json:"user_name"`
	Role     string `json:"role,omitempty"`
	Status   string `json:"status,omitempty"`
}
