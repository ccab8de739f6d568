package view

import (
	"context"
	"strings"

	"github.com/hitoshi/cookingstore/internal/model"
	"github.com/hitoshi/cookingstore/internal/session"
)

// 管理画面の表示用ステータス
const (
	StatusActive   = "active"
	StatusPending  = "pending"
	StatusInactive = "inactive"
	StatusUnknown  = "unknown"
)

const defaultRole = "user"

// AdminUserRow は管理画面のユーザー一覧の1行。
type AdminUserRow struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

// AdminStats は管理画面の集計値。検索条件に関係なく全ユーザーで数える。
type AdminStats struct {
	TotalUsers  int `json:"totalUsers"`
	ActiveUsers int `json:"activeUsers"`
	Admins      int `json:"admins"`
}

// AdminPage は管理画面のビューモデル。
type AdminPage struct {
	Users []AdminUserRow `json:"users"`
	Stats AdminStats     `json:"stats"`
	Query string         `json:"query,omitempty"`
}

// Admin はユーザー一覧を返す。queryはユーザー名、メール、ロールの部分一致で絞り込む。
// 管理者かどうかの判定はルーティング側のガードで済んでいる前提。
func (s *Service) Admin(ctx context.Context, st session.State, query string) (*AdminPage, error) {
	if !st.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}

	users, err := s.backend.ListUsers(ctx, st.Token())
	if err != nil {
		return nil, err
	}

	page := &AdminPage{Users: []AdminUserRow{}, Query: query}
	q := strings.ToLower(strings.TrimSpace(query))

	for _, u := range users {
		row := AdminUserRow{
			ID:       u.UserID,
			Username: u.UserName,
			Email:    u.Email,
			Role:     u.Role,
			Status:   mapStatus(u.Status),
		}
		if row.Role == "" {
			row.Role = defaultRole
		}

		page.Stats.TotalUsers++
		if row.Status == StatusActive {
			page.Stats.ActiveUsers++
		}
		if strings.EqualFold(row.Role, "admin") {
			page.Stats.Admins++
		}

		if q == "" || matches(row, q) {
			page.Users = append(page.Users, row)
		}
	}
	return page, nil
}

func matches(row AdminUserRow, q string) bool {
	return strings.Contains(strings.ToLower(row.Username), q) ||
		strings.Contains(strings.ToLower(row.Email), q) ||
		strings.Contains(strings.ToLower(row.Role), q)
}

// mapStatus はCognitoのユーザーステータスを表示用に変換する。
func mapStatus(status string) string {
	switch status {
	case "CONFIRMED":
		return StatusActive
	case "UNCONFIRMED":
		return StatusPending
	case "ARCHIVED":
		return StatusInactive
	default:
		return StatusUnknown
	}
}
