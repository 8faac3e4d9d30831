// Package model はドメインモデルを定義する。
package model

import "time"

// MissionType はミッションの周期種別を表す。
type MissionType string

const (
	MissionTypeDaily    MissionType = "daily"
	MissionTypeWeekly   MissionType = "weekly"
	MissionTypeSeasonal MissionType = "seasonal"
)

// Mission はユーザーに提示される課題を表す。
// 管理者が作成し、対象ユニットの活動量がTargetValueに達すると完了になる。
type Mission struct {
	ID          string
	Title       string
	Description string // 保存前にサニタイズされる
	Type        MissionType
	Unit        string // 対象ユニット（ActivityType.key または "xp_gained"）
	TargetValue int

	// 報酬
	XpReward         int
	GoldReward       int
	UltraPointReward int

	// 時間制限（任意）
	StartTime *time.Time
	EndTime   *time.Time

	// 季節ミッションの場合のみ設定される
	SeasonID *string

	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveAt はミッションが指定時刻に受付中かどうかを判定する。
// Seasonとの突き合わせは呼び出し側（サービス層）が行う。
func (m *Mission) ActiveAt(at time.Time) bool {
	if !m.IsActive {
		return false
	}
	if m.StartTime != nil && at.Before(*m.StartTime) {
		return false
	}
	if m.EndTime != nil && at.After(*m.EndTime) {
		return false
	}
	return true
}

// MissionProgress はユーザーごとのミッション進捗を表す。
// (user, mission) で一意。CurrentValueがTargetValueに達すると完了になる。
type MissionProgress struct {
	ID           string
	UserID       string
	MissionID    string
	CurrentValue int
	IsCompleted  bool
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MissionProgressWithMission は進捗とミッション定義を結合したモデル。
type MissionProgressWithMission struct {
	MissionProgress
	Mission Mission
}
