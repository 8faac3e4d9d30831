// Package model はドメインモデルを定義する。
package model

import "time"

// RealLayers はRealitäts-Layerラダーの段位リスト。index 0が最下位。
var RealLayers = []string{
	"BaseLayer",
	"EmotionLayer",
	"FlowLayer",
	"CoreLayer",
	"UltraLayer",
}

// CyberLayers はCyber-Layerラダーの段位リスト。index 0が最下位。
var CyberLayers = []string{
	"SurfaceWebLayer",
	"DeepNetLayer",
	"DarkCodeLayer",
	"SyntheticLayer",
	"VOIDLayer",
}

// DefaultRealLayer はアカウント作成時のRealitäts-Layer初期値。
func DefaultRealLayer() string { return RealLayers[0] }

// DefaultCyberLayer はアカウント作成時のCyber-Layer初期値。
func DefaultCyberLayer() string { return CyberLayers[0] }

// LeaderboardEntry はSeason終了時点のランキングスナップショット行を表す。
// SeasonRolloverが一括作成する履歴データで、作成後は変更されない。
// 正規形は「トラックごとに1つの段位配置」の2トラック同時持ち。
// 片トラックのみのビューはこのデータのフィルタ投影として提供する。
type LeaderboardEntry struct {
	ID         string
	SeasonID   string
	UserID     string
	Track      LayerTrack // このエントリのXPが集計されたトラック
	Xp         int
	RealLayer  string // Season終了時点のRealitäts-Layer
	CyberLayer string // Season終了時点のCyber-Layer
	CreatedAt  time.Time
}

// LeaderboardEntryWithUser はスナップショット行にユーザー表示情報を結合したモデル。
type LeaderboardEntryWithUser struct {
	LeaderboardEntry
	UltraName string
	Level     int
}
