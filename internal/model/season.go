// Package model はドメインモデルを定義する。
package model

import "time"

// Season は時間で区切られた競技期間を表す。
// いかなる瞬間もis_active=trueのSeasonは最大1つ（作成・有効化パスで強制）。
// XP集計の対象となるのは、is_activeかつ現在時刻が[Start, End)に入るSeasonのみ。
// フラグと時間範囲の両方を満たす必要がある。
type Season struct {
	ID        string
	Name      string // 例: "Stärker als dein Schmerz"
	Start     time.Time
	End       time.Time // 排他的（Endちょうどは含まない）
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContainsTime は指定時刻がSeasonの期間[Start, End)に入るかどうかを判定する。
func (s *Season) ContainsTime(at time.Time) bool {
	return !at.Before(s.Start) && at.Before(s.End)
}

// SeasonXp は（Season, ユーザー, Layerトラック）ごとのSeason内XP累計を表す。
// 初回のXP付与時に遅延作成され、Seasonが閉じた後は読み取り専用になる。
type SeasonXp struct {
	ID        string
	SeasonID  string
	UserID    string
	Track     LayerTrack
	Xp        int
	CreatedAt time.Time
	UpdatedAt time.Time
}
