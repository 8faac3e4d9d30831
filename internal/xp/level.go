// Package xp はXP付与とレベル計算のドメインロジックを提供する。
package xp

import (
	"fmt"
	"math"

	"github.com/igoultra/ultrabackend/internal/model"
)

// XpForLevel はレベルnに到達するための累計XP閾値を返す。
// 計算式は floor(100 * n^1.5)。nについて単調増加する。
func XpForLevel(n int) int {
	return int(math.Floor(100 * math.Pow(float64(n), 1.5)))
}

// LevelFromXp は累計XPに対応するレベルを返す。
// XpForLevel(L) <= totalXp を満たす最大のLを線形探索で求める。
// 累計が最初の閾値に満たない場合でもレベルの下限は1。
func LevelFromXp(totalXp int) int {
	level := 1
	for XpForLevel(level+1) <= totalXp {
		level++
	}
	return level
}

// StatsFor は累計XPからレベル関連の統計をまとめて返す。
func StatsFor(totalXp int) model.XpStats {
	level := LevelFromXp(totalXp)
	nextLevel := level + 1
	nextLevelXp := XpForLevel(nextLevel)
	return model.XpStats{
		TotalXp:     totalXp,
		Level:       level,
		NextLevel:   nextLevel,
		NextLevelXp: nextLevelXp,
		XpToNext:    nextLevelXp - totalXp,
	}
}

// RankForLevel はレベルに対応する表示用ランク名を返す。
func RankForLevel(level int) string {
	return fmt.Sprintf("Level %d", level)
}
