// Package ranking はLayerラダーの昇降とSeason Rolloverを提供する。
package ranking

import "slices"

// Movement はRollover時の段位変動を表す。
type Movement int

const (
	Stay Movement = iota
	Promote
	Demote
)

// MovementFor は0始まりの順位と参加人数からパーセンタイル p = position/total を
// 計算し、段位変動を判定する。promoteBelow未満で昇格、demoteFrom以上で降格。
func MovementFor(position, total int, promoteBelow, demoteFrom float64) Movement {
	if total <= 0 {
		return Stay
	}
	p := float64(position) / float64(total)
	switch {
	case p < promoteBelow:
		return Promote
	case p >= demoteFrom:
		return Demote
	default:
		return Stay
	}
}

// NextLayer はラダー上で1段上の段位を返す。最上位の場合はそのまま。
// 未知の段位はラダー最下位として扱う。
func NextLayer(ladder []string, current string) string {
	i := slices.Index(ladder, current)
	if i < 0 {
		i = 0
	}
	if i+1 < len(ladder) {
		return ladder[i+1]
	}
	return ladder[i]
}

// PrevLayer はラダー上で1段下の段位を返す。最下位の場合はそのまま。
// 未知の段位はラダー最下位として扱う。
func PrevLayer(ladder []string, current string) string {
	i := slices.Index(ladder, current)
	if i <= 0 {
		return ladder[0]
	}
	return ladder[i-1]
}

// ApplyMovement は段位変動をラダーに適用した結果の段位を返す。
func ApplyMovement(ladder []string, current string, m Movement) string {
	switch m {
	case Promote:
		return NextLayer(ladder, current)
	case Demote:
		return PrevLayer(ladder, current)
	default:
		if slices.Contains(ladder, current) {
			return current
		}
		return ladder[0]
	}
}
