package ranking

import (
	"testing"

	"github.com/igoultra/ultrabackend/internal/model"
)

// TestMovementFor_PercentileBoundaries はパーセンタイル境界での昇降判定を検証する。
func TestMovementFor_PercentileBoundaries(t *testing.T) {
	const (
		promoteBelow = 0.10
		demoteFrom   = 0.80
	)

	tests := []struct {
		name     string
		position int
		total    int
		want     Movement
	}{
		{"100人中1位は昇格", 0, 100, Promote},
		{"100人中10位はp=0.09で昇格", 9, 100, Promote},
		{"100人中11位はp=0.10で現状維持", 10, 100, Stay},
		{"100人中80位はp=0.79で現状維持", 79, 100, Stay},
		{"100人中81位はp=0.80で降格", 80, 100, Demote},
		{"100人中100位は降格", 99, 100, Demote},
		{"1人参加は1位でp=0なので昇格", 0, 1, Promote},
		{"10人中1位はp=0で昇格", 0, 10, Promote},
		{"10人中2位はp=0.10で現状維持", 1, 10, Stay},
		{"10人中9位はp=0.80で降格", 8, 10, Demote},
		{"参加者0人は現状維持", 0, 0, Stay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MovementFor(tt.position, tt.total, promoteBelow, demoteFrom)
			if got != tt.want {
				t.Errorf("MovementFor(%d, %d) = %v, want %v", tt.position, tt.total, got, tt.want)
			}
		})
	}
}

// TestMovementFor_SymmetricPolicy は対称10/10ポリシーでの判定を検証する。
func TestMovementFor_SymmetricPolicy(t *testing.T) {
	if got := MovementFor(89, 100, 0.10, 0.90); got != Stay {
		t.Errorf("position 89 with demoteFrom=0.90 = %v, want Stay", got)
	}
	if got := MovementFor(90, 100, 0.10, 0.90); got != Demote {
		t.Errorf("position 90 with demoteFrom=0.90 = %v, want Demote", got)
	}
}

// TestNextLayer_ClampsAtTop は最上位からの昇格が最上位に留まることを検証する。
func TestNextLayer_ClampsAtTop(t *testing.T) {
	if got := NextLayer(model.RealLayers, "BaseLayer"); got != "EmotionLayer" {
		t.Errorf("NextLayer(BaseLayer) = %q, want EmotionLayer", got)
	}
	if got := NextLayer(model.RealLayers, "UltraLayer"); got != "UltraLayer" {
		t.Errorf("NextLayer(UltraLayer) = %q, want UltraLayer", got)
	}
	if got := NextLayer(model.CyberLayers, "VOIDLayer"); got != "VOIDLayer" {
		t.Errorf("NextLayer(VOIDLayer) = %q, want VOIDLayer", got)
	}
}

// TestPrevLayer_ClampsAtBottom は最下位からの降格が最下位に留まることを検証する。
func TestPrevLayer_ClampsAtBottom(t *testing.T) {
	if got := PrevLayer(model.RealLayers, "EmotionLayer"); got != "BaseLayer" {
		t.Errorf("PrevLayer(EmotionLayer) = %q, want BaseLayer", got)
	}
	if got := PrevLayer(model.RealLayers, "BaseLayer"); got != "BaseLayer" {
		t.Errorf("PrevLayer(BaseLayer) = %q, want BaseLayer", got)
	}
	if got := PrevLayer(model.CyberLayers, "SurfaceWebLayer"); got != "SurfaceWebLayer" {
		t.Errorf("PrevLayer(SurfaceWebLayer) = %q, want SurfaceWebLayer", got)
	}
}

// TestLadder_UnknownLayerTreatedAsBottom は未知の段位が最下位扱いになることを検証する。
func TestLadder_UnknownLayerTreatedAsBottom(t *testing.T) {
	if got := NextLayer(model.RealLayers, "LegacyLayer"); got != "EmotionLayer" {
		t.Errorf("NextLayer(unknown) = %q, want EmotionLayer", got)
	}
	if got := PrevLayer(model.RealLayers, "LegacyLayer"); got != "BaseLayer" {
		t.Errorf("PrevLayer(unknown) = %q, want BaseLayer", got)
	}
	if got := ApplyMovement(model.RealLayers, "LegacyLayer", Stay); got != "BaseLayer" {
		t.Errorf("ApplyMovement(unknown, Stay) = %q, want BaseLayer", got)
	}
}

// TestApplyMovement はMovementがラダー上の移動に変換されることを検証する。
func TestApplyMovement(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		movement Movement
		want     string
	}{
		{"昇格", "FlowLayer", Promote, "CoreLayer"},
		{"降格", "FlowLayer", Demote, "EmotionLayer"},
		{"現状維持", "FlowLayer", Stay, "FlowLayer"},
		{"最上位で昇格", "UltraLayer", Promote, "UltraLayer"},
		{"最下位で降格", "BaseLayer", Demote, "BaseLayer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyMovement(model.RealLayers, tt.current, tt.movement)
			if got != tt.want {
				t.Errorf("ApplyMovement(%q, %v) = %q, want %q", tt.current, tt.movement, got, tt.want)
			}
		})
	}
}
