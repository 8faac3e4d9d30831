// Package skills はキャラクターステータスの成長とSkill解放を提供する。
package skills

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/igoultra/ultrabackend/internal/metrics"
	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/repository"
)

// xpToStats はXPカテゴリ → ステータス別の成長比率。
// 1 XP = 0.1ステータスポイントを比率で配分する。
var xpToStats = map[model.XpCategory]map[string]float64{
	model.XpCategoryPhysical: {
		"strength":  0.3,
		"endurance": 0.4,
		"agility":   0.3,
	},
	model.XpCategoryMental: {
		"intelligence": 0.4,
		"focus":        0.3,
		"memory":       0.3,
	},
	model.XpCategoryCyber: {
		"hacking":         0.4,
		"programming":     0.3,
		"cyber_awareness": 0.3,
	},
	model.XpCategoryUltra: {
		"willpower":    0.3,
		"charisma":     0.2,
		"intuition":    0.3,
		"combat_skill": 0.2,
	},
}

// StatGains はXP量とカテゴリからステータス別の成長量を計算する。
// 未定義カテゴリは成長なし。各値は切り捨てのため少量のXPでは0になりうる。
func StatGains(amount int, category model.XpCategory) map[string]int {
	mapping, ok := xpToStats[category]
	if !ok {
		return nil
	}
	base := float64(amount) * 0.1
	gains := make(map[string]int, len(mapping))
	for name, multiplier := range mapping {
		if gain := int(base * multiplier); gain > 0 {
			gains[name] = gain
		}
	}
	return gains
}

// Service はキャラクターステータスとSkill解放を扱う。
// XP付与のコミット後フックとして登録され、アクティビティのXPカテゴリに
// 応じてステータスを成長させる。
type Service struct {
	statsRepo repository.CharacterStatsRepository
	userRepo  repository.UserRepository
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceを生成する。collectorはnilでもよい。
func NewService(
	statsRepo repository.CharacterStatsRepository,
	userRepo repository.UserRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Service {
	return &Service{
		statsRepo: statsRepo,
		userRepo:  userRepo,
		collector: collector,
		logger:    logger,
	}
}

// AfterGrant はXP付与のコミット後に呼び出され、XPカテゴリに応じて
// キャラクターステータスを成長させる。減算イベントでは何もしない。
func (s *Service) AfterGrant(ctx context.Context, userID string, activity *model.ActivityType, units float64, amount int) error {
	if amount <= 0 {
		return nil
	}
	gains := StatGains(amount, activity.Category)
	if len(gains) == 0 {
		return nil
	}
	if err := s.statsRepo.ApplyGains(ctx, userID, gains); err != nil {
		return err
	}
	s.logger.Debug("キャラクターステータスが成長しました",
		slog.String("user_id", userID),
		slog.String("category", string(activity.Category)),
		slog.Int("amount", amount),
	)
	return nil
}

// StatsForUser はユーザーの現在のキャラクターステータスを返す。
func (s *Service) StatsForUser(ctx context.Context, userID string) (*model.CharacterStats, error) {
	return s.statsRepo.FindByUser(ctx, userID)
}

// AvailableSkills は全Skillをユーザーの解放可否付きで返す。
func (s *Service) AvailableSkills(ctx context.Context, userID string) ([]*model.SkillAvailability, error) {
	skillList, err := s.statsRepo.ListSkills(ctx)
	if err != nil {
		return nil, err
	}
	userSkills, err := s.statsRepo.ListUserSkills(ctx, userID)
	if err != nil {
		return nil, err
	}
	unlocked := make(map[string]bool, len(userSkills))
	for _, us := range userSkills {
		unlocked[us.SkillID] = true
	}

	var user *model.User
	var stats *model.CharacterStats

	result := make([]*model.SkillAvailability, 0, len(skillList))
	for _, skill := range skillList {
		sa := &model.SkillAvailability{
			Skill:      *skill,
			IsUnlocked: unlocked[skill.ID],
		}
		if !sa.IsUnlocked {
			if user == nil {
				user, err = s.userRepo.FindByID(ctx, userID)
				if err != nil {
					return nil, err
				}
				if user == nil {
					return nil, model.NewUserNotFoundError()
				}
				stats, err = s.statsRepo.FindByUser(ctx, userID)
				if err != nil {
					return nil, err
				}
			}
			sa.CanUnlock, sa.Reason = checkRequirements(skill, user, stats)
		}
		result = append(result, sa)
	}
	return result, nil
}

// Unlock はSkillの解放を試みる。条件未達の場合はSkillLockedエラーを返す。
// 解放済みのSkillに対する呼び出しは冪等に成功する。
func (s *Service) Unlock(ctx context.Context, userID, skillID string) (*model.Skill, error) {
	skill, err := s.statsRepo.FindSkillByID(ctx, skillID)
	if err != nil {
		return nil, err
	}
	if skill == nil || !skill.IsActive {
		return nil, model.NewSkillNotFoundError(skillID)
	}

	userSkills, err := s.statsRepo.ListUserSkills(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, us := range userSkills {
		if us.SkillID == skillID {
			return skill, nil
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	stats, err := s.statsRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if ok, reason := checkRequirements(skill, user, stats); !ok {
		return nil, model.NewSkillLockedError(reason)
	}

	if err := s.statsRepo.CreateUserSkill(ctx, &model.UserSkill{
		ID:      uuid.New().String(),
		UserID:  userID,
		SkillID: skillID,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Skillを解放しました",
		slog.String("user_id", userID),
		slog.String("skill_id", skillID),
		slog.String("name", skill.Name),
	)
	if s.collector != nil {
		s.collector.RecordSkillUnlocked()
	}
	return skill, nil
}

// UnlockedSkills はユーザーが解放済みのSkillを返す。
func (s *Service) UnlockedSkills(ctx context.Context, userID string) ([]*model.UserSkill, error) {
	return s.statsRepo.ListUserSkills(ctx, userID)
}

// checkRequirements はSkillの解放条件を判定する。
// 条件未達の場合は最初に見つかった未達条件を理由として返す。
func checkRequirements(skill *model.Skill, user *model.User, stats *model.CharacterStats) (bool, string) {
	if user.Level < skill.RequiredLevel {
		return false, fmt.Sprintf("レベル%dが必要です（現在: %d）", skill.RequiredLevel, user.Level)
	}
	for _, name := range model.StatNames {
		required, ok := skill.RequiredStats[name]
		if !ok {
			continue
		}
		if current := stats.Stat(name); current < required {
			return false, fmt.Sprintf("%s %dが必要です（現在: %d）", name, required, current)
		}
	}
	return true, ""
}
