// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/repository"
	"github.com/igoultra/ultrabackend/internal/security"
)

// ultraNameMaxLength はUltra Nameの最大文字数。
const ultraNameMaxLength = 32

// Service はユーザー管理のサービス層。
// プロフィール参照・更新と退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	sanitizer   security.ContentSanitizerService
	ssrfGuard   security.SSRFGuardService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	sanitizer security.ContentSanitizerService,
	ssrfGuard security.SSRFGuardService,
) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		sanitizer:   sanitizer,
		ssrfGuard:   ssrfGuard,
	}
}

// Profile はユーザーのプロフィールを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfileInput はプロフィール更新の入力。
// nilのフィールドは変更しない。
type UpdateProfileInput struct {
	UltraName *string
	AvatarURL *string
}

// UpdateProfile はUltra NameとアバターURLを更新する。
// Ultra Nameはサニタイズ後に一意性を検証し、アバターURLはSSRFガードで検証する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*model.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	ultraName := user.UltraName
	if in.UltraName != nil {
		ultraName = s.sanitizer.SanitizeText(*in.UltraName)
		if ultraName == "" {
			return nil, model.NewInvalidNameError("名前が空です")
		}
		if utf8.RuneCountInString(ultraName) > ultraNameMaxLength {
			return nil, model.NewInvalidNameError(fmt.Sprintf("%d文字を超えています", ultraNameMaxLength))
		}
		if ultraName != user.UltraName {
			existing, err := s.userRepo.FindByUltraName(ctx, ultraName)
			if err != nil {
				return nil, fmt.Errorf("Ultra Nameの検索に失敗しました: %w", err)
			}
			if existing != nil && existing.ID != userID {
				return nil, model.NewNameTakenError(ultraName)
			}
		}
	}

	avatarURL := user.AvatarURL
	if in.AvatarURL != nil {
		avatarURL = *in.AvatarURL
		if avatarURL != "" {
			if err := s.ssrfGuard.ValidateURL(avatarURL); err != nil {
				return nil, model.NewInvalidURLError(err.Error())
			}
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, ultraName, avatarURL); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	user.UltraName = ultraName
	user.AvatarURL = avatarURL

	slog.Info("プロフィールを更新しました",
		slog.String("user_id", userID),
		slog.String("ultra_name", ultraName),
	)
	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: identities, xp_events, season_xp,
// leaderboard_entries, mission_progress, character_stats, user_skills）
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除
	if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	// 2. ユーザーを削除（関連データはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
