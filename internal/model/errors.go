// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, xp, season, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnknownActivity = "UNKNOWN_ACTIVITY"
	ErrCodeInvalidTrack    = "INVALID_TRACK"
	ErrCodeInvalidUnits    = "INVALID_UNITS"
	ErrCodeSeasonNotFound  = "SEASON_NOT_FOUND"
	ErrCodeNoActiveSeason  = "NO_ACTIVE_SEASON"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeMissionNotFound = "MISSION_NOT_FOUND"
	ErrCodeSkillNotFound   = "SKILL_NOT_FOUND"
	ErrCodeSkillLocked     = "SKILL_LOCKED"
	ErrCodeInvalidLayer    = "INVALID_LAYER"
	ErrCodeNameTaken       = "NAME_TAKEN"
	ErrCodeInvalidName     = "INVALID_NAME"
	ErrCodeInvalidURL      = "INVALID_URL"
	ErrCodeSSRFBlocked     = "SSRF_BLOCKED"
)

// NewUnknownActivityError は未登録のActivityTypeキーが指定された場合のエラーを生成する。
func NewUnknownActivityError(key string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownActivity,
		Message:  fmt.Sprintf("指定されたアクティビティが見つかりません: %s", key),
		Category: "xp",
		Action:   "アクティビティのキーを確認してください。",
	}
}

// NewInvalidTrackError は未定義のLayerトラックが指定された場合のエラーを生成する。
func NewInvalidTrackError(track string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTrack,
		Message:  fmt.Sprintf("無効なLayerトラックです: %s", track),
		Category: "validation",
		Action:   "トラックには Real-Life、Cyber、Game のいずれかを指定してください。",
	}
}

// NewInvalidUnitsError はユニット数に0が指定された場合のエラーを生成する。
// 負のユニット数は剥奪として有効であり、このエラーにはならない。
func NewInvalidUnitsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUnits,
		Message:  "ユニット数に0は指定できません。",
		Category: "validation",
		Action:   "0以外のユニット数を指定してください。",
	}
}

// NewSeasonNotFoundError はSeasonが見つからない場合のエラーを生成する。
func NewSeasonNotFoundError(seasonID string) *APIError {
	return &APIError{
		Code:     ErrCodeSeasonNotFound,
		Message:  fmt.Sprintf("指定されたSeasonが見つかりません: %s", seasonID),
		Category: "season",
		Action:   "SeasonのIDを確認してください。",
	}
}

// NewNoActiveSeasonError はアクティブなSeasonが存在しない場合のエラーを生成する。
func NewNoActiveSeasonError() *APIError {
	return &APIError{
		Code:     ErrCodeNoActiveSeason,
		Message:  "現在アクティブなSeasonはありません。",
		Category: "season",
		Action:   "次のSeasonの開始を待ってください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewMissionNotFoundError はミッションが見つからない場合のエラーを生成する。
func NewMissionNotFoundError(missionID string) *APIError {
	return &APIError{
		Code:     ErrCodeMissionNotFound,
		Message:  fmt.Sprintf("指定されたミッションが見つかりません: %s", missionID),
		Category: "validation",
		Action:   "ミッションのIDを確認してください。",
	}
}

// NewSkillNotFoundError はSkillが見つからない場合のエラーを生成する。
func NewSkillNotFoundError(skillID string) *APIError {
	return &APIError{
		Code:     ErrCodeSkillNotFound,
		Message:  fmt.Sprintf("指定されたSkillが見つかりません: %s", skillID),
		Category: "validation",
		Action:   "SkillのIDを確認してください。",
	}
}

// NewSkillLockedError は解放条件を満たしていないSkillの解放要求に対するエラーを生成する。
func NewSkillLockedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeSkillLocked,
		Message:  fmt.Sprintf("Skillの解放条件を満たしていません: %s", reason),
		Category: "validation",
		Action:   "レベルとステータスを上げてから再度お試しください。",
	}
}

// NewInvalidLayerError は未定義のLayer名が指定された場合のエラーを生成する。
func NewInvalidLayerError(layer string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLayer,
		Message:  fmt.Sprintf("無効なLayer名です: %s", layer),
		Category: "validation",
		Action:   "Layer名を確認してください。",
	}
}

// NewNameTakenError は既に使用されているultra_nameが指定された場合のエラーを生成する。
func NewNameTakenError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeNameTaken,
		Message:  fmt.Sprintf("このUltra Nameは既に使用されています: %s", name),
		Category: "validation",
		Action:   "別の名前を選択してください。",
	}
}

// NewInvalidNameError は形式要件を満たさないultra_nameが指定された場合のエラーを生成する。
func NewInvalidNameError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidName,
		Message:  fmt.Sprintf("無効なUltra Nameです: %s", reason),
		Category: "validation",
		Action:   "1〜32文字の名前を指定してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", reason),
		Category: "validation",
		Action:   "正しいURL形式（http:// または https:// で始まるURL）を入力してください。",
	}
}

// NewSSRFBlockedError はSSRFブロックエラーを生成する。
func NewSSRFBlockedError() *APIError {
	return &APIError{
		Code:     ErrCodeSSRFBlocked,
		Message:  "セキュリティポリシーにより、指定されたURLへのアクセスがブロックされました。",
		Category: "validation",
		Action:   "公開されているWebサイトのURLを入力してください。ローカルネットワークやプライベートIPへのアクセスは許可されていません。",
	}
}
