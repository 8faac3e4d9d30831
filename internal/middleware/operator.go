package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/igoultra/ultrabackend/internal/model"
)

// operatorTokenHeader は運用オペレーション認証用のヘッダー名。
const operatorTokenHeader = "X-Operator-Token"

// NewOperatorMiddleware は共有オペレータートークンによる認証ミドルウェアを返す。
// Season Rolloverの手動トリガーなど、運用者のみが呼び出せるエンドポイントに使う。
// tokenが空の場合、該当エンドポイントは常に404を返す（機能無効）。
func NewOperatorMiddleware(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.NotFound(w, r)
				return
			}

			provided := r.Header.Get(operatorTokenHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				slog.Warn("operator token mismatch",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr),
				)
				WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
					Code:     "FORBIDDEN",
					Message:  "この操作には運用者権限が必要です。",
					Category: "auth",
					Action:   "正しいオペレータートークンを指定してください。",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
