package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/igoultra/ultrabackend/internal/model"
)

// PostgresXpEventRepo はPostgreSQLを使用したXPイベント台帳リポジトリ。
// 台帳は追記専用であり、UPDATE/DELETEを発行するメソッドは存在しない。
type PostgresXpEventRepo struct {
	db *sql.DB
}

// NewPostgresXpEventRepo はPostgresXpEventRepoを生成する。
func NewPostgresXpEventRepo(db *sql.DB) *PostgresXpEventRepo {
	return &PostgresXpEventRepo{db: db}
}

// Create はXpEventを追記する。Grantトランザクションに参加するためQuerierを受け取る。
func (r *PostgresXpEventRepo) Create(ctx context.Context, q Querier, event *model.XpEvent) error {
	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("metadataのエンコードに失敗しました: %w", err)
		}
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO xp_events (id, user_id, amount, source, track, metadata, timestamp)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.UserID, event.Amount, event.Source, string(event.Track), metadata, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("XpEventの追記に失敗しました: %w", err)
	}
	return nil
}

// ListByUser はユーザーのイベント履歴を(timestamp, id)降順で返す。
// cursorがゼロ値の場合は先頭から取得する。cursorIDを併用した複合カーソルにより、
// 同一timestampのイベントがページ境界で読み飛ばされることはない。
// 次ページ有無の判定用にlimit+1件まで返す。
func (r *PostgresXpEventRepo) ListByUser(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, error) {
	query := `SELECT id, user_id, amount, source, track, metadata, timestamp
	          FROM xp_events WHERE user_id = $1`
	args := []any{userID}

	if !cursor.IsZero() {
		if cursorID != "" {
			query += ` AND (timestamp, id) < ($2::timestamptz, $3::uuid)`
			args = append(args, cursor, cursorID)
		} else {
			query += ` AND timestamp < $2`
			args = append(args, cursor)
		}
	}
	query += fmt.Sprintf(` ORDER BY timestamp DESC, id DESC LIMIT %d`, limit+1)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("XPイベント履歴の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []*model.XpEvent
	for rows.Next() {
		event := &model.XpEvent{}
		var track string
		var metadata []byte
		if err := rows.Scan(
			&event.ID, &event.UserID, &event.Amount, &event.Source,
			&track, &metadata, &event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("XPイベントの読み取りに失敗しました: %w", err)
		}
		event.Track = model.LayerTrack(track)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("metadataのデコードに失敗しました: %w", err)
			}
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("XPイベントの走査に失敗しました: %w", err)
	}

	return result, nil
}

// SumByUser はユーザーの全イベントの符号付き合計を返す（整合性検査用）。
func (r *PostgresXpEventRepo) SumByUser(ctx context.Context, userID string) (int, error) {
	var sum int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM xp_events WHERE user_id = $1`,
		userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("XPイベント合計の取得に失敗しました: %w", err)
	}
	return sum, nil
}

// compile-time interface check
var _ XpEventRepository = (*PostgresXpEventRepo)(nil)
