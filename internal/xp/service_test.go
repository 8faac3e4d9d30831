package xp

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/igoultra/ultrabackend/internal/model"
	"github.com/igoultra/ultrabackend/internal/repository"
)

// --- トランザクション用フェイクドライバ ---
// リポジトリはモックでSQLを実行しないため、BeginTx/Commit/Rollbackだけが
// 動作する最小限のdatabase/sqlドライバで十分。

type fakeDriver struct{}

func (fakeDriver) Open(name string) (driver.Conn, error) { return &fakeConn{}, nil }

type fakeConn struct{}

func (*fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare is not supported")
}
func (*fakeConn) Close() error              { return nil }
func (*fakeConn) Begin() (driver.Tx, error) { return fakeTx{}, nil }

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

func init() {
	sql.Register("ledgertest", fakeDriver{})
}

func newFakeDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("ledgertest", "")
	if err != nil {
		t.Fatalf("failed to open fake db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// --- モック ---

type mockActivityRepo struct {
	findByKeyFn func(ctx context.Context, key string) (*model.ActivityType, error)
	listFn      func(ctx context.Context) ([]*model.ActivityType, error)
}

func (m *mockActivityRepo) FindByKey(ctx context.Context, key string) (*model.ActivityType, error) {
	if m.findByKeyFn != nil {
		return m.findByKeyFn(ctx, key)
	}
	return nil, nil
}
func (m *mockActivityRepo) List(ctx context.Context) ([]*model.ActivityType, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockActivityRepo) Create(ctx context.Context, at *model.ActivityType) error {
	return nil
}

type mockEventRepo struct {
	createFn     func(ctx context.Context, q repository.Querier, event *model.XpEvent) error
	listByUserFn func(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, error)
}

func (m *mockEventRepo) Create(ctx context.Context, q repository.Querier, event *model.XpEvent) error {
	if m.createFn != nil {
		return m.createFn(ctx, q, event)
	}
	return nil
}
func (m *mockEventRepo) ListByUser(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, userID, cursor, cursorID, limit)
	}
	return nil, nil
}
func (m *mockEventRepo) SumByUser(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

type mockLedgerUserRepo struct {
	findByIDFn     func(ctx context.Context, id string) (*model.User, error)
	applyXpDeltaFn func(ctx context.Context, q repository.Querier, id string, delta int) (int, int, error)
	updateLevelFn  func(ctx context.Context, q repository.Querier, id string, level int, rank string) error
}

func (m *mockLedgerUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockLedgerUserRepo) FindByUltraName(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}
func (m *mockLedgerUserRepo) CreateWithIdentity(_ context.Context, _ *model.User, _ *model.Identity) error {
	return nil
}
func (m *mockLedgerUserRepo) UpdateProfile(_ context.Context, _, _, _ string) error {
	return nil
}
func (m *mockLedgerUserRepo) ApplyXpDelta(ctx context.Context, q repository.Querier, id string, delta int) (int, int, error) {
	if m.applyXpDeltaFn != nil {
		return m.applyXpDeltaFn(ctx, q, id, delta)
	}
	return delta, 1, nil
}
func (m *mockLedgerUserRepo) UpdateLevel(ctx context.Context, q repository.Querier, id string, level int, rank string) error {
	if m.updateLevelFn != nil {
		return m.updateLevelFn(ctx, q, id, level, rank)
	}
	return nil
}
func (m *mockLedgerUserRepo) UpdateLayers(_ context.Context, _ repository.Querier, _, _, _ string) error {
	return nil
}
func (m *mockLedgerUserRepo) FindLayers(_ context.Context, _ repository.Querier, _ string) (string, string, error) {
	return model.DefaultRealLayer(), model.DefaultCyberLayer(), nil
}
func (m *mockLedgerUserRepo) DeleteByID(_ context.Context, _ string) error {
	return nil
}

type mockSeasonRepo struct {
	findActiveFn func(ctx context.Context) (*model.Season, error)
}

func (m *mockSeasonRepo) FindByID(_ context.Context, _ string) (*model.Season, error) {
	return nil, nil
}
func (m *mockSeasonRepo) FindActive(ctx context.Context) (*model.Season, error) {
	if m.findActiveFn != nil {
		return m.findActiveFn(ctx)
	}
	return nil, nil
}
func (m *mockSeasonRepo) Activate(_ context.Context, _ repository.Querier, _ string) error {
	return nil
}
func (m *mockSeasonRepo) Deactivate(_ context.Context, _ repository.Querier, _ string) error {
	return nil
}
func (m *mockSeasonRepo) Create(_ context.Context, _ repository.Querier, _ *model.Season) error {
	return nil
}

type mockSeasonXpRepo struct {
	incrementFn func(ctx context.Context, q repository.Querier, seasonID, userID string, track model.LayerTrack, amount int) error
}

func (m *mockSeasonXpRepo) Increment(ctx context.Context, q repository.Querier, seasonID, userID string, track model.LayerTrack, amount int) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, q, seasonID, userID, track, amount)
	}
	return nil
}
func (m *mockSeasonXpRepo) RankedBySeasonAndTrack(_ context.Context, _ repository.Querier, _ string, _ model.LayerTrack) ([]*model.SeasonXp, error) {
	return nil, nil
}
func (m *mockSeasonXpRepo) FindBySeasonUserTrack(_ context.Context, _, _ string, _ model.LayerTrack) (*model.SeasonXp, error) {
	return nil, nil
}

// recordingHook は呼び出しを記録するGrantHook。
type recordingHook struct {
	name  string
	calls *[]string
	err   error
}

func (h *recordingHook) AfterGrant(ctx context.Context, userID string, activity *model.ActivityType, units float64, amount int) error {
	*h.calls = append(*h.calls, h.name)
	return h.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func pushupsActivity() *model.ActivityType {
	return &model.ActivityType{
		ID:          "at-1",
		Key:         "pushups",
		DisplayName: "Push-ups",
		XpPerUnit:   5,
		Unit:        "repetition",
		Category:    model.XpCategoryPhysical,
	}
}

func newTestLedger(
	t *testing.T,
	activityRepo repository.ActivityTypeRepository,
	eventRepo repository.XpEventRepository,
	userRepo repository.UserRepository,
	seasonRepo repository.SeasonRepository,
	seasonXpRepo repository.SeasonXpRepository,
) *Ledger {
	t.Helper()
	return NewLedger(newFakeDB(t), activityRepo, eventRepo, userRepo, seasonRepo, seasonXpRepo, nil, testLogger())
}

// --- テスト ---

// TestGrant_ComputesAmountAndRecordsEvent は付与量の計算と台帳追記を検証する。
func TestGrant_ComputesAmountAndRecordsEvent(t *testing.T) {
	var recorded *model.XpEvent
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}
	eventRepo := &mockEventRepo{
		createFn: func(ctx context.Context, q repository.Querier, event *model.XpEvent) error {
			recorded = event
			return nil
		},
	}
	userRepo := &mockLedgerUserRepo{
		applyXpDeltaFn: func(ctx context.Context, q repository.Querier, id string, delta int) (int, int, error) {
			return 100, 1, nil
		},
	}

	ledger := newTestLedger(t, activityRepo, eventRepo, userRepo, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	stats, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       20,
	})
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}

	// 20回 * 5 XP = 100 XP
	if recorded == nil {
		t.Fatal("expected event to be recorded")
	}
	if recorded.Amount != 100 {
		t.Errorf("event amount = %d, want 100", recorded.Amount)
	}
	if recorded.Source != "pushups" {
		t.Errorf("event source = %q, want %q", recorded.Source, "pushups")
	}
	// トラック未指定はReal-Lifeに解決される
	if recorded.Track != model.LayerTrackRealLife {
		t.Errorf("event track = %q, want %q", recorded.Track, model.LayerTrackRealLife)
	}

	if stats.TotalXp != 100 {
		t.Errorf("stats.TotalXp = %d, want 100", stats.TotalXp)
	}
	if stats.AwardedXp != 100 {
		t.Errorf("stats.AwardedXp = %d, want 100", stats.AwardedXp)
	}
	if stats.Level != 1 {
		t.Errorf("stats.Level = %d, want 1", stats.Level)
	}
	if stats.LeveledUp {
		t.Error("100 XP should not level up from level 1")
	}
}

// TestGrant_LevelUp_UpdatesLevelAndRank は閾値超えでレベルと表示ランクが更新されることを検証する。
func TestGrant_LevelUp_UpdatesLevelAndRank(t *testing.T) {
	var updatedLevel int
	var updatedRank string

	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}
	userRepo := &mockLedgerUserRepo{
		applyXpDeltaFn: func(ctx context.Context, q repository.Querier, id string, delta int) (int, int, error) {
			// 適用後300 XP、適用前はレベル1
			return 300, 1, nil
		},
		updateLevelFn: func(ctx context.Context, q repository.Querier, id string, level int, rank string) error {
			updatedLevel = level
			updatedRank = rank
			return nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, userRepo, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	stats, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       60,
	})
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}

	// 300 XP はレベル2の閾値282を超える
	if updatedLevel != 2 {
		t.Errorf("updated level = %d, want 2", updatedLevel)
	}
	if updatedRank != "Level 2" {
		t.Errorf("updated rank = %q, want %q", updatedRank, "Level 2")
	}
	if !stats.LeveledUp {
		t.Error("expected LeveledUp = true")
	}
	if stats.Level != 2 {
		t.Errorf("stats.Level = %d, want 2", stats.Level)
	}
}

// TestGrant_UnknownActivity_AbortsWithoutWrites は未知のアクティビティで
// 何も書き込まれないことを検証する。
func TestGrant_UnknownActivity_AbortsWithoutWrites(t *testing.T) {
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return nil, nil
		},
	}
	eventRepo := &mockEventRepo{
		createFn: func(ctx context.Context, q repository.Querier, event *model.XpEvent) error {
			t.Error("event should not be recorded for unknown activity")
			return nil
		},
	}

	ledger := newTestLedger(t, activityRepo, eventRepo, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	_, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "teleportation",
		Units:       1,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUnknownActivity {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUnknownActivity)
	}
}

// TestGrant_ZeroUnits_ReturnsError はunits=0がINVALID_UNITSになることを検証する。
func TestGrant_ZeroUnits_ReturnsError(t *testing.T) {
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	_, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       0,
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidUnits {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidUnits)
	}
}

// TestGrant_NegativeUnits_DeductsXp は負のユニットによる剥奪を検証する。
// 累計はリポジトリ側で0未満に落ちないため、+50の後の-200は累計0になる。
func TestGrant_NegativeUnits_DeductsXp(t *testing.T) {
	var recorded *model.XpEvent
	var appliedDelta int
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}
	eventRepo := &mockEventRepo{
		createFn: func(ctx context.Context, q repository.Querier, event *model.XpEvent) error {
			recorded = event
			return nil
		},
	}
	userRepo := &mockLedgerUserRepo{
		applyXpDeltaFn: func(ctx context.Context, q repository.Querier, id string, delta int) (int, int, error) {
			appliedDelta = delta
			// 累計50から-200を適用するとDB側のGREATESTで0に床打ちされる
			return 0, 1, nil
		},
	}

	ledger := newTestLedger(t, activityRepo, eventRepo, userRepo, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	stats, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       -40,
	})
	if err != nil {
		t.Fatalf("Grant failed: %v", err)
	}

	if appliedDelta != -200 {
		t.Errorf("applied delta = %d, want -200", appliedDelta)
	}
	if recorded == nil {
		t.Fatal("expected event to be recorded")
	}
	if recorded.Amount != -200 {
		t.Errorf("event amount = %d, want -200", recorded.Amount)
	}
	if stats.AwardedXp != -200 {
		t.Errorf("AwardedXp = %d, want -200", stats.AwardedXp)
	}
	if stats.TotalXp != 0 {
		t.Errorf("TotalXp = %d, want 0", stats.TotalXp)
	}
}

// TestGrant_InvalidTrack_ReturnsError は未定義トラックがINVALID_TRACKになることを検証する。
func TestGrant_InvalidTrack_ReturnsError(t *testing.T) {
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	_, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       10,
		Track:       model.LayerTrack("Astral"),
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidTrack {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidTrack)
	}
}

// TestGrant_ActiveSeason_IncrementsSeasonXp はアクティブSeason期間内の付与が
// Season累計に加算されることを検証する。
func TestGrant_ActiveSeason_IncrementsSeasonXp(t *testing.T) {
	now := time.Now()
	var gotSeasonID string
	var gotAmount int

	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}
	seasonRepo := &mockSeasonRepo{
		findActiveFn: func(ctx context.Context) (*model.Season, error) {
			return &model.Season{
				ID:       "season-1",
				Start:    now.Add(-24 * time.Hour),
				End:      now.Add(24 * time.Hour),
				IsActive: true,
			}, nil
		},
	}
	seasonXpRepo := &mockSeasonXpRepo{
		incrementFn: func(ctx context.Context, q repository.Querier, seasonID, userID string, track model.LayerTrack, amount int) error {
			gotSeasonID = seasonID
			gotAmount = amount
			return nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, seasonRepo, seasonXpRepo)

	_, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       10,
	})
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}

	if gotSeasonID != "season-1" {
		t.Errorf("season ID = %q, want %q", gotSeasonID, "season-1")
	}
	if gotAmount != 50 {
		t.Errorf("season increment = %d, want 50", gotAmount)
	}
}

// TestGrant_SeasonOutsideWindow_SkipsSeasonXp はアクティブフラグが立っていても
// 時間範囲外ならSeason累計に加算されないことを検証する。
func TestGrant_SeasonOutsideWindow_SkipsSeasonXp(t *testing.T) {
	now := time.Now()

	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}
	seasonRepo := &mockSeasonRepo{
		findActiveFn: func(ctx context.Context) (*model.Season, error) {
			// フラグは立っているが既に終了時刻を過ぎている
			return &model.Season{
				ID:       "season-stale",
				Start:    now.Add(-48 * time.Hour),
				End:      now.Add(-24 * time.Hour),
				IsActive: true,
			}, nil
		},
	}
	seasonXpRepo := &mockSeasonXpRepo{
		incrementFn: func(ctx context.Context, q repository.Querier, seasonID, userID string, track model.LayerTrack, amount int) error {
			t.Error("season xp should not be incremented outside the season window")
			return nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, seasonRepo, seasonXpRepo)

	_, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       10,
	})
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
}

// TestGrant_NoActiveSeason_StillGrants はアクティブSeasonがなくても
// 付与自体は成功することを検証する。
func TestGrant_NoActiveSeason_StillGrants(t *testing.T) {
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	stats, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       10,
	})
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if stats.AwardedXp != 50 {
		t.Errorf("AwardedXp = %d, want 50", stats.AwardedXp)
	}
}

// TestGrant_HooksRunInRegistrationOrder はフックが登録順に実行されることを検証する。
func TestGrant_HooksRunInRegistrationOrder(t *testing.T) {
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	var calls []string
	ledger.RegisterHook(&recordingHook{name: "missions", calls: &calls})
	ledger.RegisterHook(&recordingHook{name: "skills", calls: &calls})

	_, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       10,
	})
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}

	if len(calls) != 2 || calls[0] != "missions" || calls[1] != "skills" {
		t.Errorf("hook calls = %v, want [missions skills]", calls)
	}
}

// TestGrant_HookFailure_DoesNotFailGrant はフックの失敗が付与を失敗させないことを検証する。
func TestGrant_HookFailure_DoesNotFailGrant(t *testing.T) {
	activityRepo := &mockActivityRepo{
		findByKeyFn: func(ctx context.Context, key string) (*model.ActivityType, error) {
			return pushupsActivity(), nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	var calls []string
	ledger.RegisterHook(&recordingHook{name: "failing", calls: &calls, err: errors.New("hook failed")})
	ledger.RegisterHook(&recordingHook{name: "next", calls: &calls})

	stats, err := ledger.Grant(context.Background(), GrantInput{
		UserID:      "user-1",
		ActivityKey: "pushups",
		Units:       10,
	})
	if err != nil {
		t.Fatalf("Grant should not fail when a hook fails: %v", err)
	}
	if stats == nil {
		t.Fatal("expected non-nil stats")
	}
	// 失敗したフックの後続フックも実行される
	if len(calls) != 2 {
		t.Errorf("hook calls = %v, want both hooks to run", calls)
	}
}

// TestGrantDirect_SkipsHooks は直接付与でフックが実行されないことを検証する。
func TestGrantDirect_SkipsHooks(t *testing.T) {
	var recorded *model.XpEvent
	eventRepo := &mockEventRepo{
		createFn: func(ctx context.Context, q repository.Querier, event *model.XpEvent) error {
			recorded = event
			return nil
		},
	}

	ledger := newTestLedger(t, &mockActivityRepo{}, eventRepo, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	var calls []string
	ledger.RegisterHook(&recordingHook{name: "missions", calls: &calls})

	stats, err := ledger.GrantDirect(context.Background(), "user-1", 50, "mission_reward", model.LayerTrackGame, map[string]any{"mission_id": "m-1"})
	if err != nil {
		t.Fatalf("GrantDirect returned error: %v", err)
	}

	if len(calls) != 0 {
		t.Errorf("hooks should not run for GrantDirect, got %v", calls)
	}
	if recorded == nil {
		t.Fatal("expected event to be recorded")
	}
	if recorded.Source != "mission_reward" {
		t.Errorf("event source = %q, want %q", recorded.Source, "mission_reward")
	}
	if recorded.Track != model.LayerTrackGame {
		t.Errorf("event track = %q, want %q", recorded.Track, model.LayerTrackGame)
	}
	if stats.AwardedXp != 50 {
		t.Errorf("AwardedXp = %d, want 50", stats.AwardedXp)
	}
}

// TestGrantDirect_InvalidTrack_ReturnsError は直接付与でもトラック検証が働くことを検証する。
func TestGrantDirect_InvalidTrack_ReturnsError(t *testing.T) {
	ledger := newTestLedger(t, &mockActivityRepo{}, &mockEventRepo{}, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	_, err := ledger.GrantDirect(context.Background(), "user-1", 50, "mission_reward", model.LayerTrack(""), nil)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidTrack {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidTrack)
	}
}

// TestStats_UserNotFound は存在しないユーザーの統計取得がUSER_NOT_FOUNDになることを検証する。
func TestStats_UserNotFound(t *testing.T) {
	userRepo := &mockLedgerUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, nil
		},
	}

	ledger := newTestLedger(t, &mockActivityRepo{}, &mockEventRepo{}, userRepo, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	_, err := ledger.Stats(context.Background(), "missing")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

// TestStats_ReturnsDerivedStats は累計XPから統計が導出されることを検証する。
func TestStats_ReturnsDerivedStats(t *testing.T) {
	userRepo := &mockLedgerUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Xp: 300, Level: 2}, nil
		},
	}

	ledger := newTestLedger(t, &mockActivityRepo{}, &mockEventRepo{}, userRepo, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	stats, err := ledger.Stats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalXp != 300 {
		t.Errorf("TotalXp = %d, want 300", stats.TotalXp)
	}
	if stats.Level != 2 {
		t.Errorf("Level = %d, want 2", stats.Level)
	}
}

// TestHistory_HasMoreAndTrim はlimit+1件取得によるページング判定を検証する。
func TestHistory_HasMoreAndTrim(t *testing.T) {
	var gotLimit int
	eventRepo := &mockEventRepo{
		listByUserFn: func(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, error) {
			gotLimit = limit
			// limit+1件返すと次ページあり
			events := make([]*model.XpEvent, limit+1)
			for i := range events {
				events[i] = &model.XpEvent{ID: "e", UserID: userID}
			}
			return events, nil
		},
	}

	ledger := newTestLedger(t, &mockActivityRepo{}, eventRepo, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	events, hasMore, err := ledger.History(context.Background(), "user-1", time.Time{}, "", 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if gotLimit != 10 {
		t.Errorf("repository limit = %d, want 10", gotLimit)
	}
	if !hasMore {
		t.Error("expected hasMore = true")
	}
	if len(events) != 10 {
		t.Errorf("len(events) = %d, want 10", len(events))
	}
}

// TestHistory_PassesCompositeCursor は複合カーソルがリポジトリへ渡ることを検証する。
func TestHistory_PassesCompositeCursor(t *testing.T) {
	var gotCursor time.Time
	var gotCursorID string
	eventRepo := &mockEventRepo{
		listByUserFn: func(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, error) {
			gotCursor = cursor
			gotCursorID = cursorID
			return nil, nil
		},
	}

	ledger := newTestLedger(t, &mockActivityRepo{}, eventRepo, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, _, err := ledger.History(context.Background(), "user-1", at, "event-55", 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if !gotCursor.Equal(at) {
		t.Errorf("cursor = %v, want %v", gotCursor, at)
	}
	if gotCursorID != "event-55" {
		t.Errorf("cursorID = %q, want %q", gotCursorID, "event-55")
	}
}

// TestHistory_LimitClamped は範囲外のlimitがデフォルト50に丸められることを検証する。
func TestHistory_LimitClamped(t *testing.T) {
	var gotLimit int
	eventRepo := &mockEventRepo{
		listByUserFn: func(ctx context.Context, userID string, cursor time.Time, cursorID string, limit int) ([]*model.XpEvent, error) {
			gotLimit = limit
			return nil, nil
		},
	}

	ledger := newTestLedger(t, &mockActivityRepo{}, eventRepo, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	for _, limit := range []int{0, -1, 101} {
		_, _, err := ledger.History(context.Background(), "user-1", time.Time{}, "", limit)
		if err != nil {
			t.Fatalf("History returned error: %v", err)
		}
		if gotLimit != 50 {
			t.Errorf("limit=%d: repository limit = %d, want 50", limit, gotLimit)
		}
	}
}

// TestActivities_ReturnsCatalog はカタログがそのまま返ることを検証する。
func TestActivities_ReturnsCatalog(t *testing.T) {
	activityRepo := &mockActivityRepo{
		listFn: func(ctx context.Context) ([]*model.ActivityType, error) {
			return []*model.ActivityType{pushupsActivity()}, nil
		},
	}

	ledger := newTestLedger(t, activityRepo, &mockEventRepo{}, &mockLedgerUserRepo{}, &mockSeasonRepo{}, &mockSeasonXpRepo{})

	activities, err := ledger.Activities(context.Background())
	if err != nil {
		t.Fatalf("Activities returned error: %v", err)
	}
	if len(activities) != 1 || activities[0].Key != "pushups" {
		t.Errorf("unexpected catalog: %+v", activities)
	}
}
