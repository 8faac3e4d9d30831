// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordXpGranted(track string, amount int)
	RecordLevelUp()
	RecordGrantLatency(duration time.Duration)
	RecordGrantFailure(reason string)
	RecordRolloverDuration(duration time.Duration)
	RecordPromotions(track string, count int)
	RecordDemotions(track string, count int)
	RecordMissionCompleted()
	RecordSkillUnlocked()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	xpGranted        *prometheus.CounterVec
	levelUps         prometheus.Counter
	grantLatency     prometheus.Histogram
	grantFail        *prometheus.CounterVec
	rolloverDuration prometheus.Histogram
	promotions       *prometheus.CounterVec
	demotions        *prometheus.CounterVec
	missionCompleted prometheus.Counter
	skillUnlocked    prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		xpGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultrabackend_xp_granted_total",
			Help: "付与されたXPの合計（トラック別）",
		}, []string{"track"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultrabackend_level_ups_total",
			Help: "レベルアップ発生の合計数",
		}),
		grantLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ultrabackend_xp_grant_latency_seconds",
			Help:    "XP付与処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		grantFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultrabackend_xp_grant_fail_total",
			Help: "XP付与失敗の合計数（理由別）",
		}, []string{"reason"}),
		rolloverDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ultrabackend_season_rollover_duration_seconds",
			Help:    "Season Rollover処理の所要時間（秒）",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultrabackend_layer_promotions_total",
			Help: "Layer昇格の合計数（トラック別）",
		}, []string{"track"}),
		demotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultrabackend_layer_demotions_total",
			Help: "Layer降格の合計数（トラック別）",
		}, []string{"track"}),
		missionCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultrabackend_missions_completed_total",
			Help: "ミッション完了の合計数",
		}),
		skillUnlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ultrabackend_skills_unlocked_total",
			Help: "Skill解放の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ultrabackend_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.xpGranted,
		c.levelUps,
		c.grantLatency,
		c.grantFail,
		c.rolloverDuration,
		c.promotions,
		c.demotions,
		c.missionCompleted,
		c.skillUnlocked,
		c.httpStatus,
	)

	return c
}

// RecordXpGranted は付与されたXP量をトラック別に記録する。
func (c *Collector) RecordXpGranted(track string, amount int) {
	c.xpGranted.WithLabelValues(track).Add(float64(amount))
}

// RecordLevelUp はレベルアップ発生を記録する。
func (c *Collector) RecordLevelUp() {
	c.levelUps.Inc()
}

// RecordGrantLatency はXP付与処理のレイテンシを記録する。
func (c *Collector) RecordGrantLatency(duration time.Duration) {
	c.grantLatency.Observe(duration.Seconds())
}

// RecordGrantFailure はXP付与失敗を理由別に記録する。
func (c *Collector) RecordGrantFailure(reason string) {
	c.grantFail.WithLabelValues(reason).Inc()
}

// RecordRolloverDuration はSeason Rolloverの所要時間を記録する。
func (c *Collector) RecordRolloverDuration(duration time.Duration) {
	c.rolloverDuration.Observe(duration.Seconds())
}

// RecordPromotions はLayer昇格数をトラック別に記録する。
func (c *Collector) RecordPromotions(track string, count int) {
	c.promotions.WithLabelValues(track).Add(float64(count))
}

// RecordDemotions はLayer降格数をトラック別に記録する。
func (c *Collector) RecordDemotions(track string, count int) {
	c.demotions.WithLabelValues(track).Add(float64(count))
}

// RecordMissionCompleted はミッション完了を記録する。
func (c *Collector) RecordMissionCompleted() {
	c.missionCompleted.Inc()
}

// RecordSkillUnlocked はSkill解放を記録する。
func (c *Collector) RecordSkillUnlocked() {
	c.skillUnlocked.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
