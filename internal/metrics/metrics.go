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
// APIクライアント、セッションマネージャ、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordBackendCall(resource, op string, statusCode int, duration time.Duration)
	RecordTokenExchange(result string)
	RecordSessionTransition(from, to string)
	RecordFavoriteRollback()
	RecordRateLimited(scope string)
}

// トークン交換結果のラベル値
const (
	ExchangeSuccess   = "success"
	ExchangeFailure   = "failure"
	ExchangeDuplicate = "duplicate"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	backendCalls     *prometheus.CounterVec
	backendLatency   *prometheus.HistogramVec
	tokenExchanges   *prometheus.CounterVec
	sessionTransits  *prometheus.CounterVec
	favoriteRollback prometheus.Counter
	rateLimited      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		backendCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cookingstore_backend_calls_total",
			Help: "バックエンドAPI呼び出し数（リソース・操作・ステータス別）",
		}, []string{"resource", "op", "status_code"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cookingstore_backend_latency_seconds",
			Help:    "バックエンドAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		tokenExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cookingstore_token_exchanges_total",
			Help: "認可コード交換の結果別件数",
		}, []string{"result"}),
		sessionTransits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cookingstore_session_transitions_total",
			Help: "セッション状態遷移の件数",
		}, []string{"from", "to"}),
		favoriteRollback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cookingstore_favorite_rollbacks_total",
			Help: "お気に入り楽観更新のロールバック数",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cookingstore_rate_limited_total",
			Help: "レート制限により拒否されたリクエスト数",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		c.backendCalls,
		c.backendLatency,
		c.tokenExchanges,
		c.sessionTransits,
		c.favoriteRollback,
		c.rateLimited,
	)

	return c
}

// RecordBackendCall はバックエンド呼び出しを記録する。
// 通信エラーの場合statusCodeは0として記録される。
func (c *Collector) RecordBackendCall(resource, op string, statusCode int, duration time.Duration) {
	c.backendCalls.WithLabelValues(resource, op, strconv.Itoa(statusCode)).Inc()
	c.backendLatency.WithLabelValues(resource).Observe(duration.Seconds())
}

// RecordTokenExchange は認可コード交換の結果を記録する。
func (c *Collector) RecordTokenExchange(result string) {
	c.tokenExchanges.WithLabelValues(result).Inc()
}

// RecordSessionTransition はセッション状態遷移を記録する。
func (c *Collector) RecordSessionTransition(from, to string) {
	c.sessionTransits.WithLabelValues(from, to).Inc()
}

// RecordFavoriteRollback はお気に入りのロールバックを記録する。
func (c *Collector) RecordFavoriteRollback() {
	c.favoriteRollback.Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(scope string) {
	c.rateLimited.WithLabelValues(scope).Inc()
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordBackendCall(string, string, int, time.Duration) {}
func (Nop) RecordTokenExchange(string) {}
func (Nop) RecordSessionTransition(string, string) {}
func (Nop) RecordFavoriteRollback() {}
func (Nop) RecordRateLimited(string) {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
