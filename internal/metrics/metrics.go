// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusTransportError はレスポンスを受け取れなかったリクエストのstatusラベル値。
const StatusTransportError = "transport_error"

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントとセッションコントローラーから利用する。
type MetricsCollector interface {
	RecordAPIRequest(op string, statusCode int, duration time.Duration)
	RecordAPITransportError(op string, duration time.Duration)
	RecordSessionTransition(state string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	sessionStateNum *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_api_requests_total",
			Help: "バックエンドAPIへのリクエスト数（操作名・ステータス別）",
		}, []string{"op", "status"}),
		apiDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reviews_api_request_duration_seconds",
			Help:    "バックエンドAPIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		sessionStateNum: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reviews_session_transitions_total",
			Help: "セッション状態遷移の回数（遷移先状態別）",
		}, []string{"state"}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiDuration,
		c.sessionStateNum,
	)

	return c
}

// RecordAPIRequest はレスポンスを受け取ったリクエストを記録する。
func (c *Collector) RecordAPIRequest(op string, statusCode int, duration time.Duration) {
	c.apiRequests.WithLabelValues(op, strconv.Itoa(statusCode)).Inc()
	c.apiDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordAPITransportError はネットワーク層で失敗したリクエストを記録する。
func (c *Collector) RecordAPITransportError(op string, duration time.Duration) {
	c.apiRequests.WithLabelValues(op, StatusTransportError).Inc()
	c.apiDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordSessionTransition はセッション状態の遷移を記録する。
func (c *Collector) RecordSessionTransition(state string) {
	c.sessionStateNum.WithLabelValues(state).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクス未設定時に使う。
type Nop struct{}

func (Nop) RecordAPIRequest(string, int, time.Duration)    {}
func (Nop) RecordAPITransportError(string, time.Duration) {}
func (Nop) RecordSessionTransition(string)                {}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
