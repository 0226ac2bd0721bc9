package server

import (
	"sync"
	"time"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/web/logs"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const (
	closeReasonPeer     = "peer_closed"
	closeReasonError    = "error"
	closeReasonTimeout  = "timeout"
	closeReasonDone     = "done"
	closeReasonShutdown = "shutdown"
)

type MetricsHelper struct {
	registry *prometheus.Registry

	ConnectionAcceptCounter  prometheus.Counter     // accept qps
	ConnectionRejectCounter  prometheus.Counter     // 超过连接上限被拒绝
	ConnectionCloseCounter   *prometheus.CounterVec // 按原因统计关闭
	ConnectionTimeoutCounter prometheus.Counter     // 空闲超时
	ActiveConnectionGauge    prometheus.Gauge

	stop chan struct{}
	once sync.Once
}

// NewMetricsHelper pushURL 为空时不推送，只在 Registry 上暴露
func NewMetricsHelper(pushURL string, interval time.Duration) *MetricsHelper {
	mh := &MetricsHelper{
		registry: prometheus.NewRegistry(),
		ConnectionAcceptCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eggie_web_connection_accept_counter",
		}),
		ConnectionRejectCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eggie_web_connection_reject_counter",
		}),
		ConnectionCloseCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eggie_web_connection_close_counter",
		}, []string{consts.LogFieldReason}),
		ConnectionTimeoutCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "eggie_web_connection_timeout_counter",
		}),
		ActiveConnectionGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eggie_web_active_connection_gauge",
		}),
		stop: make(chan struct{}),
	}
	mh.registry.MustRegister(
		mh.ConnectionAcceptCounter,
		mh.ConnectionRejectCounter,
		mh.ConnectionCloseCounter,
		mh.ConnectionTimeoutCounter,
		mh.ActiveConnectionGauge,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if pushURL != "" {
		if interval <= 0 {
			interval = 5 * time.Second
		}
		pusher := push.New(pushURL, consts.AppName).Gatherer(mh.registry)
		gopool.Go(func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-mh.stop:
					return
				case <-ticker.C:
					if err := pusher.Add(); err != nil {
						logs.Warn("prometheus pusher push failed", zap.Error(err))
					}
				}
			}
		})
	}
	return mh
}

func (mh *MetricsHelper) Registry() *prometheus.Registry {
	return mh.registry
}

// watchPool 暴露 worker 池积压任务数，重复注册时忽略
func (mh *MetricsHelper) watchPool(pending func() int) {
	if mh == nil {
		return
	}
	_ = mh.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eggie_web_pool_pending_gauge",
	}, func() float64 {
		return float64(pending())
	}))
}

// WatchStore 暴露存储连接池空闲连接数
func (mh *MetricsHelper) WatchStore(free func() int) {
	if mh == nil {
		return
	}
	_ = mh.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eggie_web_store_free_gauge",
	}, func() float64 {
		return float64(free())
	}))
}

func (mh *MetricsHelper) Close() {
	if mh == nil {
		return
	}
	mh.once.Do(func() {
		close(mh.stop)
	})
}

func (mh *MetricsHelper) onAccept() {
	if mh == nil {
		return
	}
	mh.ConnectionAcceptCounter.Inc()
	mh.ActiveConnectionGauge.Inc()
}

func (mh *MetricsHelper) onReject() {
	if mh == nil {
		return
	}
	mh.ConnectionRejectCounter.Inc()
}

func (mh *MetricsHelper) onClose(reason string) {
	if mh == nil {
		return
	}
	mh.ConnectionCloseCounter.WithLabelValues(reason).Inc()
	mh.ActiveConnectionGauge.Dec()
}

func (mh *MetricsHelper) onTimeout() {
	if mh == nil {
		return
	}
	mh.ConnectionTimeoutCounter.Inc()
}
