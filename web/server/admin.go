package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/web/logs"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// AdminServer 管理端口，提供 /metrics /healthz /debug/stats
type AdminServer struct {
	srv *http.Server
}

func NewAdminServer(addr string, rs *ReactorServer, mh *MetricsHelper) *AdminServer {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/debug/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rs.Stats()); err != nil {
			logs.Warn("encode stats failed", zap.Error(err))
		}
	})
	if mh != nil {
		r.Handle("/metrics", promhttp.HandlerFor(mh.Registry(), promhttp.HandlerOpts{}))
	}

	return &AdminServer{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (as *AdminServer) Handler() http.Handler {
	return as.srv.Handler
}

func (as *AdminServer) Start() {
	gopool.Go(func() {
		logs.Info("admin server start", zap.String(consts.LogFieldValue, as.srv.Addr))
		if err := as.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logs.Error("admin server exit", zap.Error(err))
		}
	})
}

func (as *AdminServer) Close() error {
	return as.srv.Close()
}
