package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAdminServer 管理端口暴露健康检查、连接统计和指标
func TestAdminServer(t *testing.T) {
	mh := NewMetricsHelper("", 0)
	defer mh.Close()
	rs := newTestServer(t, defaultOptions(), &lineHandler{})
	conn := dial(t, rs)
	_, err := conn.Write([]byte("hi\n"))
	require.Nil(t, err)
	buf := make([]byte, len("echo:hi\n"))
	_, err = io.ReadFull(conn, buf)
	require.Nil(t, err)

	mh.onAccept()
	mh.onClose(closeReasonTimeout)
	mh.onTimeout()
	mh.onReject()
	mh.watchPool(rs.pool.Pending)
	mh.WatchStore(func() int { return 2 })

	srv := httptest.NewServer(NewAdminServer("", rs, mh).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.Nil(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/debug/stats")
	require.Nil(t, err)
	var stats Stats
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&stats))
	_ = resp.Body.Close()
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, 4, stats.Workers)

	resp, err = http.Get(srv.URL + "/metrics")
	require.Nil(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	text := string(body)
	assert.True(t, strings.Contains(text, "eggie_web_connection_accept_counter 1"))
	assert.True(t, strings.Contains(text, `eggie_web_connection_close_counter{reason="timeout"} 1`))
	assert.True(t, strings.Contains(text, "eggie_web_pool_pending_gauge"))
	assert.True(t, strings.Contains(text, "eggie_web_store_free_gauge 2"))
}

// TestMetricsHelperNil 未配置指标时引擎照常工作
func TestMetricsHelperNil(t *testing.T) {
	var mh *MetricsHelper
	assert.NotPanics(t, func() {
		mh.onAccept()
		mh.onReject()
		mh.onClose(closeReasonPeer)
		mh.onTimeout()
		mh.watchPool(func() int { return 0 })
		mh.WatchStore(func() int { return 0 })
		mh.Close()
	})
}
