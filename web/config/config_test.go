package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(""))
	require.Nil(t, err)
	assert.Equal(t, 1317, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Server.TrigMode)
	assert.Equal(t, 60000, cfg.Server.TimeoutMs)
	assert.Equal(t, 65536, cfg.Server.MaxConn)
	assert.Equal(t, 6, cfg.Server.WorkerNum)
	assert.Equal(t, consts.StoreDriverPebble, cfg.Store.Driver)
	assert.Equal(t, 2, cfg.Store.PoolSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, int64(5000), cfg.Metrics.PushInterval().Milliseconds())
}

// TestLoadFileAndEnv 配置文件覆盖默认值，环境变量覆盖配置文件
func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9006
  trig_mode: 1
  open_linger: true
store:
  driver: postgres
  dsn: postgres://localhost/web
admin:
  addr: 127.0.0.1:9100
`
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("EGGIE_WEB_SERVER_TRIG_MODE", "2")

	cfg, err := Load(New(path))
	require.Nil(t, err)
	assert.Equal(t, 9006, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.TrigMode)
	assert.True(t, cfg.Server.OpenLinger)
	assert.Equal(t, consts.StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/web", cfg.Store.DSN)
	assert.Equal(t, "127.0.0.1:9100", cfg.Admin.Addr)
	assert.Equal(t, 6, cfg.Server.WorkerNum)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Equal(t, errs.ReadConfigErrCode, int(errs.GetCode(err)))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(c *Config)
	}{
		{"port too small", func(c *Config) { c.Server.Port = 80 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"trig mode", func(c *Config) { c.Server.TrigMode = 4 }},
		{"worker num", func(c *Config) { c.Server.WorkerNum = 0 }},
		{"max conn", func(c *Config) { c.Server.MaxConn = -1 }},
		{"pool size", func(c *Config) { c.Store.PoolSize = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(New(""))
			require.Nil(t, err)
			tc.modify(cfg)
			assert.Equal(t, errs.InvalidParamErrCode, int(errs.GetCode(cfg.Validate())))
		})
	}
}
