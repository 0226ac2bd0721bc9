package config

import (
	"strings"
	"time"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	TrigMode   int    `mapstructure:"trig_mode"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
	OpenLinger bool   `mapstructure:"open_linger"`
	MaxConn    int    `mapstructure:"max_conn"`
	WorkerNum  int    `mapstructure:"worker_num"`
	MaxEvents  int    `mapstructure:"max_events"`
	SrcDir     string `mapstructure:"src_dir"`
}

type StoreConfig struct {
	Driver   string `mapstructure:"driver"`
	Dir      string `mapstructure:"dir"`
	DSN      string `mapstructure:"dsn"`
	PoolSize int    `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	PushURL        string `mapstructure:"push_url"`
	PushIntervalMs int    `mapstructure:"push_interval_ms"`
}

func (mc *MetricsConfig) PushInterval() time.Duration {
	return time.Duration(mc.PushIntervalMs) * time.Millisecond
}

type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Store   StoreConfig   `mapstructure:"store"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Admin   AdminConfig   `mapstructure:"admin"`
}

const (
	KeyPort       = "server.port"
	KeyTrigMode   = "server.trig_mode"
	KeyTimeoutMs  = "server.timeout_ms"
	KeyOpenLinger = "server.open_linger"
	KeyMaxConn    = "server.max_conn"
	KeyWorkerNum  = "server.worker_num"
	KeyMaxEvents  = "server.max_events"
	KeySrcDir     = "server.src_dir"

	KeyStoreDriver   = "store.driver"
	KeyStoreDir      = "store.dir"
	KeyStoreDSN      = "store.dsn"
	KeyStorePoolSize = "store.pool_size"

	KeyLogLevel = "log.level"

	KeyMetricsPushURL      = "metrics.push_url"
	KeyMetricsPushInterval = "metrics.push_interval_ms"

	KeyAdminAddr = "admin.addr"
)

// New 创建带默认值和环境变量覆盖的 viper 实例，
// path 为空时在默认配置目录下查找 config.yaml
func New(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(consts.DefaultConfigPath)
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(consts.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, 1317)
	v.SetDefault(KeyTrigMode, 3)
	v.SetDefault(KeyTimeoutMs, 60000)
	v.SetDefault(KeyOpenLinger, false)
	v.SetDefault(KeyMaxConn, 65536)
	v.SetDefault(KeyWorkerNum, 6)
	v.SetDefault(KeyMaxEvents, 1024)
	v.SetDefault(KeySrcDir, "./resources")

	v.SetDefault(KeyStoreDriver, consts.StoreDriverPebble)
	v.SetDefault(KeyStoreDir, consts.TmpDir+"/store")
	v.SetDefault(KeyStoreDSN, "")
	v.SetDefault(KeyStorePoolSize, 2)

	v.SetDefault(KeyLogLevel, "info")

	v.SetDefault(KeyMetricsPushURL, "")
	v.SetDefault(KeyMetricsPushInterval, 5000)

	v.SetDefault(KeyAdminAddr, "")
}

// Load 读取配置文件（不存在时只用默认值和环境变量）并校验
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errs.NewReadConfigErr().WithErr(err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.NewReadConfigErr().WithErr(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 1024 || c.Server.Port > 65535:
		return errors.Wrapf(errs.NewInvalidParamErr(), "%s: %d", KeyPort, c.Server.Port)
	case c.Server.TrigMode < 0 || c.Server.TrigMode > 3:
		return errors.Wrapf(errs.NewInvalidParamErr(), "%s: %d", KeyTrigMode, c.Server.TrigMode)
	case c.Server.WorkerNum <= 0:
		return errors.Wrapf(errs.NewInvalidParamErr(), "%s: %d", KeyWorkerNum, c.Server.WorkerNum)
	case c.Server.MaxConn < 0:
		return errors.Wrapf(errs.NewInvalidParamErr(), "%s: %d", KeyMaxConn, c.Server.MaxConn)
	case c.Store.PoolSize <= 0:
		return errors.Wrapf(errs.NewInvalidParamErr(), "%s: %d", KeyStorePoolSize, c.Store.PoolSize)
	}
	return nil
}
