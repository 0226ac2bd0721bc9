package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/Trinoooo/eggie_web/web/config"
	"github.com/Trinoooo/eggie_web/web/logs"
	"github.com/Trinoooo/eggie_web/web/server"
	"github.com/Trinoooo/eggie_web/web/server/protocol"
	"github.com/Trinoooo/eggie_web/web/store"
	"github.com/bytedance/gopkg/util/gopool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	flagNameConfig   = "config"
	flagNamePort     = "port"
	flagNameTrigMode = "trig-mode"
	flagNameTimeout  = "timeout"
	flagNameLinger   = "linger"
	flagNameMaxConn  = "max-conn"
	flagNameWorkers  = "workers"
	flagNameSrcDir   = "src-dir"
	flagNameStore    = "store"
	flagNameAdmin    = "admin"
)

func invalidParam(name string, value int64) error {
	e := errs.NewInvalidParamErr()
	logs.Error(e.Error(), zap.String(consts.LogFieldParams, name), zap.Int64(consts.LogFieldValue, value))
	return e
}

var (
	flagConfig = &cli.StringFlag{
		Name:    flagNameConfig,
		Usage:   "config file path, search config.yaml in ~/eggie_web/config when empty.",
		EnvVars: []string{consts.Config},
	}
	flagPort = &cli.IntFlag{
		Name:    flagNamePort,
		Aliases: []string{"p"},
		Usage:   "server port number, 1024 <= port <= 65535 are available.",
		Action: func(c *cli.Context, port int) error {
			if port < 1024 || port > 65535 {
				return invalidParam("port", int64(port))
			}
			return nil
		},
		EnvVars: []string{consts.Port},
	}
	flagTrigMode = &cli.IntFlag{
		Name:    flagNameTrigMode,
		Aliases: []string{"m"},
		Usage:   "0: LT+LT, 1: LT listen + ET conn, 2: ET listen + LT conn, 3: ET+ET.",
		Action: func(c *cli.Context, mode int) error {
			if mode < 0 || mode > 3 {
				return invalidParam("trig-mode", int64(mode))
			}
			return nil
		},
		EnvVars: []string{consts.TrigMode},
	}
	flagTimeout = &cli.IntFlag{
		Name:    flagNameTimeout,
		Aliases: []string{"t"},
		Usage:   "idle connection timeout in ms, 0 disables it.",
		Action: func(c *cli.Context, ms int) error {
			if ms < 0 {
				return invalidParam("timeout", int64(ms))
			}
			return nil
		},
	}
	flagLinger = &cli.BoolFlag{
		Name:  flagNameLinger,
		Usage: "set this flag to enable SO_LINGER on the listen socket.",
	}
	flagMaxConn = &cli.IntFlag{
		Name:    flagNameMaxConn,
		Aliases: []string{"c"},
		Usage:   "max connection number, new connections are rejected after that.",
		Action: func(c *cli.Context, number int) error {
			if number < 0 {
				return invalidParam("max-conn", int64(number))
			}
			return nil
		},
	}
	flagWorkers = &cli.IntFlag{
		Name:    flagNameWorkers,
		Aliases: []string{"w"},
		Usage:   "worker goroutine number, must be positive.",
		Action: func(c *cli.Context, number int) error {
			if number <= 0 {
				return invalidParam("workers", int64(number))
			}
			return nil
		},
	}
	flagSrcDir = &cli.StringFlag{
		Name:  flagNameSrcDir,
		Usage: "static resources directory.",
	}
	flagStore = &cli.StringFlag{
		Name:  flagNameStore,
		Usage: "user store driver, pebble or postgres.",
	}
	flagAdmin = &cli.StringFlag{
		Name:  flagNameAdmin,
		Usage: "admin http address serving /metrics, empty disables it.",
	}
)

type Wrapper struct {
	app *cli.App
}

func NewWrapper() *Wrapper {
	wrapper := &Wrapper{
		app: &cli.App{
			Name:    consts.AppName,
			Usage:   "a web server based on epoll reactor",
			Version: consts.AppVersion,
		},
	}
	wrapper.modifyDefaultHelp()
	wrapper.withFlags()
	wrapper.withAction()
	wrapper.withAuthor()
	return wrapper
}

func (wrapper *Wrapper) Run(args []string) error {
	return wrapper.app.Run(args)
}

func (wrapper *Wrapper) modifyDefaultHelp() {
	cli.HelpFlag = &cli.BoolFlag{
		Name: "help",
	}
	cli.AppHelpTemplate = consts.HelpTemplate
}

func (wrapper *Wrapper) withFlags() {
	wrapper.app.Flags = []cli.Flag{
		flagConfig,
		flagPort,
		flagTrigMode,
		flagTimeout,
		flagLinger,
		flagMaxConn,
		flagWorkers,
		flagSrcDir,
		flagStore,
		flagAdmin,
	}
}

// loadConfig 命令行参数优先级高于配置文件和环境变量
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(config.New(ctx.String(flagNameConfig)))
	if err != nil {
		return nil, err
	}

	if ctx.IsSet(flagNamePort) {
		cfg.Server.Port = ctx.Int(flagNamePort)
	}
	if ctx.IsSet(flagNameTrigMode) {
		cfg.Server.TrigMode = ctx.Int(flagNameTrigMode)
	}
	if ctx.IsSet(flagNameTimeout) {
		cfg.Server.TimeoutMs = ctx.Int(flagNameTimeout)
	}
	if ctx.IsSet(flagNameLinger) {
		cfg.Server.OpenLinger = ctx.Bool(flagNameLinger)
	}
	if ctx.IsSet(flagNameMaxConn) {
		cfg.Server.MaxConn = ctx.Int(flagNameMaxConn)
	}
	if ctx.IsSet(flagNameWorkers) {
		cfg.Server.WorkerNum = ctx.Int(flagNameWorkers)
	}
	if ctx.IsSet(flagNameSrcDir) {
		cfg.Server.SrcDir = ctx.String(flagNameSrcDir)
	}
	if ctx.IsSet(flagNameStore) {
		cfg.Store.Driver = ctx.String(flagNameStore)
	}
	if ctx.IsSet(flagNameAdmin) {
		cfg.Admin.Addr = ctx.String(flagNameAdmin)
	}
	return cfg, cfg.Validate()
}

func (wrapper *Wrapper) withAction() {
	wrapper.app.Action = func(ctx *cli.Context) error {
		defer logs.Sync()

		cfg, err := loadConfig(ctx)
		if err != nil {
			logs.Error("load config failed", zap.Error(err))
			return err
		}
		if err = logs.SetLevel(cfg.Log.Level); err != nil {
			logs.Warn("invalid log level, keep default", zap.String(consts.LogFieldValue, cfg.Log.Level))
		}

		pool, err := store.Open(ctx.Context, &cfg.Store)
		if err != nil {
			logs.Error("open store failed", zap.Error(err))
			return err
		}
		defer func() {
			if e := pool.Close(); e != nil {
				logs.Warn("close store failed", zap.Error(e))
			}
		}()

		mh := server.NewMetricsHelper(cfg.Metrics.PushURL, cfg.Metrics.PushInterval())
		defer mh.Close()
		mh.WatchStore(pool.FreeCount)

		srv, err := server.NewReactorServer(&server.Options{
			Port:       cfg.Server.Port,
			TrigMode:   cfg.Server.TrigMode,
			TimeoutMs:  cfg.Server.TimeoutMs,
			OpenLinger: cfg.Server.OpenLinger,
			MaxConn:    cfg.Server.MaxConn,
			WorkerNum:  cfg.Server.WorkerNum,
			MaxEvents:  cfg.Server.MaxEvents,
		}, protocol.NewHttpHandler(cfg.Server.SrcDir, pool), mh)
		if err != nil {
			logs.Error("create server failed", zap.Error(err))
			return err
		}

		if cfg.Admin.Addr != "" {
			admin := server.NewAdminServer(cfg.Admin.Addr, srv, mh)
			admin.Start()
			defer func() { _ = admin.Close() }()
		}

		gopool.Go(func() {
			// bugfix: 使用缓冲通道避免执行信号处理程序（下面的for）之前有信号到达会被丢弃
			sig := make(chan os.Signal, 5)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			for range sig {
				logs.Info("shutdown...")
				if e := srv.Close(); e != nil {
					logs.Error("server shutdown failed", zap.Error(e))
				}
			}
		})

		return srv.Serve()
	}
}

func (wrapper *Wrapper) withAuthor() {
	wrapper.app.Authors = []*cli.Author{
		{
			Name:  "Trino",
			Email: "sujun.trinoooo@gmail.com",
		},
	}
}
