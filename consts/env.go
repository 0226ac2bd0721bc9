package consts

const (
	EnvPrefix = "EGGIE_WEB"          // viper 环境变量前缀
	Env       = "EGGIE_WEB_ENV"      // 运行环境，test 时使用开发模式日志
	Host      = "EGGIE_WEB_HOST"     // 主机名，客户端使用
	Port      = "EGGIE_WEB_PORT"     // 端口
	Config    = "EGGIE_WEB_CONFIG"   // 配置文件路径
	TrigMode  = "EGGIE_WEB_TRIGMODE" // 触发模式
	Home      = "HOME"               // 家目录
)
