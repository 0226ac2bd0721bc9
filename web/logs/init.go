package logs

import (
	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Logger *zap.Logger
	level  zap.AtomicLevel
)

func init() {
	var (
		cfg zap.Config
		err error
	)
	if utils.IsTest() {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	level = cfg.Level

	Logger, err = cfg.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	Logger = Logger.With(zap.String(consts.LogFieldComponent, consts.AppName))
}

// SetLevel 支持 debug/info/warn/error，非法值保持原级别并返回错误
func SetLevel(lvl string) error {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(lvl)); err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

func Enabled(lvl zapcore.Level) bool {
	return level.Enabled(lvl)
}

func Debug(msg string, fields ...zap.Field) {
	Logger.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	Logger.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	Logger.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	Logger.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	Logger.Fatal(msg, fields...)
}

func Sync() {
	_ = Logger.Sync()
}
