package protocol

import (
	"fmt"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/web/logs"
	"github.com/Trinoooo/eggie_web/web/server/buffer"
	"github.com/luci/go-render/render"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type RenderFunc func(req *HttpRequest, out *buffer.Buffer) error

type MiddlewareFunc func(renderFn RenderFunc) RenderFunc

func LogMw(renderFn RenderFunc) RenderFunc {
	return func(req *HttpRequest, out *buffer.Buffer) error {
		if logs.Enabled(zapcore.DebugLevel) {
			// 表单里有密码，不打印
			shadow := *req
			shadow.Body, shadow.Form = "", nil
			logs.Debug(fmt.Sprintf("req: %s", render.Render(&shadow)), zap.String(consts.LogFieldRequestId, req.Id))
		}
		err := renderFn(req, out)
		logs.Info("request done",
			zap.String(consts.LogFieldRequestId, req.Id),
			zap.String(consts.LogFieldMethod, req.Method),
			zap.String(consts.LogFieldPath, req.Path),
			zap.Int(consts.LogFieldCode, req.status),
			zap.Error(err),
		)
		return err
	}
}
