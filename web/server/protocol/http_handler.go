package protocol

import (
	"context"
	"time"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/Trinoooo/eggie_web/web/logs"
	"github.com/Trinoooo/eggie_web/web/server/buffer"
	"github.com/Trinoooo/eggie_web/web/store"
	"go.uber.org/zap"
)

const verifyTimeout = 3 * time.Second

// formPages POST 到这些页面时走登录/注册，值为是否登录
var formPages = map[string]bool{
	"/register.html": false,
	"/login.html":    true,
}

type HttpHandler struct {
	srcDir string
	store  store.IPool
	files  *FileCache
	render RenderFunc
}

func NewHttpHandler(srcDir string, pool store.IPool) *HttpHandler {
	h := &HttpHandler{
		srcDir: srcDir,
		store:  pool,
		files:  NewFileCache(defaultCacheFiles),
	}
	h.render = h.doRender
	h.withMiddleware(LogMw)
	return h
}

func (h *HttpHandler) withMiddleware(mws ...MiddlewareFunc) {
	for _, mw := range mws {
		h.render = mw(h.render)
	}
}

func (h *HttpHandler) Parse(in *buffer.Buffer) (IRequest, error) {
	req, err := ParseRequest(in)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (h *HttpHandler) Render(req IRequest, out *buffer.Buffer) error {
	httpReq, ok := req.(*HttpRequest)
	if !ok {
		return errs.NewInvalidParamErr()
	}
	return h.render(httpReq, out)
}

func (h *HttpHandler) doRender(req *HttpRequest, out *buffer.Buffer) error {
	resp := &HttpResponse{
		Code:      StatusOK,
		Path:      req.Path,
		KeepAlive: req.KeepAlive(),
		Files:     h.files,
	}
	if req.BadRequest {
		resp.Code = StatusBadRequest
	} else if isLogin, ok := formPages[req.Path]; ok && req.Method == "POST" && req.Form != nil {
		resp.Path = h.verify(req, isLogin)
	}

	resp.MakeResponse(h.srcDir, out)
	req.status = resp.Code
	return nil
}

// verify 在 worker 中访问存储，成功跳转欢迎页，否则跳转错误页
func (h *HttpHandler) verify(req *HttpRequest, isLogin bool) string {
	if h.store == nil {
		return "/error.html"
	}
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	user, pwd := req.Form.Get("username"), req.Form.Get("password")
	if err := store.VerifyUser(ctx, h.store, user, pwd, isLogin); err != nil {
		logs.Info("verify user failed",
			zap.String(consts.LogFieldRequestId, req.Id),
			zap.String(consts.LogFieldParams, user),
			zap.Bool(consts.LogFieldValue, isLogin),
			zap.Error(err),
		)
		return "/error.html"
	}
	return "/welcome.html"
}
