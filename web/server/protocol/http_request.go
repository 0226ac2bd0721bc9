package protocol

import (
	"bytes"
	"net/url"
	"strconv"
	"strings"

	"github.com/Trinoooo/eggie_web/consts"
	"github.com/Trinoooo/eggie_web/errs"
	"github.com/Trinoooo/eggie_web/web/server/buffer"
	"github.com/google/uuid"
)

const (
	maxHeaderSize = 8 * consts.KB
	maxBodySize   = consts.MB

	formContentType = "application/x-www-form-urlencoded"
)

var (
	crlf        = []byte("\r\n")
	headerEnd   = []byte("\r\n\r\n")
	defaultHtml = map[string]struct{}{
		"/index":    {},
		"/register": {},
		"/login":    {},
		"/welcome":  {},
		"/video":    {},
		"/picture":  {},
	}
)

type HttpRequest struct {
	Id      string
	Method  string
	Path    string
	Query   string // 原始查询串，不含 '?'
	Version string
	Headers map[string]string // key 统一小写
	Body    string
	Form    url.Values

	// BadRequest 为 true 时请求无法解析，直接回 400 并关闭连接
	BadRequest bool

	status int // 渲染后的响应码
}

func (req *HttpRequest) KeepAlive() bool {
	if req.BadRequest {
		return false
	}
	return strings.EqualFold(req.Headers["connection"], "keep-alive") && req.Version == "1.1"
}

func (req *HttpRequest) Header(key string) string {
	return req.Headers[strings.ToLower(key)]
}

// ParseRequest 数据不完整时返回 NeedMoreData 且不消费任何字节，
// 格式错误时消费全部可读数据并返回 BadRequest 为 true 的请求
func ParseRequest(in *buffer.Buffer) (*HttpRequest, error) {
	data := in.Peek()
	end := bytes.Index(data, headerEnd)
	if end < 0 {
		if len(data) > maxHeaderSize {
			return badRequest(in), nil
		}
		return nil, errs.NewNeedMoreDataErr()
	}
	if end > maxHeaderSize {
		return badRequest(in), nil
	}

	req := &HttpRequest{
		Id:      uuid.New().String(),
		Headers: make(map[string]string),
	}
	lines := bytes.Split(data[:end], crlf)
	if !req.parseRequestLine(string(lines[0])) {
		return badRequest(in), nil
	}
	for _, line := range lines[1:] {
		if !req.parseHeader(string(line)) {
			return badRequest(in), nil
		}
	}

	bodyLen := 0
	if cl, ok := req.Headers["content-length"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(cl))
		if err != nil || n < 0 || n > maxBodySize {
			return badRequest(in), nil
		}
		bodyLen = n
	}
	total := end + len(headerEnd) + bodyLen
	if len(data) < total {
		return nil, errs.NewNeedMoreDataErr()
	}
	req.Body = string(data[end+len(headerEnd) : total])
	if err := in.Retrieve(total); err != nil {
		return nil, err
	}

	req.parsePath()
	req.parseForm()
	return req, nil
}

func badRequest(in *buffer.Buffer) *HttpRequest {
	_ = in.Retrieve(in.ReadableBytes())
	return &HttpRequest{
		Id:         uuid.New().String(),
		Headers:    map[string]string{},
		BadRequest: true,
	}
}

// parseRequestLine METHOD SP PATH SP HTTP/x.y
func (req *HttpRequest) parseRequestLine(line string) bool {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || !strings.HasPrefix(parts[1], "/") {
		return false
	}
	version, ok := strings.CutPrefix(parts[2], "HTTP/")
	if !ok || version == "" {
		return false
	}
	req.Method = parts[0]
	req.Path, req.Query, _ = strings.Cut(parts[1], "?")
	req.Version = version
	return true
}

func (req *HttpRequest) parseHeader(line string) bool {
	key, value, ok := strings.Cut(line, ":")
	if !ok || key == "" {
		return false
	}
	req.Headers[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	return true
}

func (req *HttpRequest) parsePath() {
	if req.Path == "/" {
		req.Path = "/index.html"
		return
	}
	if _, ok := defaultHtml[req.Path]; ok {
		req.Path += ".html"
	}
}

func (req *HttpRequest) parseForm() {
	if req.Method != "POST" || req.Body == "" {
		return
	}
	ct, _, _ := strings.Cut(req.Header("Content-Type"), ";")
	if !strings.EqualFold(strings.TrimSpace(ct), formContentType) {
		return
	}
	form, err := url.ParseQuery(req.Body)
	if err != nil {
		return
	}
	req.Form = form
}
