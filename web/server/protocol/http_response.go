package protocol

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Trinoooo/eggie_web/errs"
	"github.com/Trinoooo/eggie_web/web/server/buffer"
)

const (
	StatusOK         = 200
	StatusBadRequest = 400
	StatusForbidden  = 403
	StatusNotFound   = 404
)

var (
	statusText = map[int]string{
		StatusOK:         "OK",
		StatusBadRequest: "Bad Request",
		StatusForbidden:  "Forbidden",
		StatusNotFound:   "Not Found",
	}

	errorPage = map[int]string{
		StatusBadRequest: "/400.html",
		StatusForbidden:  "/403.html",
		StatusNotFound:   "/404.html",
	}

	suffixType = map[string]string{
		".html":  "text/html",
		".xml":   "text/xml",
		".xhtml": "application/xhtml+xml",
		".txt":   "text/plain",
		".rtf":   "application/rtf",
		".pdf":   "application/pdf",
		".word":  "application/nsword",
		".png":   "image/png",
		".gif":   "image/gif",
		".jpg":   "image/jpeg",
		".jpeg":  "image/jpeg",
		".au":    "audio/basic",
		".mpeg":  "video/mpeg",
		".mpg":   "video/mpeg",
		".avi":   "video/x-msvideo",
		".gz":    "application/x-gzip",
		".tar":   "application/x-tar",
		".css":   "text/css",
		".js":    "text/javascript",
	}
)

type HttpResponse struct {
	Code      int
	Path      string
	KeepAlive bool
	Files     *FileCache
}

// MakeResponse 根据 Code/Path 定位 srcDir 下的文件并把完整响应写入 out
func (resp *HttpResponse) MakeResponse(srcDir string, out *buffer.Buffer) {
	body, err := resp.load(srcDir)
	if err != nil && resp.Code == StatusOK {
		resp.Code = errCode(err)
	}
	if resp.Code != StatusOK {
		if page, ok := errorPage[resp.Code]; ok {
			resp.Path = page
			body, err = resp.readFile(srcDir)
		}
		if err != nil || body == nil {
			body = []byte(errorContent(resp.Code))
			resp.Path = ".html"
		}
	}

	out.AppendString("HTTP/1.1 " + strconv.Itoa(resp.Code) + " " + statusText[resp.Code] + "\r\n")
	if resp.KeepAlive {
		out.AppendString("Connection: keep-alive\r\n")
		out.AppendString("keep-alive: max=6, timeout=120\r\n")
	} else {
		out.AppendString("Connection: close\r\n")
	}
	out.AppendString("Content-type: " + fileType(resp.Path) + "\r\n")
	out.AppendString("Content-length: " + strconv.Itoa(len(body)) + "\r\n\r\n")
	out.Append(body)
}

func (resp *HttpResponse) load(srcDir string) ([]byte, error) {
	if resp.Code != StatusOK {
		return nil, nil
	}
	return resp.readFile(srcDir)
}

// readFile 路径跳出 srcDir 返回 403，不存在或是目录返回 404，其他用户不可读返回 403
func (resp *HttpResponse) readFile(srcDir string) ([]byte, error) {
	root, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, errs.NewReadFileErr().WithErr(err)
	}
	full := filepath.Join(root, resp.Path)
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errs.NewInvalidParamErr()
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return nil, errs.NewNotFoundErr()
	}
	if info.Mode().Perm()&0o004 == 0 {
		return nil, errs.NewInvalidParamErr()
	}

	data, err := resp.Files.Load(full, info)
	if err != nil {
		return nil, errs.NewReadFileErr().WithErr(err)
	}
	return data, nil
}

func errCode(err error) int {
	switch errs.GetCode(err) {
	case errs.NotFoundErrCode:
		return StatusNotFound
	case errs.InvalidParamErrCode:
		return StatusForbidden
	default:
		return StatusNotFound
	}
}

func fileType(path string) string {
	if t, ok := suffixType[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return "text/plain"
}

func errorContent(code int) string {
	msg := "File NotFound!"
	switch code {
	case StatusBadRequest:
		msg = "Bad Request!"
	case StatusForbidden:
		msg = "Forbidden!"
	}
	return fmt.Sprintf("<html><title>Error</title><body bgcolor=\"ffffff\">%d : %s\n<p>%s</p><hr><em>eggie_web</em></body></html>",
		code, statusText[code], msg)
}
