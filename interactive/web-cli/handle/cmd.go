package handle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Trinoooo/eggie_web/utils"
)

type ClientWrapper struct {
	Base *url.URL
	Http *http.Client
	Ctx  context.Context
}

// HandleInput 解析一行命令：get <path> / login <user> <pwd> / register <user> <pwd>
func (cw *ClientWrapper) HandleInput(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch strings.ToLower(fields[0]) {
	case "get":
		if len(fields) != 2 {
			fmt.Println(utils.WrapWarn("usage: get <path>"))
			return
		}
		cw.Get(fields[1])
	case "login", "register":
		if len(fields) != 3 {
			fmt.Println(utils.WrapWarn("usage: %s <user> <password>", fields[0]))
			return
		}
		cw.Form("/"+strings.ToLower(fields[0]), fields[1], fields[2])
	default:
		fmt.Println(utils.WrapWarn("unknown command: %s", fields[0]))
	}
}

func (cw *ClientWrapper) Get(path string) {
	req, err := http.NewRequestWithContext(cw.Ctx, http.MethodGet, cw.resolve(path), nil)
	if err != nil {
		fmt.Println(utils.WrapError("error occur when build request, err: %v", err))
		return
	}
	cw.do(req)
}

func (cw *ClientWrapper) Form(path, user, pwd string) {
	form := url.Values{}
	form.Set("username", user)
	form.Set("password", pwd)
	req, err := http.NewRequestWithContext(cw.Ctx, http.MethodPost, cw.resolve(path), strings.NewReader(form.Encode()))
	if err != nil {
		fmt.Println(utils.WrapError("error occur when build request, err: %v", err))
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	cw.do(req)
}

func (cw *ClientWrapper) resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return cw.Base.ResolveReference(&url.URL{Path: path}).String()
}

func (cw *ClientWrapper) do(req *http.Request) {
	resp, err := cw.Http.Do(req)
	if err != nil {
		fmt.Println(utils.WrapError("error occur when send request, err: %v", err))
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Println(utils.WrapError("error occur when read resp body, err: %v", err))
		return
	}
	fmt.Printf("# %s\n%s\n", utils.WrapStatus(resp.StatusCode, resp.Status), string(body))
}
