package handle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHandleInput 命令被翻译成对应的 GET/POST 请求
func TestHandleInput(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path+" "+r.PostForm.Get("username")+" "+r.PostForm.Get("password"))
		mu.Unlock()
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	base, err := url.Parse(srv.URL + "/")
	require.Nil(t, err)
	cw := &ClientWrapper{Base: base, Http: srv.Client(), Ctx: context.Background()}

	cw.HandleInput("get index.html")
	cw.HandleInput("login amy secret")
	cw.HandleInput("REGISTER bob pw")
	cw.HandleInput("get")
	cw.HandleInput("unknown cmd")
	cw.HandleInput("   ")

	assert.Equal(t, []string{
		"GET /index.html  ",
		"POST /login amy secret",
		"POST /register bob pw",
	}, seen)
}
