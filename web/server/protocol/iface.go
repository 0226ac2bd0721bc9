package protocol

import "github.com/Trinoooo/eggie_web/web/server/buffer"

type IRequest interface {
	KeepAlive() bool
}

// IHandler 在 worker 中被调用，同一连接同一时刻只会有一个调用方
type IHandler interface {
	// Parse 从 in 中解析一个完整请求并消费对应字节，数据不完整时返回 NeedMoreData 且不消费
	Parse(in *buffer.Buffer) (IRequest, error)
	// Render 把响应写入 out
	Render(req IRequest, out *buffer.Buffer) error
}
