package errs

import (
	"errors"
	"fmt"
)

type WebErr struct {
	msg  string
	code int64
	err  error
}

// Error 输出格式：
// [错误码] 错误类型描述 ( => 包含错误详细描述 )
// 解释：(xxx) 表示可选内容
func (we *WebErr) Error() string {
	details := fmt.Sprintf("[%d] %s", we.code, we.msg)
	if we.err != nil {
		details += fmt.Sprintf(" => %s", we.err)
	}

	return details
}

func (we *WebErr) Code() int64 {
	return we.code
}

func (we *WebErr) WithErr(err error) *WebErr {
	we.err = err
	return we
}

func (we *WebErr) Unwrap() error {
	return we.err
}

func GetCode(err error) int64 {
	var we *WebErr
	if errors.As(err, &we) {
		return we.code
	}
	return UnknownErrCode
}

const (
	UnknownErrCode        = 0
	InvalidParamErrCode   = 100001
	PoolClosedErrCode     = 100002
	NeedMoreDataErrCode   = 100003
	CreateSocketErrCode   = 100004
	SetSockOptErrCode     = 100005
	BindErrCode           = 100006
	ListenErrCode         = 100007
	AcceptErrCode         = 100008
	CreatePollerErrCode   = 100009
	RegisterEventErrCode  = 100010
	ModifyEventErrCode    = 100011
	RemoveEventErrCode    = 100012
	WaitEventErrCode      = 100013
	ReadSocketErrCode     = 100014
	WriteSocketErrCode    = 100015
	PeerClosedErrCode     = 100016
	ServerBusyErrCode     = 100017
	ServerClosedErrCode   = 100018
	BadRequestErrCode     = 100019
	ReadFileErrCode       = 100020
	NotFoundErrCode       = 100021
	UserExistErrCode      = 100022
	PasswordMismatchCode  = 100023
	StoreClosedErrCode    = 100024
	OpenStoreErrCode      = 100025
	StoreQueryErrCode     = 100026
	UnsupportedDriverCode = 100027
	ReadConfigErrCode     = 100028
	HashPasswordErrCode   = 100029
	CreateDirErrCode      = 100030
)

func NewUnknownErr() *WebErr {
	return &WebErr{msg: "unknown error", code: UnknownErrCode}
}

func NewInvalidParamErr() *WebErr {
	return &WebErr{msg: "invalid params", code: InvalidParamErrCode}
}

func NewPoolClosedErr() *WebErr {
	return &WebErr{msg: "add task into a closed worker pool", code: PoolClosedErrCode}
}

func NewNeedMoreDataErr() *WebErr {
	return &WebErr{msg: "request incomplete, need more data", code: NeedMoreDataErrCode}
}

func NewCreateSocketErr() *WebErr {
	return &WebErr{msg: "create socket failed", code: CreateSocketErrCode}
}

func NewSetSockOptErr() *WebErr {
	return &WebErr{msg: "set socket option failed", code: SetSockOptErrCode}
}

func NewBindErr() *WebErr {
	return &WebErr{msg: "bind socket failed", code: BindErrCode}
}

func NewListenErr() *WebErr {
	return &WebErr{msg: "listen socket failed", code: ListenErrCode}
}

func NewAcceptErr() *WebErr {
	return &WebErr{msg: "accept connection failed", code: AcceptErrCode}
}

func NewCreatePollerErr() *WebErr {
	return &WebErr{msg: "create poller failed", code: CreatePollerErrCode}
}

func NewRegisterEventErr() *WebErr {
	return &WebErr{msg: "register event failed", code: RegisterEventErrCode}
}

func NewModifyEventErr() *WebErr {
	return &WebErr{msg: "modify event failed", code: ModifyEventErrCode}
}

func NewRemoveEventErr() *WebErr {
	return &WebErr{msg: "remove event failed", code: RemoveEventErrCode}
}

func NewWaitEventErr() *WebErr {
	return &WebErr{msg: "wait event failed", code: WaitEventErrCode}
}

func NewReadSocketErr() *WebErr {
	return &WebErr{msg: "read socket failed", code: ReadSocketErrCode}
}

func NewWriteSocketErr() *WebErr {
	return &WebErr{msg: "write socket failed", code: WriteSocketErrCode}
}

func NewPeerClosedErr() *WebErr {
	return &WebErr{msg: "peer closed connection", code: PeerClosedErrCode}
}

func NewServerBusyErr() *WebErr {
	return &WebErr{msg: "server busy", code: ServerBusyErrCode}
}

func NewServerClosedErr() *WebErr {
	return &WebErr{msg: "server already closed", code: ServerClosedErrCode}
}

func NewBadRequestErr() *WebErr {
	return &WebErr{msg: "bad request", code: BadRequestErrCode}
}

func NewReadFileErr() *WebErr {
	return &WebErr{msg: "read file failed", code: ReadFileErrCode}
}

func NewNotFoundErr() *WebErr {
	return &WebErr{msg: "not found", code: NotFoundErrCode}
}

func NewUserExistErr() *WebErr {
	return &WebErr{msg: "user already exist", code: UserExistErrCode}
}

func NewPasswordMismatchErr() *WebErr {
	return &WebErr{msg: "password mismatch", code: PasswordMismatchCode}
}

func NewStoreClosedErr() *WebErr {
	return &WebErr{msg: "store pool already closed", code: StoreClosedErrCode}
}

func NewOpenStoreErr() *WebErr {
	return &WebErr{msg: "open store failed", code: OpenStoreErrCode}
}

func NewStoreQueryErr() *WebErr {
	return &WebErr{msg: "store query failed", code: StoreQueryErrCode}
}

func NewUnsupportedDriverErr() *WebErr {
	return &WebErr{msg: "unsupported store driver", code: UnsupportedDriverCode}
}

func NewReadConfigErr() *WebErr {
	return &WebErr{msg: "read config failed", code: ReadConfigErrCode}
}

func NewHashPasswordErr() *WebErr {
	return &WebErr{msg: "hash password failed", code: HashPasswordErrCode}
}

func NewCreateDirErr() *WebErr {
	return &WebErr{msg: "create directory failed", code: CreateDirErrCode}
}
