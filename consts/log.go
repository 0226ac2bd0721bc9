package consts

const (
	LogFieldComponent = "component"
	LogFieldParams    = "params"
	LogFieldValue     = "value"
	LogFieldFd        = "fd"
	LogFieldConnId    = "conn_id"
	LogFieldRemote    = "remote"
	LogFieldReason    = "reason"
	LogFieldEvents    = "events"
	LogFieldRequestId = "request_id"
	LogFieldMethod    = "method"
	LogFieldPath      = "path"
	LogFieldCode      = "code"
)
