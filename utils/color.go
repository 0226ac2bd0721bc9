package utils

import "fmt"

const (
	ERROR = "\033[1;31m%s\033[0m"
	WARN  = "\033[1;33m%s\033[0m"
	INFO  = "\033[1;34m%s\033[0m"
	OK    = "\033[1;32m%s\033[0m"
)

func WrapError(format string, args ...any) string {
	return fmt.Sprintf(ERROR, fmt.Sprintf(format, args...))
}

func WrapWarn(format string, args ...any) string {
	return fmt.Sprintf(WARN, fmt.Sprintf(format, args...))
}

func WrapInfo(format string, args ...any) string {
	return fmt.Sprintf(INFO, fmt.Sprintf(format, args...))
}

func WrapOk(format string, args ...any) string {
	return fmt.Sprintf(OK, fmt.Sprintf(format, args...))
}

// WrapStatus 按 http 状态码着色
func WrapStatus(code int, status string) string {
	switch {
	case code >= 500:
		return WrapError("%s", status)
	case code >= 400:
		return WrapWarn("%s", status)
	case code >= 300:
		return WrapInfo("%s", status)
	default:
		return WrapOk("%s", status)
	}
}
