package utils

import "runtime/debug"

// Recover 必须直接 defer 调用，捕获到 panic 时把现场交给 onPanic
func Recover(onPanic func(r any, stack []byte)) {
	if r := recover(); r != nil {
		onPanic(r, debug.Stack())
	}
}
