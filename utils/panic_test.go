package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	var (
		got   any
		stack []byte
	)
	assert.NotPanics(t, func() {
		defer Recover(func(r any, s []byte) {
			got, stack = r, s
		})
		panic("haha")
	})
	assert.Equal(t, "haha", got)
	assert.NotEmpty(t, stack)

	called := false
	func() {
		defer Recover(func(any, []byte) { called = true })
	}()
	assert.False(t, called)
}
