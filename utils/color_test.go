package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapStatus(t *testing.T) {
	assert.Equal(t, "\033[1;32m200 OK\033[0m", WrapStatus(200, "200 OK"))
	assert.Equal(t, "\033[1;34m302 Found\033[0m", WrapStatus(302, "302 Found"))
	assert.Equal(t, "\033[1;33m404 Not Found\033[0m", WrapStatus(404, "404 Not Found"))
	assert.Equal(t, "\033[1;31m500 Internal Server Error\033[0m", WrapStatus(500, "500 Internal Server Error"))
	assert.Equal(t, "\033[1;31mbad 1\033[0m", WrapError("bad %d", 1))
}
