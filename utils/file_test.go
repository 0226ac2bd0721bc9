package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Trinoooo/eggie_web/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type TestDir struct {
	Description string
	Path        string
	Code        int
}

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	require.Nil(t, os.WriteFile(file, []byte("x"), 0o644))

	testList := []*TestDir{
		{Description: "dir not exist", Path: filepath.Join(root, "a", "b", "c")},
		{Description: "dir exist", Path: root},
		{Description: "path is a file", Path: file, Code: errs.InvalidParamErrCode},
		{Description: "parent is a file", Path: filepath.Join(file, "sub"), Code: errs.CreateDirErrCode},
	}

	for _, item := range testList {
		err := EnsureDir(item.Path)
		assert.Equal(t, item.Code, int(errs.GetCode(err)), item.Description)
		if item.Code == 0 {
			info, e := os.Stat(item.Path)
			require.Nil(t, e)
			assert.True(t, info.IsDir(), item.Description)
		}
	}
}
