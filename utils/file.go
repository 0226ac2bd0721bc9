package utils

import (
	"errors"
	"os"

	"github.com/Trinoooo/eggie_web/errs"
)

// EnsureDir 目录不存在时逐级创建，路径存在但不是目录时报错
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		if err = os.MkdirAll(dir, 0o770); err != nil {
			return errs.NewCreateDirErr().WithErr(err)
		}
		return nil
	} else if err != nil {
		return errs.NewCreateDirErr().WithErr(err)
	}

	if !info.IsDir() {
		return errs.NewInvalidParamErr()
	}
	return nil
}
