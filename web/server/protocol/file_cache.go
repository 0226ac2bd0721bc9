package protocol

import (
	"os"
	"time"

	"github.com/Trinoooo/eggie_web/utils"
)

const defaultCacheFiles = 64

type cachedFile struct {
	modTime time.Time
	size    int64
	data    []byte
}

// FileCache 按绝对路径缓存静态文件内容，修改时间或大小变化后重新读取
type FileCache struct {
	lru *utils.Lru[string, *cachedFile]
}

func NewFileCache(size int) *FileCache {
	if size <= 0 {
		size = defaultCacheFiles
	}
	return &FileCache{lru: utils.NewLRU[string, *cachedFile](size)}
}

func (fc *FileCache) Load(full string, info os.FileInfo) ([]byte, error) {
	if fc == nil {
		return os.ReadFile(full)
	}
	if f, ok := fc.lru.Read(full); ok && f.size == info.Size() && f.modTime.Equal(info.ModTime()) {
		return f.data, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		fc.lru.Remove(full)
		return nil, err
	}
	fc.lru.Write(full, &cachedFile{modTime: info.ModTime(), size: info.Size(), data: data})
	return data, nil
}

func (fc *FileCache) Len() int {
	if fc == nil {
		return 0
	}
	return fc.lru.Len()
}
