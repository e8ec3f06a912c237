package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/imgutils/internal/infra/fsx"
	"github.com/John-Robertt/imgutils/internal/infra/imgx"
)

// GenerateFunc 生成 path 的 JPEG 缩略图（最长边不超过 size）。
type GenerateFunc func(path string, size int) ([]byte, error)

// Thumbs 是两级缩略图缓存：进程内 LRU -> 磁盘 Store -> 现场生成。
// 同一个键的并发请求只生成一次。
type Thumbs struct {
	store Store
	size  int
	gen   GenerateFunc

	mem   *lru.Cache[string, []byte]
	group singleflight.Group
}

// NewThumbs 创建缩略图缓存；gen 为空时使用 imgx.ThumbnailFile。
func NewThumbs(store Store, size, entries int, gen GenerateFunc) (*Thumbs, error) {
	if size <= 0 {
		return nil, fmt.Errorf("缩略图尺寸必须 > 0，实际是 %d", size)
	}
	if entries <= 0 {
		entries = 512
	}
	mem, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		gen = imgx.ThumbnailFile
	}
	return &Thumbs{store: store, size: size, gen: gen, mem: mem}, nil
}

// Get 返回 absPath 的缩略图。磁盘写入失败只影响下次命中，不影响本次结果。
func (t *Thumbs) Get(absPath string) ([]byte, error) {
	fi, err := fsx.RegularFile(absPath)
	if err != nil {
		return nil, err
	}
	key := ThumbKey(absPath, fi.Size(), fi.ModTime(), t.size)

	if b, ok := t.mem.Get(key); ok {
		return b, nil
	}

	v, err, _ := t.group.Do(key, func() (any, error) {
		if b, ok, err := t.store.ReadThumb(key); err == nil && ok {
			t.mem.Add(key, b)
			return b, nil
		}
		b, err := t.gen(absPath, t.size)
		if err != nil {
			return nil, err
		}
		t.mem.Add(key, b)
		if !t.store.ReadOnly {
			_ = t.store.WriteThumb(key, b)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Len 返回内存中缓存的条目数。
func (t *Thumbs) Len() int { return t.mem.Len() }
