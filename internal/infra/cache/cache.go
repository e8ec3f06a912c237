package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/fsx"
)

// Store 提供缓存目录（默认 <UserCacheDir>/imgutils）下的文件读写：
//
//	reports/rename-<UTC 时间>.json   每次批量重命名的 report
//	thumbs/<hh>/<key>.jpg            缩略图
//
// 约束：
// - dry-run：只允许读（ReadOnly=true）
// - apply/serve：允许写（ReadOnly=false）
type Store struct {
	Root     string
	ReadOnly bool
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
	}
}

// DefaultRoot 返回默认缓存目录；取不到用户缓存目录时退回系统临时目录。
func DefaultRoot() string {
	if d, err := os.UserCacheDir(); err == nil && d != "" {
		return filepath.Join(d, "imgutils")
	}
	return filepath.Join(os.TempDir(), "imgutils")
}

// ReportPath 返回开始时间为 started 的 report 的绝对路径。
func (s Store) ReportPath(started time.Time) string {
	name := "rename-" + started.UTC().Format("20060102T150405.000Z") + ".json"
	return filepath.Join(s.Root, "reports", name)
}

// WriteReport 原子写入 report，返回写入路径。
func (s Store) WriteReport(rr domain.RenameReport) (string, error) {
	if s.ReadOnly {
		return "", ErrReadOnly
	}
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return "", err
	}
	path := s.ReportPath(rr.StartedAt)
	if err := fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), append(b, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// ReadReport 读取一个 report 文件。
func (s Store) ReadReport(path string) (domain.RenameReport, error) {
	var rr domain.RenameReport
	b, err := os.ReadFile(path)
	if err != nil {
		return rr, err
	}
	if err := json.Unmarshal(b, &rr); err != nil {
		return rr, fmt.Errorf("report 解析失败：%q：%w", path, err)
	}
	return rr, nil
}

// ThumbKey 由源文件路径、大小、修改时间与缩略图尺寸计算缓存键；源文件变化后键随之变化。
func ThumbKey(absPath string, size int64, modTime time.Time, thumbSize int) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%d", filepath.Clean(absPath), size, modTime.UnixNano(), thumbSize)
	return hex.EncodeToString(h.Sum(nil))
}

func (s Store) thumbPath(key string) (string, error) {
	if len(key) < 3 || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("非法缓存键：%q", key)
	}
	return filepath.Join(s.Root, "thumbs", key[:2], key+".jpg"), nil
}

func (s Store) ReadThumb(key string) ([]byte, bool, error) {
	path, err := s.thumbPath(key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return b, true, nil
}

func (s Store) WriteThumb(key string, jpg []byte) error {
	if s.ReadOnly {
		return ErrReadOnly
	}
	path, err := s.thumbPath(key)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomic(filepath.Dir(path), filepath.Base(path), jpg)
}
