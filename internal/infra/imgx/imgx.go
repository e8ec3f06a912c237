package imgx

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif" // 注册 GIF 解码器
	"image/jpeg"
	_ "image/png" // 注册 PNG 解码器
	"io"
	"os"
	"strings"
	"time"

	"github.com/nfnt/resize"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"  // 注册 BMP 解码器
	_ "golang.org/x/image/webp" // 注册 WebP 解码器

	"github.com/John-Robertt/imgutils/internal/infra/fsx"
)

// maxDecodeBytes 限制单张图片解码时最多读取的字节数。
const maxDecodeBytes = 100 << 20

// Info 是列表视图展示的图片元数据。
type Info struct {
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Format  string     `json:"format"`
	Size    int64      `json:"size"`
	ModTime time.Time  `json:"modTime"`
	TakenAt *time.Time `json:"takenAt,omitempty"`
}

// Resolution 返回 "宽x高"；尺寸未知时返回空串。
func (i Info) Resolution() string {
	if i.Width <= 0 || i.Height <= 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// Probe 读取图片的尺寸、格式、文件大小与拍摄时间（EXIF，可选）。
//
// 只解码文件头（image.DecodeConfig），不解码像素。
// EXIF 读取失败不算错误：很多 PNG/GIF 本来就没有 EXIF。
func Probe(path string) (Info, error) {
	fi, err := fsx.RegularFile(path)
	if err != nil {
		return Info{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(io.LimitReader(f, maxDecodeBytes))
	if err != nil {
		return Info{}, fmt.Errorf("无法识别图片格式：%w", err)
	}

	info := Info{
		Width:   cfg.Width,
		Height:  cfg.Height,
		Format:  format,
		Size:    fi.Size(),
		ModTime: fi.ModTime().UTC(),
	}

	if format == "jpeg" {
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if t, ok := takenAt(f); ok {
				info.TakenAt = &t
			}
		}
	}
	return info, nil
}

// takenAt 依次尝试 DateTimeOriginal、DateTimeDigitized，最后用 goexif 自带的 DateTime()。
func takenAt(r io.Reader) (time.Time, bool) {
	x, err := exif.Decode(r)
	if err != nil {
		return time.Time{}, false
	}
	for _, name := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		if t, err := time.ParseInLocation("2006:01:02 15:04:05", strings.TrimSpace(s), time.Local); err == nil {
			return t, true
		}
	}
	if t, err := x.DateTime(); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Thumbnail 解码图片并缩放到 size x size 以内（保持比例，不放大），输出 JPEG。
func Thumbnail(r io.Reader, size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.New("缩略图尺寸必须 > 0")
	}

	img, _, err := image.Decode(io.LimitReader(r, maxDecodeBytes))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	// 调色板图片（GIF 等）先转成 RGBA，再交给 resize。
	if _, ok := img.(*image.Paletted); ok {
		rgba := image.NewRGBA(b)
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		img = rgba
	}

	thumb := resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ThumbnailFile 是 Thumbnail 的文件版本。
func ThumbnailFile(path string, size int) ([]byte, error) {
	if _, err := fsx.RegularFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Thumbnail(f, size)
}
