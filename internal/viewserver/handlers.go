package viewserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/John-Robertt/imgutils/internal/app/host"
	"github.com/John-Robertt/imgutils/internal/domain"
	"github.com/John-Robertt/imgutils/internal/infra/imgx"
	"github.com/John-Robertt/imgutils/internal/view"
)

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, err := s.backend.Page()
	if err != nil {
		if domain.IsKind(err, domain.KindEmptyResult) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		s.log.Error("build page failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := view.Render(&buf, p); err != nil {
		s.log.Error("render page failed", "err", err)
		http.Error(w, "页面渲染失败", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// handleMedia 返回原始图片；名字必须在当前目录列表里。
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	path, err := s.backend.Resolve(r.PathValue("side"), r.PathValue("name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
}

func (s *Server) handleThumb(w http.ResponseWriter, r *http.Request) {
	b, err := s.backend.Thumb(r.PathValue("side"), r.PathValue("name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(b)
}

type metaResponse struct {
	imgx.Info
	Resolution string `json:"resolution"`
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	info, err := s.backend.Meta(r.PathValue("side"), r.PathValue("name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if info.TakenAt != nil {
		t := info.TakenAt.UTC()
		info.TakenAt = &t
	}
	info.ModTime = info.ModTime.UTC().Truncate(time.Second)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(metaResponse{Info: info, Resolution: info.Resolution()})
}

// fail 把后端错误映射为 HTTP 状态：不在列表里 -> 404，其它 -> 500。
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, host.ErrNotListed), errors.Is(err, os.ErrNotExist):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.log.Warn("media request failed", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
