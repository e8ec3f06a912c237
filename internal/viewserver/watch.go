package viewserver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher 监听目录（不递归），把一段时间内的多次变化合并为一次 fire 调用。
type watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	fire     func()
	log      *slog.Logger

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
	once sync.Once
}

func watchDirs(dirs []string, debounce time.Duration, fire func(), log *slog.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			_ = fw.Close()
			return nil, err
		}
	}
	w := &watcher{
		fw:       fw,
		debounce: debounce,
		fire:     fire,
		log:      log.With("component", "watcher"),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Write) {
				w.log.Debug("folder changed", "name", ev.Name, "op", ev.Op.String())
				w.schedule()
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.fire)
		return
	}
	w.timer.Reset(w.debounce)
}

// Close 停止监听并取消尚未触发的通知。
func (w *watcher) Close() {
	w.once.Do(func() {
		_ = w.fw.Close()
		<-w.done
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}
