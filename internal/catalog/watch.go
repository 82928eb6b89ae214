package catalog

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const debounce = 100 * time.Millisecond

// Watcher reloads a catalog file whenever it changes on disk. The parent
// directory is watched so editors that replace the file are picked up.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	store    *Store
	onReload func(*Catalog)
	log      zerolog.Logger
	closeCh  chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewWatcher starts watching path. Every successful reload is stored in
// store and passed to onReload, which may be nil. Parse errors are logged
// and the previous catalog stays in place.
func NewWatcher(path string, store *Store, onReload func(*Catalog), log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		path:     abs,
		store:    store,
		onReload: onReload,
		log:      log,
		closeCh:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			pending = time.After(debounce)
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("catalog watch error")
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	c, err := Load(w.path)
	if err != nil {
		w.log.Error().Err(err).Msg("catalog reload failed, keeping previous")
		return
	}
	w.store.Replace(c)
	w.log.Info().
		Int("streams", len(c.Streams)).
		Int("playlists", len(c.Playlists)).
		Msg("catalog reloaded")
	if w.onReload != nil {
		w.onReload(c)
	}
}
