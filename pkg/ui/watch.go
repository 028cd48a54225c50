package ui

import (
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce folds event bursts into one notification; an atomic ledger
// rewrite fires several events in quick succession.
const reloadDebounce = 250 * time.Millisecond

/*
Watcher observes the ledger directory and reports changes to the three
stream files, coalesced per burst. Hand edits land on the card without a
keypress this way.
*/
type Watcher struct {
	watcher *fsnotify.Watcher
	reload  chan struct{}
	stop    chan struct{}
}

func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		reload:  make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}

	go w.loop()
	return w, nil
}

// Reload delivers one notification per coalesced burst of ledger changes.
func (w *Watcher) Reload() <-chan struct{} {
	return w.reload
}

func (w *Watcher) Close() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) loop() {
	var pending *time.Timer

	for {
		select {
		case <-w.stop:
			if pending != nil {
				pending.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, w.notify)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("ledger watcher error", "error", err)
		}
	}
}

// notify never blocks; a pending notification already covers the burst.
func (w *Watcher) notify() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}
