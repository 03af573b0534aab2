/*
   Plus4Drive - Commodore disk & tape media emulator
   Copyright (c) 2022, Alexander Vollschwitz

   This file is part of Plus4Drive.

   Plus4Drive is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   Plus4Drive is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with Plus4Drive. If not, see <http://www.gnu.org/licenses/>.
*/

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	log "github.com/sirupsen/logrus"
)

/*
	NewDirWatcher creates a recursive watcher for the directory tree rooted in
	dir. Directories created later on are added to the watch as they appear.
	Watching does not begin before Start is called.
*/
func NewDirWatcher(dir string) (*DirWatcher, error) {

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ret := &DirWatcher{root: dir, watcher: w, done: make(chan struct{})}

	if err := filepath.Walk(dir,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return ret.watch(path)
			}
			return nil
		}); err != nil {
		w.Close()
		return nil, fmt.Errorf("error walking directory '%s': %v", dir, err)
	}

	return ret, nil
}

//
type DirWatcher struct {
	root    string
	watcher *fsnotify.Watcher
	done    chan struct{}
	//
	mutex   sync.Mutex
	running bool
	stopped bool
}

// EventHandler is called for every change in a watched directory tree.
type EventHandler func(evt fsnotify.Event) error

/*
	Start begins watching. The handler is called for every change in the tree.
	Once there has been no change for the duration of backoff, flush is called.
	Handler and flush are always called from the same go routine, so they do
	not need to synchronize with each other.
*/
func (dw *DirWatcher) Start(backoff time.Duration, handler EventHandler,
	flush func() error) error {

	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if dw.stopped {
		return fmt.Errorf("directory watcher already stopped")
	}
	if dw.running {
		return fmt.Errorf("directory watcher already started")
	}
	dw.running = true

	go dw.loop(backoff, handler, flush)

	log.WithField("root", dw.root).Debug("directory watcher started")
	return nil
}

//
func (dw *DirWatcher) loop(backoff time.Duration, handler EventHandler,
	flush func() error) {

	defer close(dw.done)

	timer := time.NewTimer(backoff)
	timer.Stop()
	pending := false

	for {
		select {

		case evt, ok := <-dw.watcher.Events:
			if !ok {
				log.Debug("directory watcher routine exiting")
				return
			}
			if !timer.Stop() && pending {
				select {
				case <-timer.C:
				default:
				}
			}
			dw.handleEvent(evt)
			if err := handler(evt); err != nil {
				log.Errorf("error in watch event handler: %v", err)
			}
			timer.Reset(backoff)
			pending = true

		case err, ok := <-dw.watcher.Errors:
			if ok {
				log.Errorf("directory watcher error: %v", err)
			}

		case <-timer.C:
			pending = false
			if err := flush(); err != nil {
				log.Errorf("error flushing: %v", err)
			}
		}
	}
}

/*
	Stop closes this directory watcher and waits until its go routine is gone.
	A stopped watcher cannot be started again.
*/
func (dw *DirWatcher) Stop() {

	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if dw.stopped {
		return
	}
	dw.stopped = true

	log.WithField("root", dw.root).Info("closing directory watcher")
	if err := dw.watcher.Close(); err != nil {
		log.Errorf("could not close file watcher: %v", err)
	}

	if dw.running {
		<-dw.done
		dw.running = false
	}
}

//
func (dw *DirWatcher) handleEvent(evt fsnotify.Event) {
	log.WithFields(
		log.Fields{"path": evt.Name, "op": evt.Op}).Trace("handling event")
	if evt.Op&fsnotify.Create == 0 {
		return
	}
	info, err := os.Lstat(evt.Name)
	if err != nil {
		log.Debugf("cannot stat %s: %v", evt.Name, err)
		return
	}
	if info.IsDir() {
		dw.watch(evt.Name)
	}
}

//
func (dw *DirWatcher) watch(path string) error {
	if err := dw.watcher.Add(path); err != nil {
		log.Errorf("error adding watch for directory '%s': %v", path, err)
		return err
	}
	log.WithField("path", path).Debug("starting directory watch")
	return nil
}
