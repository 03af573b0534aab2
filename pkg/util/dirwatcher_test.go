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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

//
func TestDirWatcher(t *testing.T) {

	root := t.TempDir()

	dw, err := NewDirWatcher(root)
	if err != nil {
		t.Fatal(err)
	}

	events := make(chan string, 32)
	flushed := make(chan bool, 32)

	if err := dw.Start(50*time.Millisecond,
		func(evt fsnotify.Event) error {
			if evt.Op&fsnotify.Create != 0 {
				events <- evt.Name
			}
			return nil
		},
		func() error {
			flushed <- true
			return nil
		}); err != nil {
		t.Fatal(err)
	}
	defer dw.Stop()

	if err := dw.Start(time.Second, nil, nil); err == nil {
		t.Error("watcher started twice")
	}

	sub := filepath.Join(root, "games")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, sub)

	// new directories are watched as well
	file := filepath.Join(sub, "lode runner.d64")
	if err := os.WriteFile(file, []byte{0}, 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, file)

	select {
	case <-flushed:
	case <-time.After(5 * time.Second):
		t.Fatal("no flush after changes")
	}
}

//
func TestDirWatcherStop(t *testing.T) {

	dw, err := NewDirWatcher(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	noop := func() error { return nil }
	if err := dw.Start(time.Second,
		func(fsnotify.Event) error { return nil }, noop); err != nil {
		t.Fatal(err)
	}

	dw.Stop()
	dw.Stop()

	if err := dw.Start(time.Second, nil, noop); err == nil {
		t.Error("stopped watcher restarted")
	}
}

//
func TestDirWatcherMissingDir(t *testing.T) {
	if _, err := NewDirWatcher(
		filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("watcher created for missing directory")
	}
}

//
func waitFor(t *testing.T, events chan string, path string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case name := <-events:
			if name == path {
				return
			}
		case <-timeout:
			t.Fatalf("no create event for %s", path)
		}
	}
}
