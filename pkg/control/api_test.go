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

package control

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/daemon"
	"github.com/xelalexv/plus4drive/pkg/fdc"
	"github.com/xelalexv/plus4drive/pkg/media/d64"
	"github.com/xelalexv/plus4drive/pkg/util"
)

const repository = "/repo"

//
func newTestAPI(t *testing.T) (*api, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, data := range map[string][]byte{
		"/repo/games/ace.d64": make([]byte, d64.ImageSize(35, false)),
		"/repo/work.d81":      make([]byte, fdc.D81.Size()),
	} {
		if err := afero.WriteFile(fs, name, data, 0644); err != nil {
			t.Fatal(err)
		}
	}

	d := daemon.NewDaemon(fs, daemon.DefaultConfig())
	t.Cleanup(func() { d.Stop() })

	return &api{repository: repository, daemon: d, fs: fs}, fs
}

//
func call(t *testing.T, a *api, method, url string, body []byte,
	asJSON bool) *httptest.ResponseRecorder {

	t.Helper()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, url, rd)
	if asJSON {
		req.Header.Set("Accept", "application/json")
	}

	rec := httptest.NewRecorder()
	a.router().ServeHTTP(rec, req)
	return rec
}

//
func expect(t *testing.T, rec *httptest.ResponseRecorder, code int) {
	t.Helper()
	if rec.Code != code {
		t.Fatalf("want status %d, got %d: %s", code, rec.Code, rec.Body.String())
	}
}

//
func decode(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("cannot decode reply: %v", err)
	}
}

//
func TestDiskAPI(t *testing.T) {

	a, _ := newTestAPI(t)

	expect(t, call(t, a, "PUT", "/disk?ref=repo://games/ace.d64", nil, false),
		http.StatusOK)

	var st daemon.DiskStatus
	rec := call(t, a, "GET", "/disk", nil, true)
	expect(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if st.Tracks != 35 || st.WriteProtected {
		t.Errorf("unexpected disk status: %+v", st)
	}

	var rep daemon.TrackReport
	rec = call(t, a, "GET", "/disk/track/17", nil, true)
	expect(t, rec, http.StatusOK)
	decode(t, rec, &rep)
	if rep.Track != 17 || rep.Decoded != 21 || len(rep.Data) != 0 {
		t.Errorf("unexpected track report: %+v", rep)
	}

	rec = call(t, a, "GET", "/disk/track/18?data=true", nil, false)
	expect(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "19 of 19 sectors decoded") {
		t.Errorf("unexpected track report:\n%s", rec.Body.String())
	}

	expect(t, call(t, a, "GET", "/disk/track/x", nil, false),
		http.StatusUnprocessableEntity)

	expect(t, call(t, a, "DELETE", "/disk", nil, false), http.StatusOK)
	rec = call(t, a, "GET", "/disk", nil, false)
	if !strings.Contains(rec.Body.String(), "empty") {
		t.Errorf("disk not ejected: %s", rec.Body.String())
	}
}

//
func TestLoadChecks(t *testing.T) {

	a, _ := newTestAPI(t)

	for _, url := range []string{
		"/disk?ref=repo://work.d81",
		"/disk",
		"/floppy?name=notes.txt",
		"/tape?ref=repo://games/ace.d64",
	} {
		expect(t, call(t, a, "PUT", url, nil, false),
			http.StatusUnprocessableEntity)
	}

	expect(t, call(t, a, "PUT", "/disk?ref=repo://missing.d64", nil, false),
		http.StatusUnprocessableEntity)

	a.repository = ""
	expect(t, call(t, a, "PUT", "/disk?ref=repo://games/ace.d64", nil, false),
		http.StatusNotAcceptable)
}

//
func TestFloppyAPI(t *testing.T) {

	a, _ := newTestAPI(t)

	img := make([]byte, fdc.D81.Size())
	copy(img[fdc.SectorSize:], "PLUS4DRIVE")

	expect(t, call(t, a, "PUT", "/floppy?name=upload.d81", img, false),
		http.StatusOK)

	var sec sectorReply
	rec := call(t, a, "GET", "/floppy/sector/0/0/2", nil, true)
	expect(t, rec, http.StatusOK)
	decode(t, rec, &sec)
	if !bytes.Equal(sec.Data, img[fdc.SectorSize:2*fdc.SectorSize]) {
		t.Error("unexpected sector data")
	}

	rec = call(t, a, "GET", "/floppy/sector/0/0/2", nil, false)
	expect(t, rec, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "|PLUS4DRIVE") {
		t.Errorf("unexpected hex dump:\n%s", rec.Body.String())
	}

	expect(t, call(t, a, "PUT", "/floppy/sector/1/1/3", []byte("C16"), false),
		http.StatusOK)
	rec = call(t, a, "GET", "/floppy/sector/1/1/3", nil, true)
	decode(t, rec, &sec)
	if !bytes.HasPrefix(sec.Data, []byte("C16\x00")) {
		t.Error("sector not written")
	}

	expect(t, call(t, a, "GET", "/floppy/sector/0/0/11", nil, false),
		http.StatusUnprocessableEntity)
	expect(t, call(t, a, "PUT", "/floppy/sector/0/0/1",
		make([]byte, fdc.SectorSize+1), false),
		http.StatusRequestEntityTooLarge)
}

//
func TestTapeAPI(t *testing.T) {

	a, fs := newTestAPI(t)

	expect(t, call(t, a, "POST", "/tape/play", nil, false),
		http.StatusUnprocessableEntity)

	expect(t, call(t, a, "PUT", "/tape?ref=repo://new.p4t&create=true", nil,
		false), http.StatusOK)
	if ok, _ := afero.Exists(fs, "/repo/new.p4t"); !ok {
		t.Error("tape file not created")
	}

	var st daemon.TapeStatus
	rec := call(t, a, "POST", "/tape/record", nil, true)
	expect(t, rec, http.StatusOK)
	decode(t, rec, &st)
	if !st.Recording || st.Format != "native" {
		t.Errorf("unexpected tape status: %+v", st)
	}

	expect(t, call(t, a, "POST", "/tape/seek?arg=x", nil, false),
		http.StatusUnprocessableEntity)
	expect(t, call(t, a, "POST", "/tape/rewind", nil, false),
		http.StatusNotFound)

	expect(t, call(t, a, "PUT", "/tape/parameters?filter=true&min=400&max=4000",
		nil, false), http.StatusOK)
	expect(t, call(t, a, "PUT", "/tape/parameters?min=4000&max=400",
		nil, false), http.StatusUnprocessableEntity)

	expect(t, call(t, a, "DELETE", "/tape", nil, false), http.StatusOK)
}

//
func TestStatusAndVersion(t *testing.T) {

	a, _ := newTestAPI(t)

	rec := call(t, a, "GET", "/status", nil, false)
	expect(t, rec, http.StatusOK)
	for _, s := range []string{"disk:", "floppy:", "tape:"} {
		if !strings.Contains(rec.Body.String(), s) {
			t.Errorf("'%s' missing in status:\n%s", s, rec.Body.String())
		}
	}

	var ver Version
	rec = call(t, a, "GET", "/version", nil, true)
	expect(t, rec, http.StatusOK)
	decode(t, rec, &ver)
	if ver.Daemon != util.Plus4DriveVersion {
		t.Errorf("unexpected version: %+v", ver)
	}

	expect(t, call(t, a, "GET", "/search?term=ace", nil, false),
		http.StatusServiceUnavailable)
}

//
func serveAsync(a *api) <-chan error {
	done := make(chan error, 1)
	go func() { done <- a.Serve() }()
	return done
}

//
func awaitServe(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after stop")
	}
}

//
func TestServeStop(t *testing.T) {

	dir := t.TempDir()
	repo := filepath.Join(dir, "repo")
	if err := os.MkdirAll(filepath.Join(repo, "games"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repo, "games", "ace.d64"),
		make([]byte, d64.ImageSize(35, false)), 0644); err != nil {
		t.Fatal(err)
	}

	d := daemon.NewDaemon(afero.NewOsFs(), daemon.DefaultConfig())
	t.Cleanup(func() { d.Stop() })

	// stop right after the server comes up, while the index may still start
	a := &api{address: "127.0.0.1:0", repository: repo,
		indexDir: filepath.Join(dir, "index"), daemon: d, fs: afero.NewOsFs()}
	done := serveAsync(a)

	for deadline := time.Now().Add(5 * time.Second); ; {
		a.mutex.Lock()
		up := a.server != nil
		a.mutex.Unlock()
		if up {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server did not come up")
		}
		time.Sleep(time.Millisecond)
	}

	if err := a.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	awaitServe(t, done)

	if err := a.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}

	// a server stopped before serving never starts listening
	b := &api{address: "127.0.0.1:0", repository: repo,
		indexDir: filepath.Join(dir, "index"), daemon: d, fs: afero.NewOsFs()}
	if err := b.Stop(); err != nil {
		t.Fatalf("stop before serve failed: %v", err)
	}
	awaitServe(t, serveAsync(b))

	if b.index != nil || b.server != nil {
		t.Error("stopped server should not start index or listener")
	}
}
