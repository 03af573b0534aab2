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

// Package control provides the HTTP API for loading media into the daemon's
// drives, querying their state, and operating the tape deck.
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"github.com/xelalexv/plus4drive/pkg/daemon"
	"github.com/xelalexv/plus4drive/pkg/media/image"
	"github.com/xelalexv/plus4drive/pkg/repo"

	log "github.com/sirupsen/logrus"
)

//
type APIServer interface {
	Serve() error
	Stop() error
}

// NewAPIServer creates the API server for daemon d, listening on address.
// When repository is set, images can be loaded from there. If index is set as
// well, the repository is indexed for searching, with the index kept in that
// directory.
func NewAPIServer(address, repository, index string,
	d *daemon.Daemon) APIServer {
	return &api{
		address:    address,
		repository: repository,
		indexDir:   index,
		daemon:     d,
		fs:         afero.NewOsFs(),
	}
}

//
type api struct {
	address    string
	repository string
	indexDir   string
	//
	daemon *daemon.Daemon
	index  *repo.Index
	fs     afero.Fs
	server *http.Server
	//
	mutex    sync.Mutex
	indexing sync.WaitGroup
	stopped  bool
}

// Serve starts the search index, if configured, and serves API requests
// until Stop is called. Starting the index runs in the background.
func (a *api) Serve() error {

	a.mutex.Lock()

	if a.stopped {
		a.mutex.Unlock()
		return nil
	}

	if a.repository != "" && a.indexDir != "" {
		var err error
		if a.index, err = repo.NewIndex(a.indexDir, a.repository); err != nil {
			log.Errorf("cannot create search index: %v", err)
			a.index = nil
		} else {
			a.indexing.Add(1)
			go func(ix *repo.Index) {
				defer a.indexing.Done()
				if err := ix.Start(); err != nil {
					log.Errorf("cannot start search index: %v", err)
				}
			}(a.index)
		}
	}

	a.server = &http.Server{
		Addr:              a.address,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := a.server

	a.mutex.Unlock()

	log.WithField("address", a.address).Info("API server starts listening")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts down the API server. The search index is closed once it has
// finished starting up.
func (a *api) Stop() error {

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.stopped {
		return nil
	}
	a.stopped = true

	var err error
	if a.server != nil {
		log.Info("API server stopping")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = a.server.Shutdown(ctx)
	}

	a.indexing.Wait()
	if a.index != nil {
		a.index.Stop()
	}

	return err
}

//
func (a *api) router() *mux.Router {

	r := mux.NewRouter().StrictSlash(true)

	r.HandleFunc("/status", a.status).Methods("GET")
	r.HandleFunc("/version", a.version).Methods("GET")
	r.HandleFunc("/search", a.search).Methods("GET")

	r.HandleFunc("/disk", a.diskStatus).Methods("GET")
	r.HandleFunc("/disk", a.load(image.KindDisk)).Methods("PUT")
	r.HandleFunc("/disk", a.eject(image.KindDisk)).Methods("DELETE")
	r.HandleFunc("/disk/track/{track}", a.diskTrack).Methods("GET")

	r.HandleFunc("/floppy", a.floppyStatus).Methods("GET")
	r.HandleFunc("/floppy", a.load(image.KindFloppy)).Methods("PUT")
	r.HandleFunc("/floppy", a.eject(image.KindFloppy)).Methods("DELETE")
	r.HandleFunc("/floppy/sector/{track}/{side}/{sector}",
		a.floppySector).Methods("GET")
	r.HandleFunc("/floppy/sector/{track}/{side}/{sector}",
		a.writeFloppySector).Methods("PUT")

	r.HandleFunc("/tape", a.tapeStatus).Methods("GET")
	r.HandleFunc("/tape", a.load(image.KindTape)).Methods("PUT")
	r.HandleFunc("/tape", a.eject(image.KindTape)).Methods("DELETE")
	r.HandleFunc("/tape/parameters", a.tapeParameters).Methods("PUT")
	r.HandleFunc("/tape/{command}", a.tapeCommand).Methods("POST")

	return r
}

//
func handleError(e error, statusCode int, w http.ResponseWriter) bool {

	if e == nil {
		return false
	}

	log.Errorf("%v", e)
	msg := e.Error()
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	sendReply([]byte(msg), statusCode, w)
	return true
}

//
func sendReply(body []byte, statusCode int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending reply: %v", err)
	}
}

//
func sendJSONReply(obj interface{}, statusCode int, w http.ResponseWriter) {

	body, err := json.Marshal(obj)
	if handleError(err, http.StatusInternalServerError, w) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Errorf("problem sending JSON reply: %v", err)
	}
}

//
func sendStreamReply(r io.ReadCloser, statusCode int, w http.ResponseWriter) {

	defer r.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := io.Copy(w, r); err != nil {
		log.Errorf("problem sending stream reply: %v", err)
	}
}

//
func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}

//
func getArg(req *http.Request, arg string) string {
	if v, ok := mux.Vars(req)[arg]; ok {
		return v
	}
	return req.URL.Query().Get(arg)
}

//
func isFlagSet(req *http.Request, flag string) bool {
	v := getArg(req, flag)
	return v == "true" || v == "1" || v == "yes"
}

//
func getIntArg(req *http.Request, arg string, def int) (int, error) {
	v := getArg(req, arg)
	if v == "" {
		return def, nil
	}
	ret, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid value for '%s': %v", arg, err)
	}
	return ret, nil
}

//
func getFloatArg(req *http.Request, arg string, def float64) (float64, error) {
	v := getArg(req, arg)
	if v == "" {
		return def, nil
	}
	ret, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("invalid value for '%s': %v", arg, err)
	}
	return ret, nil
}
