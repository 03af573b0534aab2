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

package repo

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

//
func TestResolvePath(t *testing.T) {

	repo := filepath.FromSlash("/srv/images")

	tests := []struct {
		ref  string
		want string
		err  bool
	}{
		{ref: "repo://games/ace.d64", want: "/srv/images/games/ace.d64"},
		{ref: "repo://../../etc/passwd", want: "/srv/images/etc/passwd"},
		{ref: "repo:///tapes/../ace.tap", want: "/srv/images/ace.tap"},
		{ref: "repo://", err: true},
		{ref: "file:///ace.d64", err: true},
	}

	for _, tc := range tests {
		t.Run(tc.ref, func(t *testing.T) {
			got, err := ResolvePath(tc.ref, repo)
			if tc.err {
				if err == nil {
					t.Errorf("want error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != filepath.FromSlash(tc.want) {
				t.Errorf("want %s, got %s", tc.want, got)
			}
		})
	}

	if _, err := ResolvePath("repo://ace.d64", ""); err == nil {
		t.Error("resolved without repository")
	}
}

//
func TestResolveRepoFile(t *testing.T) {

	fs := afero.NewMemMapFs()
	p := filepath.Join("/srv", "games", "ace.d64.gz")
	if err := afero.WriteFile(fs, p, []byte("ace"), 0644); err != nil {
		t.Fatal(err)
	}

	rd, name, err := Resolve(fs, "repo://games/ace.d64.gz", "/srv")
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	if name != "ace.d64.gz" {
		t.Errorf("unexpected name: %s", name)
	}
	if data, err := ioutil.ReadAll(rd); err != nil || string(data) != "ace" {
		t.Errorf("unexpected content: %q, %v", data, err)
	}

	if _, _, err := Resolve(fs, "repo://games/missing.d64", "/srv"); err == nil {
		t.Error("missing file resolved")
	}
}

//
func TestResolveHTTP(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			if req.URL.Path != "/images/ace.tap" {
				http.NotFound(w, req)
				return
			}
			w.Write([]byte("C16-TAPE-RAW"))
		}))
	defer srv.Close()

	rd, name, err := Resolve(nil, srv.URL+"/images/ace.tap", "")
	if err != nil {
		t.Fatal(err)
	}
	defer rd.Close()

	if name != "ace.tap" {
		t.Errorf("unexpected name: %s", name)
	}
	if data, _ := ioutil.ReadAll(rd); string(data) != "C16-TAPE-RAW" {
		t.Errorf("unexpected content: %q", data)
	}

	if _, _, err := Resolve(nil, srv.URL+"/missing.tap", ""); err == nil {
		t.Error("missing download resolved")
	}
	if _, _, err := Resolve(nil, "ftp://host/ace.tap", ""); err == nil {
		t.Error("unsupported scheme resolved")
	}
}
