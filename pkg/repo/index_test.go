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
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/xelalexv/plus4drive/pkg/media/image"
)

//
func makeRepo(t *testing.T, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte{0}, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

//
func startIndex(t *testing.T, base, repo string) *Index {
	t.Helper()
	ix, err := NewIndex(base, repo)
	if err != nil {
		t.Fatal(err)
	}
	if err := ix.Start(); err != nil {
		ix.Stop()
		t.Fatal(err)
	}
	return ix
}

//
func search(t *testing.T, ix *Index, term string, kind image.Kind,
	max int) *SearchResult {
	t.Helper()
	res, err := ix.Search(term, kind, max)
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(res.Hits)
	return res
}

//
func TestIndexSearch(t *testing.T) {

	repo := makeRepo(t,
		"games/lode_runner.d64",
		"games/lode-runner.tap.gz",
		"demos/lode.d81",
		"docs/lode runner.txt",
		"games/ace.d64",
	)
	ix := startIndex(t, filepath.Join(t.TempDir(), "index"), repo)
	defer ix.Stop()

	res := search(t, ix, "lode", image.KindUnknown, 10)
	want := []string{
		"demos/lode.d81", "games/lode-runner.tap.gz", "games/lode_runner.d64"}
	if len(res.Hits) != len(want) || !res.Complete {
		t.Fatalf("unexpected result: %+v", res)
	}
	for i := range want {
		if res.Hits[i] != filepath.FromSlash(want[i]) {
			t.Errorf("hit %d: want %s, got %s", i, want[i], res.Hits[i])
		}
	}

	res = search(t, ix, "lode", image.KindTape, 10)
	if len(res.Hits) != 1 ||
		res.Hits[0] != filepath.FromSlash("games/lode-runner.tap.gz") {
		t.Errorf("unexpected tape result: %+v", res)
	}

	res = search(t, ix, "lode", image.KindUnknown, 2)
	if len(res.Hits) != 2 || res.Complete || res.Total != 3 {
		t.Errorf("unexpected limited result: %+v", res)
	}

	if _, err := ix.Search("  ", image.KindUnknown, 10); err == nil {
		t.Error("empty search term accepted")
	}
}

//
func TestIndexPrune(t *testing.T) {

	repo := makeRepo(t, "ace.d64", "ace.d81")
	base := filepath.Join(t.TempDir(), "index")

	ix := startIndex(t, base, repo)
	if res := search(t, ix, "ace", image.KindUnknown, 10); len(res.Hits) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	ix.Stop()

	if err := os.Remove(filepath.Join(repo, "ace.d81")); err != nil {
		t.Fatal(err)
	}

	ix = startIndex(t, base, repo)
	defer ix.Stop()

	res := search(t, ix, "ace", image.KindUnknown, 10)
	if len(res.Hits) != 1 || res.Hits[0] != "ace.d64" {
		t.Errorf("removed file not pruned: %+v", res)
	}
}
