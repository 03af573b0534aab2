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
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/xelalexv/plus4drive/pkg/media/image"

	log "github.com/sirupsen/logrus"
)

// SearchResult lists the repository relative paths of matching image files.
// Complete is false if there were more hits than requested.
type SearchResult struct {
	Hits     []string `json:"hits"`
	Total    uint64   `json:"total"`
	Complete bool     `json:"complete"`
}

// Search looks up image files whose path matches term, in bleve query string
// syntax. When kind is not image.KindUnknown, only images of that kind are
// returned.
func (i *Index) Search(term string, kind image.Kind, max int) (
	*SearchResult, error) {

	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("no search term")
	}
	if max < 1 {
		return nil, fmt.Errorf("invalid number of search results: %d", max)
	}

	log.WithField("kind", kind).Debugf("searching for '%s'", term)

	var q query.Query = bleve.NewQueryStringQuery(term)
	if kind != image.KindUnknown {
		kq := bleve.NewMatchQuery(kind.String())
		kq.SetField("Kind")
		q = bleve.NewConjunctionQuery(q, kq)
	}

	search := bleve.NewSearchRequestOptions(q, max+1, 0, false)
	res, err := i.index.Search(search)
	if err != nil {
		return nil, err
	}

	ret := &SearchResult{
		Hits:     make([]string, len(res.Hits)),
		Total:    res.Total,
		Complete: true}

	for ix, h := range res.Hits {
		ret.Hits[ix] = h.ID
	}

	if len(ret.Hits) > max {
		ret.Hits = ret.Hits[:max]
		ret.Complete = false
	}

	return ret, nil
}
