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

package image

import (
	"fmt"
)

// SectorStore gives fixed-size sector access to an image store. Sector
// indexes are zero-based and count from the start of the image.
type SectorStore struct {
	store      Store
	sectorSize int
}

//
func NewSectorStore(s Store, sectorSize int) (*SectorStore, error) {
	if sectorSize < 1 {
		return nil, fmt.Errorf("invalid sector size: %d", sectorSize)
	}
	return &SectorStore{store: s, sectorSize: sectorSize}, nil
}

//
func (s *SectorStore) SectorSize() int {
	return s.sectorSize
}

// Count returns the number of complete sectors in the image.
func (s *SectorStore) Count() (int, error) {
	size, err := s.store.Size()
	if err != nil {
		return 0, err
	}
	return int(size / int64(s.sectorSize)), nil
}

// ReadSector reads the sector at index ix into p, which must be at least one
// sector long.
func (s *SectorStore) ReadSector(ix int, p []byte) error {
	if err := s.check(ix, p); err != nil {
		return err
	}
	_, err := s.store.ReadAt(p[:s.sectorSize], int64(ix)*int64(s.sectorSize))
	return err
}

// WriteSector writes the first sector size bytes of p to the sector at index
// ix, and syncs the store.
func (s *SectorStore) WriteSector(ix int, p []byte) error {
	if err := s.check(ix, p); err != nil {
		return err
	}
	if _, err := s.store.WriteAt(
		p[:s.sectorSize], int64(ix)*int64(s.sectorSize)); err != nil {
		return err
	}
	return s.store.Sync()
}

//
func (s *SectorStore) check(ix int, p []byte) error {
	if ix < 0 {
		return fmt.Errorf("invalid sector index: %d", ix)
	}
	if len(p) < s.sectorSize {
		return fmt.Errorf("sector buffer too small: %d < %d", len(p), s.sectorSize)
	}
	return nil
}
