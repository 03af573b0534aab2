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

package gcr

const (
	// MaxTrackBytes is the size of the GCR buffer, enough for the longest
	// track of any supported zone
	MaxTrackBytes = 8192
	// MaxSectors is the size of the per track error table
	MaxSectors = 24
	// SectorSize is the number of user data bytes per sector
	SectorSize = 256
	// MaxDataBytes is the size of the raw sector buffer, for 21 sectors
	MaxDataBytes = 21 * SectorSize
)

const (
	blockIDHeader = 0x08
	blockIDData   = 0x07
	syncByte      = 0xFF
	gapByte       = 0x55
	headerGap     = 9
)

// Track holds one track of a disk both in raw sector form and GCR encoded
// form, as it passes under the drive head.
type Track struct {
	// GCR is the encoded track
	GCR [MaxTrackBytes]byte
	// Data holds the sectors' user data, back to back
	Data [MaxDataBytes]byte
	// Errors holds the error code of each sector
	Errors [MaxSectors]ErrorCode
	// ID1 and ID2 are the format ID characters written to each sector
	// header. Decoding a track updates them from the last good header.
	ID1 byte
	ID2 byte
}

// gapSize returns the length of the gap following the data block of sector
// number s.
func gapSize(s, nSectors int) int {
	if s&1 != 0 {
		switch nSectors {
		case 19:
			return 19
		case 18:
			return 13
		case 17:
			return 10
		}
	}
	return 9
}

// Encode encodes the first nSectors sectors of Data into GCR, using trackNum
// as the track number in the sector headers, and pads the GCR buffer with gap
// bytes up to nBytes. The error code of each sector selects which part of it
// gets damaged on the way.
func (t *Track) Encode(trackNum, nSectors, nBytes int) {

	readPos := 0
	writePos := 0
	var raw [8]byte
	var enc [5]byte

	put := func(b byte, count int) {
		for ; count > 0; count-- {
			t.GCR[writePos] = b
			writePos++
		}
	}

	putEncoded := func(in []byte) {
		EncodeFourBytes(enc[:], in)
		copy(t.GCR[writePos:], enc[:])
		writePos += len(enc)
	}

	for s := 0; s < nSectors; s++ {

		code := t.Errors[s]

		// header
		if code != SyncNotFound {
			put(syncByte, 5)
		}

		raw[0] = blockIDHeader
		if code == HeaderNotFound {
			raw[0] = 0x00
		}
		raw[2] = byte(s)
		raw[3] = byte(trackNum)
		raw[4] = t.ID2
		raw[5] = t.ID1
		raw[6] = 0x0F
		raw[7] = 0x0F
		crc := raw[2] ^ raw[3] ^ raw[4] ^ raw[5]
		if code == HeaderCRCError {
			crc = ^crc
		}
		raw[1] = crc
		putEncoded(raw[0:4])
		putEncoded(raw[4:8])

		put(gapByte, headerGap)

		// data block
		if code != SyncNotFound {
			put(syncByte, 5)
		}

		raw[0] = blockIDData
		if code == DataNotFound {
			raw[0] = 0x00
		}
		bufPos := 1
		crc = 0
		for j := 0; j < SectorSize; j++ {
			b := t.Data[readPos]
			readPos++
			raw[bufPos] = b
			bufPos++
			crc ^= b
			if bufPos == 4 {
				bufPos = 0
				putEncoded(raw[0:4])
			}
		}

		if code == DataCRCError {
			crc = ^crc
		}
		raw[1] = crc
		raw[2] = 0x00
		raw[3] = 0x00
		EncodeFourBytes(enc[:], raw[0:4])
		if code == DecodeError {
			enc[0] = 0x00
		}
		copy(t.GCR[writePos:], enc[:])
		writePos += len(enc)

		put(gapByte, gapSize(s, nSectors))
	}

	for ; writePos < nBytes; writePos++ {
		t.GCR[writePos] = gapByte
	}
}

const (
	modeSearchHeaderSync = iota
	modeReadHeader
	modeSearchDataSync
	modeReadData
)

const (
	headerGCRBytes = 10
	dataGCRBytes   = 325
)

// Decode scans the first nBytes of the GCR buffer for sectors of track
// trackNum, and copies every successfully decoded sector into Data. It
// records an error code for each of the nSectors sectors, and returns the
// number of sectors decoded. Sectors with a data checksum error are decoded
// and counted, but flagged.
//
// The scan starts at the first header sync and makes exactly one pass around
// the circular track, so it terminates on any input.
func (t *Track) Decode(trackNum, nSectors, nBytes int) int {

	if nSectors > MaxSectors {
		nSectors = MaxSectors
	}

	firstSyncPos := -1
	code := SyncNotFound

	for pos := 0; pos <= nBytes-4; pos++ {
		if t.GCR[pos] == syncByte && t.GCR[pos+1] == syncByte &&
			t.GCR[pos+2] == 0x52 && t.GCR[pos+3]&0xC0 == 0x40 {
			firstSyncPos = pos
			code = HeaderNotFound
			break
		}
	}

	for s := 0; s < nSectors; s++ {
		t.Errors[s] = code
	}

	if firstSyncPos < 0 || nBytes <= 0 {
		return 0
	}

	decoded := 0
	readPos := firstSyncPos
	syncCnt := 0
	mode := modeSearchHeaderSync
	toDecode := 0
	byteCnt := 0
	sector := 0

	var enc [dataGCRBytes]byte
	var dec [dataGCRBytes / 5 * 4]byte

	// rewind so that the current byte is read again as first byte of a block
	rewind := func() {
		if readPos == 0 {
			readPos = nBytes
		}
		readPos--
	}

	decodeBlock := func() {
		for i, j := 0, 0; i < toDecode; i, j = i+5, j+4 {
			if !DecodeFourBytes(dec[j:], enc[i:]) {
				code = DecodeError
			}
		}
	}

	for {
		c := t.GCR[readPos]

		switch mode {

		case modeSearchHeaderSync:
			if c == syncByte {
				syncCnt++
			} else {
				if syncCnt >= 2 {
					code = OK
					mode = modeReadHeader
					toDecode = headerGCRBytes
					byteCnt = 0
					rewind()
				}
				syncCnt = 0
			}

		case modeReadHeader:
			if byteCnt < toDecode {
				enc[byteCnt] = c
				byteCnt++
				break
			}

			decodeBlock()
			var crc byte
			for i := 1; i < 6; i++ {
				crc ^= dec[i]
			}
			if code == OK {
				if dec[0] != blockIDHeader {
					code = HeaderNotFound
				} else if crc != 0 {
					code = HeaderCRCError
				}
			}

			trackOK := int(dec[3]) == trackNum
			sectorOK := int(dec[2]) < nSectors

			if code != OK || !trackOK || !sectorOK {
				// a genuine but damaged header of this track
				if code != OK && dec[0] == blockIDHeader && trackOK &&
					sectorOK && t.Errors[dec[2]] != OK {
					t.Errors[dec[2]] = code
				}
				mode = modeSearchHeaderSync
			} else {
				sector = int(dec[2])
				mode = modeSearchDataSync
				t.ID2 = dec[4]
				t.ID1 = dec[5]
			}

		case modeSearchDataSync:
			if c == syncByte {
				syncCnt++
			} else {
				if syncCnt >= 2 {
					mode = modeReadData
					toDecode = dataGCRBytes
					byteCnt = 0
					rewind()
				}
				syncCnt = 0
			}

		case modeReadData:
			if byteCnt < toDecode {
				enc[byteCnt] = c
				byteCnt++
				break
			}

			decodeBlock()
			var crc byte
			for i := 1; i < 258; i++ {
				crc ^= dec[i]
			}
			if code == OK {
				if dec[0] != blockIDData {
					code = DataNotFound
				} else if crc != 0 {
					code = DataCRCError
				}
			}
			if code == OK || code == DataCRCError {
				copy(t.Data[sector*SectorSize:(sector+1)*SectorSize],
					dec[1:1+SectorSize])
				decoded++
			}
			t.Errors[sector] = code
			sector = 0
			mode = modeSearchHeaderSync
		}

		if readPos++; readPos >= nBytes {
			readPos = 0
		}
		if readPos == firstSyncPos {
			break
		}
	}

	return decoded
}
