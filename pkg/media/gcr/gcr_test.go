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

import (
	"bytes"
	"math/rand"
	"testing"
)

//
func TestFourBytesRoundTrip(t *testing.T) {

	check := func(in []byte) {
		t.Helper()
		var enc [5]byte
		var dec [4]byte
		EncodeFourBytes(enc[:], in)
		if !DecodeFourBytes(dec[:], enc[:]) {
			t.Fatalf("decoding % X reported invalid code", in)
		}
		if !bytes.Equal(dec[:], in) {
			t.Fatalf("round trip mismatch, want % X, got % X", in, dec)
		}
	}

	// every nibble in every position
	for n := 0; n < 16; n++ {
		for pos := 0; pos < 8; pos++ {
			in := make([]byte, 4)
			if pos&1 == 0 {
				in[pos>>1] = byte(n << 4)
			} else {
				in[pos>>1] = byte(n)
			}
			check(in)
		}
	}

	// every byte value in every position
	for v := 0; v < 256; v++ {
		for pos := 0; pos < 4; pos++ {
			in := []byte{0x5A, 0xA5, 0x0F, 0xF0}
			in[pos] = byte(v)
			check(in)
		}
	}

	rnd := rand.New(rand.NewSource(1541))
	for i := 0; i < 100000; i++ {
		in := make([]byte, 4)
		rnd.Read(in)
		check(in)
	}
}

//
func TestEncodeRunLength(t *testing.T) {

	// no more than two consecutive zero bits in encoded data
	var enc [5]byte
	EncodeFourBytes(enc[:], []byte{0x00, 0x00, 0x00, 0x00})

	zeros := 0
	for _, b := range enc {
		for bit := 7; bit >= 0; bit-- {
			if b&(1<<bit) == 0 {
				if zeros++; zeros > 2 {
					t.Fatalf("more than two consecutive zero bits in % X", enc)
				}
			} else {
				zeros = 0
			}
		}
	}

	if want := []byte{0x52, 0x94, 0xA5, 0x29, 0x4A}; !bytes.Equal(enc[:], want) {
		t.Errorf("encoding of zero bytes, want % X, got % X", want, enc)
	}
}

//
func TestDecodeInvalid(t *testing.T) {

	var dec [4]byte
	// 00000 is not a valid code
	if DecodeFourBytes(dec[:], []byte{0x00, 0x00, 0x00, 0x00, 0x00}) {
		t.Fatal("invalid GCR data not detected")
	}
	if dec != [4]byte{} {
		t.Errorf("invalid codes should decode to zero, got % X", dec)
	}

	// only the first code is broken, the rest still decodes
	var enc [5]byte
	EncodeFourBytes(enc[:], []byte{0x12, 0x34, 0x56, 0x78})
	enc[0] &= 0x07
	if DecodeFourBytes(dec[:], enc[:]) {
		t.Fatal("invalid GCR data not detected")
	}
	if dec[0] != 0x02 || dec[1] != 0x34 || dec[2] != 0x56 || dec[3] != 0x78 {
		t.Errorf("unexpected partial decode: % X", dec)
	}
}

//
func newTestTrack(seed int64) *Track {
	t := &Track{ID1: 'A', ID2: 'B'}
	rand.New(rand.NewSource(seed)).Read(t.Data[:])
	return t
}

//
func TestTrackRoundTrip(t *testing.T) {

	zones := []struct {
		sectors int
		bytes   int
	}{
		{21, 7692},
		{19, 7143},
		{18, 6667},
		{17, 6250},
	}

	for _, z := range zones {
		tr := newTestTrack(int64(z.sectors))
		for s := 0; s < z.sectors; s++ {
			tr.Errors[s] = OK
		}
		want := tr.Data

		tr.Encode(18, z.sectors, z.bytes)
		for i := z.sectors * SectorSize; i < MaxDataBytes; i++ {
			want[i] = tr.Data[i]
		}
		tr.Data = [MaxDataBytes]byte{}
		tr.ID1, tr.ID2 = 0, 0

		if n := tr.Decode(18, z.sectors, z.bytes); n != z.sectors {
			t.Fatalf("%d sectors: decoded %d sectors", z.sectors, n)
		}
		if !bytes.Equal(tr.Data[:z.sectors*SectorSize],
			want[:z.sectors*SectorSize]) {
			t.Errorf("%d sectors: data mismatch after round trip", z.sectors)
		}
		for s := 0; s < z.sectors; s++ {
			if tr.Errors[s] != OK {
				t.Errorf("%d sectors: sector %d reports %v", z.sectors, s,
					tr.Errors[s])
			}
		}
		if tr.ID1 != 'A' || tr.ID2 != 'B' {
			t.Errorf("%d sectors: ID not recovered, got %c%c", z.sectors,
				tr.ID1, tr.ID2)
		}
	}
}

//
func TestTrackWrongTrackNumber(t *testing.T) {
	tr := newTestTrack(7)
	tr.Encode(5, 21, 7692)
	if n := tr.Decode(6, 21, 7692); n != 0 {
		t.Errorf("decoded %d sectors from wrong track", n)
	}
	for s := 0; s < 21; s++ {
		if tr.Errors[s] != HeaderNotFound {
			t.Errorf("sector %d: want %v, got %v", s, HeaderNotFound,
				tr.Errors[s])
		}
	}
}

//
func TestTrackNoSync(t *testing.T) {
	tr := &Track{}
	for i := range tr.GCR {
		tr.GCR[i] = gapByte
	}
	if n := tr.Decode(1, 21, 7692); n != 0 {
		t.Errorf("decoded %d sectors from blank track", n)
	}
	for s := 0; s < 21; s++ {
		if tr.Errors[s] != SyncNotFound {
			t.Errorf("sector %d: want %v, got %v", s, SyncNotFound, tr.Errors[s])
		}
	}
}

//
func TestTrackFaultInjection(t *testing.T) {

	tests := []struct {
		code     ErrorCode
		want     ErrorCode
		decoded  bool
		expected int
	}{
		{HeaderCRCError, HeaderCRCError, false, 20},
		{HeaderNotFound, HeaderNotFound, false, 20},
		{DataNotFound, DataNotFound, false, 20},
		{DataCRCError, DataCRCError, true, 21},
		{DecodeError, DecodeError, false, 20},
	}

	for _, tc := range tests {
		t.Run(tc.code.String(), func(t *testing.T) {

			const sector = 7
			tr := newTestTrack(int64(tc.code))
			for s := 0; s < 21; s++ {
				tr.Errors[s] = OK
			}
			tr.Errors[sector] = tc.code
			tr.Encode(1, 21, 7692)

			orig := tr.Data
			marker := bytes.Repeat([]byte{0xEE}, SectorSize)
			copy(tr.Data[sector*SectorSize:], marker)

			n := tr.Decode(1, 21, 7692)
			if n != tc.expected {
				t.Errorf("want %d sectors decoded, got %d", tc.expected, n)
			}
			if tr.Errors[sector] != tc.want {
				t.Errorf("want error %v, got %v", tc.want, tr.Errors[sector])
			}

			got := tr.Data[sector*SectorSize : (sector+1)*SectorSize]
			if tc.decoded {
				if !bytes.Equal(got, orig[sector*SectorSize:(sector+1)*SectorSize]) {
					t.Error("sector data not recovered")
				}
			} else if !bytes.Equal(got, marker) {
				t.Error("damaged sector must leave sector data untouched")
			}

			for s := 0; s < 21; s++ {
				if s != sector && tr.Errors[s] != OK {
					t.Errorf("sector %d: unexpected %v", s, tr.Errors[s])
				}
			}
		})
	}
}

//
func TestTrackDecodeTerminatesOnGarbage(t *testing.T) {
	tr := &Track{}
	rnd := rand.New(rand.NewSource(64))
	for round := 0; round < 50; round++ {
		rnd.Read(tr.GCR[:])
		// plant a few header sync marks
		for i := 0; i < 10; i++ {
			p := rnd.Intn(7692 - 4)
			copy(tr.GCR[p:], []byte{0xFF, 0xFF, 0x52, 0x54})
		}
		if n := tr.Decode(1, 21, 7692); n < 0 || n > 21 {
			t.Fatalf("implausible number of decoded sectors: %d", n)
		}
	}
}
