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

package tape

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/spf13/afero"

	log "github.com/sirupsen/logrus"
)

const (
	maxSoundChannels = 16
	maxSoundFrames   = 0x40000000
	filterSize       = 2048
	wavFormatPCM     = 1
	wavFormatFloat   = 3
	wavFormatExt     = 0xFFFE
)

// sound is the state of an audio file used as tape. The file is decoded into
// memory as 16 bit samples when opened. Recorded samples go into memory as
// well, and the whole file is encoded again when written back. WAV files may
// hold PCM or 32 bit float samples, but only 16 bit PCM WAV files can be
// written to.
type sound struct {
	samples  []int16 // interleaved frames
	channels int
	channel  int

	invert   bool
	filterOn bool
	filter   *Filter

	dirty bool
}

// isSoundFile checks whether the file in store is a WAV file, or an MP3 file
// going by its name or ID3 tag.
func isSoundFile(t *Tape) (wavFile, mp3File bool) {

	size, err := t.store.Size()
	if err != nil {
		return false, false
	}

	hdr := make([]byte, 12)
	if _, err := t.store.ReadAt(hdr, 0); err == nil {
		if bytes.Equal(hdr[0:4], []byte("RIFF")) &&
			bytes.Equal(hdr[8:12], []byte("WAVE")) {
			return true, false
		}
		if bytes.Equal(hdr[0:3], []byte("ID3")) {
			return false, true
		}
	}

	return false, size > 0 &&
		strings.ToLower(filepath.Ext(t.store.Name())) == ".mp3"
}

// openSound sets up t for the sound file in store.
func openSound(t *Tape, mp3File bool, readOnly bool) error {

	s := &sound{channels: 1}
	var err error

	if mp3File {
		err = s.decodeMP3(t)
		readOnly = true
	} else {
		readOnly, err = s.decodeWAV(t, readOnly)
	}
	if err != nil {
		return err
	}

	if t.sampleRate < MinSampleRate || t.sampleRate > MaxSampleRate {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFile, t.sampleRate)
	}
	if s.channels < 1 || s.channels > maxSoundChannels {
		return fmt.Errorf("%w: %d channels", ErrInvalidFile, s.channels)
	}
	frames := int64(len(s.samples) / s.channels)
	if frames >= maxSoundFrames {
		return fmt.Errorf("%w: too long", ErrInvalidFile)
	}

	if s.filter, err = NewFilter(filterSize); err != nil {
		return err
	}

	t.format = FormatSoundFile
	t.sound = s
	t.length = frames
	t.readOnly = readOnly || t.store.IsReadOnly()

	log.WithFields(log.Fields{
		"tape":     t.Name(),
		"mp3":      mp3File,
		"rate":     t.sampleRate,
		"bits":     t.fileBits,
		"channels": s.channels,
		"samples":  t.length,
		"readonly": t.readOnly,
	}).Info("sound file opened")

	return nil
}

// decodeWAV reads the complete WAV file. Files that cannot be written back
// as they are, are opened read-only.
func (s *sound) decodeWAV(t *Tape, readOnly bool) (bool, error) {

	size, err := t.store.Size()
	if err != nil {
		return readOnly, err
	}

	dec := wav.NewDecoder(io.NewSectionReader(t.store, 0, size))
	if !dec.IsValidFile() {
		return readOnly, fmt.Errorf("%w: not a valid WAV file", ErrInvalidFile)
	}
	float := false
	switch dec.WavAudioFormat {
	case wavFormatPCM:
	case wavFormatFloat:
		if dec.BitDepth != 32 {
			return readOnly, fmt.Errorf("%w: unsupported float sample size %d",
				ErrInvalidFile, dec.BitDepth)
		}
		float = true
	case wavFormatExt: // sub format is not reported, only PCM is unambiguous
		if dec.BitDepth > 24 {
			return readOnly, fmt.Errorf(
				"%w: unsupported extensible WAV with %d bit samples",
				ErrInvalidFile, dec.BitDepth)
		}
	default:
		return readOnly, fmt.Errorf("%w: unsupported WAV format %d",
			ErrInvalidFile, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return readOnly, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	t.sampleRate = int(dec.SampleRate)
	t.fileBits = int(dec.BitDepth)
	s.channels = int(dec.NumChans)
	s.samples = make([]int16, len(buf.Data))

	for i, v := range buf.Data {
		if float {
			s.samples[i] = floatSample(v)
			continue
		}
		switch t.fileBits {
		case 8:
			v = (v - 128) << 8
		case 24:
			v >>= 8
		case 32:
			v >>= 16
		}
		s.samples[i] = int16(v)
	}

	if (float || t.fileBits != 16) && !readOnly {
		log.WithField("bits", t.fileBits).Info(
			"WAV file can only be written with 16 bit samples, opening read-only")
		readOnly = true
	}

	return readOnly, nil
}

// floatSample converts a 32 bit float sample, as delivered in raw form by the
// WAV decoder, into a 16 bit sample
func floatSample(raw int) int16 {
	f := float64(math.Float32frombits(uint32(raw)))
	switch {
	case math.IsNaN(f):
		return 0
	case f > 1:
		f = 1
	case f < -1:
		f = -1
	}
	return int16(math.Round(f * 32767))
}

// decodeMP3 reads the complete MP3 file. The decoder always delivers 16 bit
// stereo.
func (s *sound) decodeMP3(t *Tape) error {

	size, err := t.store.Size()
	if err != nil {
		return err
	}

	dec, err := mp3.NewDecoder(io.NewSectionReader(t.store, 0, size))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	t.sampleRate = dec.SampleRate()
	t.fileBits = 16
	s.channels = 2

	chunk := make([]byte, 4096)
	for {
		n, err := dec.Read(chunk)
		for i := 0; i+1 < n; i += 2 {
			s.samples = append(s.samples,
				int16(uint16(chunk[i])|uint16(chunk[i+1])<<8))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFile, err)
		}
	}

	s.samples = s.samples[:len(s.samples)/2*2]
	return nil
}

// sample returns the sample of the selected channel at frame pos, as seen by
// the tape deck
func (s *sound) sample(pos int64) int {
	ix := int(pos)*s.channels + s.channel
	if ix >= len(s.samples) {
		return 0
	}
	v := int(s.samples[ix])
	if s.invert {
		v = -1 - v
	}
	return v
}

// setSample stores v as the sample of the selected channel at frame pos,
// extending the recording as needed
func (s *sound) setSample(t *Tape, pos int64, v int) {
	ix := int(pos)*s.channels + s.channel
	if ix >= len(s.samples) {
		grow := (int(pos)+1)*s.channels - len(s.samples)
		s.samples = append(s.samples, make([]int16, grow)...)
		t.length = pos + 1
	}
	if s.invert {
		v = -1 - v
	}
	s.samples[ix] = int16(v)
	s.dirty = true
}

// quantize turns a recorded input level at the requested sample size into a
// 16 bit sample
func quantize(in, bits int) int {
	if in < 0 {
		in = 0
	}
	switch bits {
	case 1:
		if in > 0 {
			return 32767
		}
		return -32768
	case 2:
		if in > 3 {
			in = 3
		}
		return in<<14 - 24576
	case 4:
		if in > 15 {
			in = 15
		}
		return in<<12 - 30720
	}
	if in > 255 {
		in = 255
	}
	return in<<8 - 32640
}

//
func (s *sound) runOneSample(t *Tape) {

	v := s.sample(t.position)

	if t.record {
		s.setSample(t, t.position, quantize(t.input, t.requestedBits))
	}

	if s.filterOn {
		v = int(math.Round(s.filter.ProcessSample(float64(v))))
	}

	v += 32768
	if v < 0 {
		v = 0
	} else if v > 65535 {
		v = 65535
	}
	t.output = v >> (16 - t.requestedBits)

	pos := t.position + 1
	if pos >= t.length && !t.record {
		pos = t.length
	}
	t.position = pos
}

//
func (s *sound) seek(t *Tape, pos int64) {
	if pos > t.length {
		pos = t.length
	}
	t.position = pos
}

//
func (s *sound) setParameters(t *Tape, channel int, invert, filter bool,
	minFreq, maxFreq float64) {

	if channel < 0 {
		channel = 0
	} else if channel >= s.channels {
		channel = s.channels - 1
	}
	s.channel = channel

	s.invert = invert
	s.filterOn = filter
	if filter {
		s.filter.SetParameters(float64(t.sampleRate), minFreq, maxFreq)
	}

	log.WithFields(log.Fields{
		"channel": channel,
		"invert":  invert,
		"filter":  filter,
		"min":     minFreq,
		"max":     maxFreq,
	}).Debug("sound file parameters set")
}

// flush encodes all samples as a 16 bit PCM WAV file, and replaces the file
// contents with that, if anything has been recorded.
func (s *sound) flush(t *Tape) error {

	if !s.dirty {
		return nil
	}
	s.dirty = false

	data, err := s.encodeWAV(t)
	if err != nil {
		return fmt.Errorf("error encoding tape file: %w", err)
	}

	if _, err := t.store.WriteAt(data, 0); err != nil {
		return fmt.Errorf("error writing tape file: %w", err)
	}
	if err := t.store.Truncate(int64(len(data))); err != nil {
		return fmt.Errorf("error writing tape file: %w", err)
	}

	log.WithFields(log.Fields{
		"tape": t.Name(), "samples": t.length}).Debug("sound file written")

	return t.store.Sync()
}

// encodeWAV encodes the samples in an in-memory file, since the encoder needs
// to seek back for completing the header
func (s *sound) encodeWAV(t *Tape) ([]byte, error) {

	mem := afero.NewMemMapFs()
	f, err := mem.Create("tape.wav")
	if err != nil {
		return nil, err
	}

	enc := wav.NewEncoder(f, t.sampleRate, 16, s.channels, wavFormatPCM)

	data := make([]int, len(s.samples))
	for i, v := range s.samples {
		data[i] = int(v)
	}

	if err := enc.Write(&audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: s.channels,
			SampleRate:  t.sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}); err != nil {
		f.Close()
		return nil, err
	}

	if err := enc.Close(); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return afero.ReadFile(mem, "tape.wav")
}
