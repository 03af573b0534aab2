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
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Filter is a linear phase FIR band-pass filter. Its impulse response of n
// samples is applied by FFT convolution in blocks of n samples, so the output
// lags the input by 1.5 n samples.
type Filter struct {
	n   int
	fft *fourier.FFT // size 2n

	response []complex128 // transfer function, 2n point
	spectrum []complex128
	work     []float64

	in   []float64
	out  []float64
	tail []float64
	cnt  int
}

// NewFilter creates a filter with an impulse response of n samples. n needs
// to be a power of 2 between 16 and 32768. Until parameters are set, the
// filter only delays its input.
func NewFilter(n int) (*Filter, error) {

	if n < 16 || n > 32768 || n&(n-1) != 0 {
		return nil, fmt.Errorf("invalid filter size: %d", n)
	}

	f := &Filter{
		n:        n,
		fft:      fourier.NewFFT(2 * n),
		spectrum: make([]complex128, n+1),
		work:     make([]float64, 2*n),
		in:       make([]float64, n),
		out:      make([]float64, n),
		tail:     make([]float64, n),
	}

	ir := make([]float64, 2*n)
	ir[n/2] = 1
	f.response = f.fft.Coefficients(nil, ir)

	return f, nil
}

// SetParameters calculates the impulse response for a pass band from minFreq
// to maxFreq Hz at the given sample rate. Attenuation rises along a squared
// sine towards a quarter of minFreq, and along a squared cosine towards four
// times maxFreq. The response is shaped with a von Hann window.
func (f *Filter) SetParameters(sampleRate, minFreq, maxFreq float64) {

	n := f.n
	bin := func(freq float64) int {
		return int(float64(n)*freq/sampleRate + 0.5)
	}
	hpPass := bin(minFreq)
	hpStop := bin(0.25 * minFreq)
	lpPass := bin(maxFreq)
	lpStop := bin(4 * maxFreq)

	half := make([]complex128, n/2+1)
	for i := range half {
		a := 1.0
		if i <= hpStop || i >= lpStop {
			a = 0
		} else {
			if i < hpPass {
				w := math.Sin(math.Pi / 2 *
					float64(i-hpStop) / float64(hpPass-hpStop))
				a *= w * w
			}
			if i > lpPass {
				w := math.Cos(math.Pi / 2 *
					float64(i-lpPass) / float64(lpStop-lpPass))
				a *= w * w
			}
		}
		// delay by n/2 samples, for a causal response
		if i&1 != 0 {
			a = -a
		}
		half[i] = complex(a, 0)
	}

	ir := fourier.NewFFT(n).Sequence(nil, half)
	padded := make([]float64, 2*n)
	for i, v := range ir {
		w := math.Sin(math.Pi * float64(i) / float64(n))
		padded[i] = v * w * w / float64(n)
	}

	f.response = f.fft.Coefficients(f.response, padded)
}

// ProcessSample feeds x into the filter and returns the next output sample.
func (f *Filter) ProcessSample(x float64) float64 {

	y := f.out[f.cnt]
	f.in[f.cnt] = x

	if f.cnt++; f.cnt == f.n {
		f.cnt = 0
		f.convolve()
	}

	return y
}

// convolve filters the completed input block, and adds the result to what
// is left over from the previous block
func (f *Filter) convolve() {

	n := f.n
	copy(f.work, f.in)
	for i := n; i < 2*n; i++ {
		f.work[i] = 0
	}

	spec := f.fft.Coefficients(f.spectrum, f.work)
	for i := range spec {
		spec[i] *= f.response[i]
	}

	// the inverse transform is not normalized
	seq := f.fft.Sequence(f.work, spec)
	scale := 1 / float64(2*n)
	for i := 0; i < n; i++ {
		f.out[i] = (seq[i] + f.tail[i]) * scale
	}
	copy(f.tail, seq[n:])
}
