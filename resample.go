// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package bdf

import (
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// Resampler reduces the sampling rate of a signal.
type Resampler interface {
	// Decimate returns len(x)/factor samples of x resampled at 1/factor of
	// its rate. x must not be modified.
	Decimate(x []float64, factor int) []float64
}

// FourierResampler decimates by discarding every Fourier coefficient above
// the new Nyquist frequency, an ideal low-pass filter for periodic signals.
type FourierResampler struct{}

// Decimate implements Resampler.
func (FourierResampler) Decimate(x []float64, factor int) []float64 {
	n := len(x)
	if factor <= 1 || n == 0 {
		return append([]float64(nil), x...)
	}
	m := n / factor
	if m == 0 {
		return []float64{}
	}

	coeff := fourier.NewFFT(n).Coefficients(nil, x)

	kept := make([]complex128, m/2+1)
	copy(kept, coeff)
	if m%2 == 0 {
		// The new Nyquist bin stands for both the positive and the negative
		// frequency of the input spectrum.
		kept[m/2] *= 2
	}

	y := fourier.NewFFT(m).Sequence(nil, kept)
	// Both transforms are unnormalized.
	floats.Scale(1/float64(n), y)

	return y
}
