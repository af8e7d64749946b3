// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package bdftest synthesises BDF files for tests.
package bdftest

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// Digital and physical ranges written by BioSemi ActiView.
const (
	PhysicalMin = -262144
	PhysicalMax = 262143
	DigitalMin  = -8388608
	DigitalMax  = 8388607
)

// Scale is the physical value of one digital step of a data channel.
const Scale = float64(PhysicalMax-PhysicalMin) / float64(DigitalMax-DigitalMin)

// Pulse raises the trigger code to Code for Width samples.
type Pulse struct {
	Sample int
	Width  int
	Code   uint16
}

// Fixture describes a synthetic recording with one-second data records.
type Fixture struct {
	Channels  int // Data channels, labelled A1, A2, ...
	Frequency int
	Records   int
	Pulses    []Pulse
}

// Newtest17 mirrors the BioSemi Newtest17 example files: 16 data channels
// plus status, 60 records, and a train of 255 triggers whose first onset and
// count match the BioSemi recordings at 256 and 2048 Hz.
func Newtest17(frequency int) Fixture {
	f := Fixture{Channels: 16, Frequency: frequency, Records: 60}

	first, count, period := 414, 40, 360
	if frequency == 2048 {
		first, count, period = 3352, 39, 2900
	}
	for i := 0; i < count; i++ {
		f.Pulses = append(f.Pulses, Pulse{Sample: first + i*period, Width: 20, Code: 255})
	}

	// One marker after the first 255 onset and one after the last.
	f.Pulses = append(f.Pulses,
		Pulse{Sample: 2*frequency + 10, Width: 10, Code: 1},
		Pulse{Sample: f.Samples() - 2*frequency + 5, Width: 10, Code: 2},
	)

	return f
}

// Samples returns the number of samples per channel.
func (f Fixture) Samples() int {
	return f.Records * f.Frequency
}

// Label returns the label of the zero based data channel ch.
func (f Fixture) Label(ch int) string {
	return fmt.Sprintf("A%d", ch+1)
}

// Digital returns the digital code of data channel ch at sample s.
func (f Fixture) Digital(ch, s int) int32 {
	phase := 2 * math.Pi * float64((ch+1)*s) / float64(f.Frequency)
	return int32(math.Round(float64(ch+1)*50000*math.Sin(phase))) - int32(ch*1000)
}

// Physical returns the physical value of data channel ch at sample s.
func (f Fixture) Physical(ch, s int) float64 {
	return float64(f.Digital(ch, s)) * Scale
}

// Trigger returns the trigger code at sample s.
func (f Fixture) Trigger(s int) uint16 {
	for _, p := range f.Pulses {
		if s >= p.Sample && s < p.Sample+p.Width {
			return p.Code
		}
	}
	return 0
}

// Status returns the status flags at sample s.
func (f Fixture) Status(s int) uint8 {
	if (s/f.Frequency)%2 == 0 {
		return 0x02
	}
	return 0x00
}

// Bytes renders the fixture as a BDF file.
func (f Fixture) Bytes() []byte {
	var b bytes.Buffer
	n := f.Channels + 1

	field := func(width int, v any) {
		fmt.Fprintf(&b, "%-*v", width, v)
	}

	b.WriteByte(0xFF)
	field(7, "BIOSEMI")
	field(80, "X")
	field(80, "Newtest")
	field(8, "26.04.05")
	field(8, "13.43.21")
	field(8, (n+1)*256)
	field(44, "24BIT")
	field(8, f.Records)
	field(8, 1)
	field(4, n)

	for ch := 0; ch < n; ch++ {
		if ch == f.Channels {
			field(16, "Status")
		} else {
			field(16, f.Label(ch))
		}
	}
	for ch := 0; ch < n; ch++ {
		if ch == f.Channels {
			field(80, "Triggers and Status")
		} else {
			field(80, "Active Electrode")
		}
	}
	for ch := 0; ch < n; ch++ {
		if ch == f.Channels {
			field(8, "Boolean")
		} else {
			field(8, "uV")
		}
	}
	for ch := 0; ch < n; ch++ {
		if ch == f.Channels {
			field(8, DigitalMin)
		} else {
			field(8, PhysicalMin)
		}
	}
	for ch := 0; ch < n; ch++ {
		if ch == f.Channels {
			field(8, DigitalMax)
		} else {
			field(8, PhysicalMax)
		}
	}
	for ch := 0; ch < n; ch++ {
		field(8, DigitalMin)
	}
	for ch := 0; ch < n; ch++ {
		field(8, DigitalMax)
	}
	for ch := 0; ch < n; ch++ {
		if ch == f.Channels {
			field(80, "No filtering")
		} else {
			field(80, "HP: DC; LP: 113 Hz")
		}
	}
	for ch := 0; ch < n; ch++ {
		field(8, f.Frequency)
	}
	for ch := 0; ch < n; ch++ {
		field(32, "")
	}

	for rec := 0; rec < f.Records; rec++ {
		for ch := 0; ch < f.Channels; ch++ {
			for s := rec * f.Frequency; s < (rec+1)*f.Frequency; s++ {
				d := f.Digital(ch, s)
				b.Write([]byte{byte(d), byte(d >> 8), byte(d >> 16)})
			}
		}
		for s := rec * f.Frequency; s < (rec+1)*f.Frequency; s++ {
			t := f.Trigger(s)
			b.Write([]byte{byte(t), byte(t >> 8), f.Status(s)})
		}
	}

	return b.Bytes()
}

// WriteFile writes the fixture to a temporary directory and returns its path.
func (f Fixture) WriteFile(tb testing.TB) string {
	tb.Helper()

	name := filepath.Join(tb.TempDir(), fmt.Sprintf("Newtest%d-%d.bdf", f.Channels+1, f.Frequency))
	if err := os.WriteFile(name, f.Bytes(), 0o644); err != nil {
		tb.Fatalf("writing fixture: %v", err)
	}
	return name
}
