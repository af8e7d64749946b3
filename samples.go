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
	"fmt"
	"io"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// decodeInt24 converts three little-endian bytes into a signed 24-bit value.
// The most significant byte is placed in the top of a 32-bit word so the
// arithmetic shift replicates its sign bit.
func decodeInt24(b []byte) int32 {
	_ = b[2]
	return int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
}

// encodeInt24 stores the low 24 bits of v as three little-endian bytes. Bits
// above the 24th are discarded.
func encodeInt24(b []byte, v int32) {
	_ = b[2]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

// decodeStatus splits a status channel sample into its 16-bit trigger code
// and the independent status flags in the high byte.
func decodeStatus(b []byte) (trigger uint16, status uint8) {
	_ = b[2]
	return uint16(b[0]) | uint16(b[1])<<8, b[2]
}

func encodeStatus(b []byte, trigger uint16, status uint8) {
	_ = b[2]
	b[0] = byte(trigger)
	b[1] = byte(trigger >> 8)
	b[2] = status
}

// physicalToDigital converts a physical value back to its digital code.
func physicalToDigital(v, scale float64) int32 {
	if scale == 0 {
		return 0 // Avoid division by zero
	}
	return int32(int64(math.Round(v / scale)))
}

// sampleLayout describes how data records are interleaved on disk: every
// record holds samplesPerRecord samples of channel 0, then channel 1, and so
// on up to the status channel.
type sampleLayout struct {
	channels         int // Including the status channel
	records          int
	samplesPerRecord int
}

func (l sampleLayout) size() int {
	return l.records * l.channels * l.samplesPerRecord * bytesPerSample
}

// checkedSize is size for layouts decoded from untrusted headers. It reports
// false when the size is negative or does not fit in an int.
func (l sampleLayout) checkedSize() (int, bool) {
	size := bytesPerSample
	for _, f := range []int{l.channels, l.samplesPerRecord, l.records} {
		if f < 0 || (f > 0 && size > math.MaxInt/f) {
			return 0, false
		}
		size *= f
	}
	return size, true
}

// offset returns the byte offset of the first sample of channel ch in record rec.
func (l sampleLayout) offset(rec, ch int) int {
	return (rec*l.channels + ch) * l.samplesPerRecord * bytesPerSample
}

func (l sampleLayout) samples() int {
	return l.records * l.samplesPerRecord
}

// sampleBlock is the decoded sample block of a recording. All three slices
// are addressed by the same sample index.
type sampleBlock struct {
	data   [][]float64
	raw    []uint16
	status []uint8
}

func workerLimit(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// decodeSamples reconstructs the selected channels from buf. sel holds zero
// based channel indices of hdr in ascending order and ends with the status
// channel; unselected channels are never touched.
func decodeSamples(buf []byte, hdr *Header, sel []int, workers int) (*sampleBlock, error) {
	layout := sampleLayout{
		channels:         hdr.ChannelCount(),
		records:          hdr.DataRecords,
		samplesPerRecord: hdr.SamplesPerRecord(),
	}
	if len(buf) < layout.size() {
		return nil, &FormatError{
			Field: "data records",
			Err:   fmt.Errorf("%d bytes available, header declares %d: %w", len(buf), layout.size(), io.ErrUnexpectedEOF),
		}
	}

	n := layout.samples()
	dataChannels := sel[:len(sel)-1]
	block := &sampleBlock{
		data:   make([][]float64, len(dataChannels)),
		raw:    make([]uint16, n),
		status: make([]uint8, n),
	}
	backing := make([]float64, len(dataChannels)*n)

	var g errgroup.Group
	g.SetLimit(workerLimit(workers))

	for row, ch := range dataChannels {
		block.data[row] = backing[row*n : (row+1)*n : (row+1)*n]
		out := block.data[row]
		scale := hdr.Channels[ch].Scale()
		g.Go(func() error {
			for rec := 0; rec < layout.records; rec++ {
				in := buf[layout.offset(rec, ch):]
				dst := out[rec*layout.samplesPerRecord : (rec+1)*layout.samplesPerRecord]
				for s := range dst {
					dst[s] = float64(decodeInt24(in[s*bytesPerSample:])) * scale
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		statusCh := layout.channels - 1
		for rec := 0; rec < layout.records; rec++ {
			in := buf[layout.offset(rec, statusCh):]
			base := rec * layout.samplesPerRecord
			for s := 0; s < layout.samplesPerRecord; s++ {
				block.raw[base+s], block.status[base+s] = decodeStatus(in[s*bytesPerSample:])
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return block, nil
}

// encodeSamples packs a sample block into the on-disk record layout of hdr.
func encodeSamples(hdr *Header, block *sampleBlock, workers int) ([]byte, error) {
	layout := sampleLayout{
		channels:         hdr.ChannelCount(),
		records:          hdr.DataRecords,
		samplesPerRecord: hdr.SamplesPerRecord(),
	}

	n := layout.samples()
	if len(block.data) != len(hdr.Channels) {
		return nil, fmt.Errorf("expected %d data channels, got %d", len(hdr.Channels), len(block.data))
	}
	for i, row := range block.data {
		if len(row) != n {
			return nil, fmt.Errorf("channel %q has %d samples, expected %d", hdr.Channels[i].Label, len(row), n)
		}
	}
	if len(block.raw) != n || len(block.status) != n {
		return nil, fmt.Errorf("status channel has %d/%d samples, expected %d", len(block.raw), len(block.status), n)
	}

	buf := make([]byte, layout.size())

	var g errgroup.Group
	g.SetLimit(workerLimit(workers))

	for ch, row := range block.data {
		scale := hdr.Channels[ch].Scale()
		g.Go(func() error {
			for rec := 0; rec < layout.records; rec++ {
				out := buf[layout.offset(rec, ch):]
				src := row[rec*layout.samplesPerRecord : (rec+1)*layout.samplesPerRecord]
				for s, v := range src {
					encodeInt24(out[s*bytesPerSample:], physicalToDigital(v, scale))
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		statusCh := layout.channels - 1
		for rec := 0; rec < layout.records; rec++ {
			out := buf[layout.offset(rec, statusCh):]
			base := rec * layout.samplesPerRecord
			for s := 0; s < layout.samplesPerRecord; s++ {
				encodeStatus(out[s*bytesPerSample:], block.raw[base+s], block.status[base+s])
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return buf, nil
}
