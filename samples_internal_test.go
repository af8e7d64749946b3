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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInt24(t *testing.T) {
	tests := []struct {
		in       []byte
		expected int32
	}{
		{[]byte{0x00, 0x00, 0x00}, 0},
		{[]byte{0x01, 0x00, 0x00}, 1},
		{[]byte{0x01, 0x02, 0x03}, 0x030201},
		{[]byte{0xFF, 0xFF, 0x7F}, 8388607},
		{[]byte{0xFF, 0xFF, 0xFF}, -1},
		{[]byte{0x00, 0x00, 0x80}, -8388608},
		{[]byte{0xFE, 0xFF, 0xFF}, -2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, decodeInt24(tt.in), "% x", tt.in)

		b := make([]byte, 3)
		encodeInt24(b, tt.expected)
		assert.Equal(t, tt.in, b)
	}
}

func TestEncodeInt24Truncates(t *testing.T) {
	b := make([]byte, 3)
	encodeInt24(b, 0x01000005)
	assert.Equal(t, []byte{0x05, 0x00, 0x00}, b)
	assert.Equal(t, int32(5), decodeInt24(b))
}

func TestStatusSample(t *testing.T) {
	trig, status := decodeStatus([]byte{0xFF, 0x01, 0x22})
	assert.Equal(t, uint16(0x01FF), trig)
	assert.Equal(t, uint8(0x22), status)

	b := make([]byte, 3)
	encodeStatus(b, 0x01FF, 0x22)
	assert.Equal(t, []byte{0xFF, 0x01, 0x22}, b)
}

func TestPhysicalToDigital(t *testing.T) {
	assert.Equal(t, int32(0), physicalToDigital(12.5, 0))
	assert.Equal(t, int32(3), physicalToDigital(0.75, 0.25))
	assert.Equal(t, int32(-3), physicalToDigital(-0.8, 0.25))
}

func TestSampleCodec(t *testing.T) {
	hdr := &Header{
		DataRecords:    2,
		RecordDuration: 1,
		Channels: []Channel{
			{Label: "A1", PhysicalMin: -4, PhysicalMax: 4, DigitalMin: -8, DigitalMax: 8, SamplesPerRecord: 3},
			{Label: "A2", PhysicalMin: -8, PhysicalMax: 8, DigitalMin: -8, DigitalMax: 8, SamplesPerRecord: 3},
		},
		Status: Channel{Label: "Status", SamplesPerRecord: 3},
	}
	hdr.updateHeaderBytes()

	block := &sampleBlock{
		data: [][]float64{
			{0.5, -0.5, 1, 1.5, -2, 3.5},
			{1, 2, 3, -4, -5, -6},
		},
		raw:    []uint16{0, 1, 0x0100, 0, 0, 7},
		status: []uint8{0, 0, 1, 1, 0, 0xFF},
	}

	buf, err := encodeSamples(hdr, block, 0)
	require.NoError(t, err)
	assert.Len(t, buf, 2*3*3*3)

	// Record 0, channel A2 starts after the three samples of A1.
	assert.Equal(t, []byte{0x01, 0x00, 0x00}, buf[9:12])
	// Record 1, status channel.
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0x00, 0xFF}, buf[45:54])

	decoded, err := decodeSamples(buf, hdr, []int{0, 1, 2}, 1)
	require.NoError(t, err)
	assert.Equal(t, block, decoded)

	// Skipping A1 leaves A2 untouched.
	decoded, err = decodeSamples(buf, hdr, []int{1, 2}, 0)
	require.NoError(t, err)
	assert.Equal(t, block.data[1:], decoded.data)

	_, err = decodeSamples(buf[:len(buf)-1], hdr, []int{0, 1, 2}, 0)
	assert.ErrorIs(t, err, ErrFormat)

	block.raw = block.raw[:5]
	_, err = encodeSamples(hdr, block, 0)
	assert.Error(t, err)
}

func TestSampleLayoutCheckedSize(t *testing.T) {
	size, ok := sampleLayout{channels: 17, records: 60, samplesPerRecord: 256}.checkedSize()
	assert.True(t, ok)
	assert.Equal(t, 17*60*256*3, size)

	_, ok = sampleLayout{channels: 9999, records: 99999999, samplesPerRecord: 99999999}.checkedSize()
	assert.False(t, ok)

	_, ok = sampleLayout{channels: 17, records: -1, samplesPerRecord: 256}.checkedSize()
	assert.False(t, ok)

	size, ok = sampleLayout{channels: 17, records: 0, samplesPerRecord: 256}.checkedSize()
	assert.True(t, ok)
	assert.Zero(t, size)
}
