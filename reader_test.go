// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package bdf_test

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/OpenPSG/bdf"
	"github.com/OpenPSG/bdf/internal/bdftest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func openFixture(t *testing.T, f bdftest.Fixture, opts ...bdf.Option) *bdf.Recording {
	t.Helper()

	opts = append([]bdf.Option{bdf.WithLogger(quietLogger())}, opts...)
	rec, err := bdf.Open(bytes.NewReader(f.Bytes()), opts...)
	require.NoError(t, err)
	return rec
}

func TestReader(t *testing.T) {
	f := bdftest.Newtest17(256)
	name := f.WriteFile(t)

	rec, err := bdf.ReadFile(name, bdf.WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, name, rec.Name)
	assert.Equal(t, 18*256, rec.Header.HeaderBytes)
	assert.Equal(t, 17, rec.Header.ChannelCount())
	assert.Equal(t, 60, rec.Header.DataRecords)
	assert.Equal(t, 256, rec.Frequency())
	assert.Equal(t, "Status", rec.Header.Status.Label)
	assert.Equal(t, bdf.FormatTag, rec.Header.Tag)
	assert.Equal(t, bdf.FormatID, rec.Header.ID)
	assert.Equal(t, bdf.DataFormat24Bit, rec.Header.DataFormat)

	require.Len(t, rec.Data, 16)
	for _, row := range rec.Data {
		require.Len(t, row, 15360)
	}

	assert.Equal(t, 414, rec.Trigger.Onsets[0])
	assert.Equal(t, uint16(255), rec.Trigger.Values[0])
	assert.Equal(t, 40, rec.Trigger.Count[255])

	// Verify a few samples against the digital codes they were written from.
	for _, s := range []int{0, 1, 255, 256, 7777, 15359} {
		for _, ch := range []int{0, 7, 15} {
			assert.Equal(t, f.Physical(ch, s), rec.Data[ch][s], "channel %d sample %d", ch, s)
		}
		assert.Equal(t, f.Trigger(s), rec.Trigger.Raw[s])
		assert.Equal(t, f.Status(s), rec.Status[s])
	}

	tm := rec.Time()
	require.Len(t, tm, 15360)
	assert.Equal(t, 0.0, tm[0])
	assert.InDelta(t, 15359.0/256, tm[15359], 1e-12)
}

func TestReader2048(t *testing.T) {
	rec := openFixture(t, bdftest.Newtest17(2048))

	assert.Equal(t, 18*256, rec.Header.HeaderBytes)
	assert.Equal(t, 17, rec.Header.ChannelCount())
	assert.Equal(t, 60, rec.Header.DataRecords)
	assert.Equal(t, 2048, rec.Frequency())
	require.Len(t, rec.Data, 16)
	assert.Len(t, rec.Data[0], 122880)
	assert.Equal(t, 3352, rec.Trigger.Onsets[0])
	assert.Equal(t, uint16(255), rec.Trigger.Values[0])
	assert.Equal(t, 39, rec.Trigger.Count[255])
}

func TestReaderHeaderOnly(t *testing.T) {
	name := bdftest.Newtest17(256).WriteFile(t)

	rec, err := bdf.ReadFile(name, bdf.HeaderOnly(), bdf.WithLogger(quietLogger()))
	require.NoError(t, err)

	assert.Equal(t, 18*256, rec.Header.HeaderBytes)
	assert.Equal(t, 17, rec.Header.ChannelCount())
	assert.Equal(t, 60, rec.Header.DataRecords)
	assert.Equal(t, 256, rec.Frequency())
	assert.False(t, rec.Loaded())
	assert.Nil(t, rec.Data)
	assert.Nil(t, rec.Trigger)
	assert.Nil(t, rec.Status)
	assert.Nil(t, rec.Events())

	f, err := os.Open(name)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	// Read the samples on demand.
	require.NoError(t, rec.ReadData(f, bdf.Labels("A3")...))
	assert.True(t, rec.Loaded())
	assert.Equal(t, []string{"A3", "Status"}, rec.Header.Labels())
	assert.Equal(t, 40, rec.Trigger.Count[255])

	assert.Error(t, rec.ReadData(f))
}

func TestReaderChannels(t *testing.T) {
	f := bdftest.Newtest17(256)

	full := openFixture(t, f)
	byIndex := openFixture(t, f, bdf.WithChannels(bdf.Indices(1, 3, 5)...))
	byLabel := openFixture(t, f, bdf.WithChannels(bdf.Label("A3")))

	require.Len(t, byIndex.Data, 3)
	require.Len(t, byLabel.Data, 1)
	assert.Len(t, byIndex.Data[0], 15360)

	assert.Equal(t, full.Data[0], byIndex.Data[0])
	assert.Equal(t, full.Data[2], byIndex.Data[1])
	assert.Equal(t, full.Data[4], byIndex.Data[2])
	assert.Equal(t, full.Data[2], byLabel.Data[0])

	assert.Equal(t, 4, byIndex.Header.ChannelCount())
	assert.Equal(t, 2, byLabel.Header.ChannelCount())
	assert.Equal(t, 5*256, byIndex.Header.HeaderBytes)
	assert.Equal(t, 3*256, byLabel.Header.HeaderBytes)

	assert.Equal(t, []string{"A1", "A3", "A5", "Status"}, byIndex.Header.Labels())
	assert.Equal(t, []string{"A3", "Status"}, byLabel.Header.Labels())

	assert.Equal(t, 60, byIndex.Header.DataRecords)
	assert.Equal(t, 256, byIndex.Frequency())
	assert.Equal(t, 256, byLabel.Frequency())

	// The status channel is decoded whatever the selection.
	assert.Equal(t, full.Trigger.Raw, byLabel.Trigger.Raw)
	assert.Equal(t, full.Status, byLabel.Status)
}

func TestReaderStatusOnly(t *testing.T) {
	log, hook := test.NewNullLogger()
	rec, err := bdf.Open(bytes.NewReader(bdftest.Newtest17(256).Bytes()),
		bdf.WithLogger(log), bdf.WithChannels(bdf.StatusChannel, bdf.Label("Status")))
	require.NoError(t, err)

	assert.Empty(t, rec.Data)
	assert.Nil(t, rec.Matrix())
	assert.Equal(t, []string{"Status"}, rec.Header.Labels())
	assert.Equal(t, 2*256, rec.Header.HeaderBytes)
	assert.Equal(t, 256, rec.Frequency())
	assert.Equal(t, 40, rec.Trigger.Count[255])

	// Naming the status channel explicitly is reported, the sentinel is not.
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "Status", hook.LastEntry().Data["channel"])
}

func TestReaderChannelNotFound(t *testing.T) {
	_, err := bdf.Open(bytes.NewReader(bdftest.Newtest17(256).Bytes()),
		bdf.WithLogger(quietLogger()), bdf.WithChannels(bdf.Label("Z9"), bdf.Index(1), bdf.Index(40)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, bdf.ErrChannelNotFound))

	var notFound *bdf.ChannelNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []bdf.ChannelSpec{bdf.Label("Z9"), bdf.Index(40)}, notFound.Channels)
}

func TestReaderConcurrency(t *testing.T) {
	f := bdftest.Newtest17(256)

	serial := openFixture(t, f, bdf.WithConcurrency(1))
	parallel := openFixture(t, f, bdf.WithConcurrency(8))

	assert.Equal(t, serial.Data, parallel.Data)
	assert.Equal(t, serial.Trigger, parallel.Trigger)
}

func TestReaderMalformed(t *testing.T) {
	valid := bdftest.Newtest17(256).Bytes()

	tests := []struct {
		name string
		data func() []byte
	}{
		{"empty", func() []byte { return nil }},
		{"truncated fixed header", func() []byte { return valid[:200] }},
		{"truncated channel header", func() []byte { return valid[:18*256-1] }},
		{"truncated data records", func() []byte { return valid[:len(valid)-1] }},
		{"non-numeric record count", func() []byte {
			b := bytes.Clone(valid)
			copy(b[236:244], "sixty   ")
			return b
		}},
		{"non-numeric samples per record", func() []byte {
			b := bytes.Clone(valid)
			// First samples-per-record field of the channel header.
			off := 256 + 17*(16+80+8+8+8+8+8+80)
			copy(b[off:off+8], "2x6     ")
			return b
		}},
		{"header size mismatch", func() []byte {
			b := bytes.Clone(valid)
			copy(b[184:192], "4096    ")
			return b
		}},
		{"zero record duration", func() []byte {
			b := bytes.Clone(valid)
			copy(b[244:252], "0       ")
			return b
		}},
		{"negative samples per record", func() []byte {
			b := bytes.Clone(valid)
			off := 256 + 17*(16+80+8+8+8+8+8+80)
			for ch := 0; ch < 17; ch++ {
				copy(b[off+ch*8:off+(ch+1)*8], "-256    ")
			}
			return b
		}},
		{"zero samples per record on status", func() []byte {
			b := bytes.Clone(valid)
			off := 256 + 17*(16+80+8+8+8+8+8+80) + 16*8
			copy(b[off:off+8], "0       ")
			return b
		}},
		{"huge declared record count", func() []byte {
			b := bytes.Clone(valid)
			copy(b[236:244], "99999999")
			off := 256 + 17*(16+80+8+8+8+8+8+80)
			for ch := 0; ch < 17; ch++ {
				copy(b[off+ch*8:off+(ch+1)*8], "99999999")
			}
			return b
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bdf.Open(bytes.NewReader(tt.data()), bdf.WithLogger(quietLogger()))
			require.Error(t, err)
			assert.True(t, errors.Is(err, bdf.ErrFormat), "unexpected error: %v", err)

			var formatErr *bdf.FormatError
			assert.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestReaderHeterogeneousSamplesPerRecord(t *testing.T) {
	b := bdftest.Newtest17(256).Bytes()
	// Second samples-per-record field of the channel header.
	off := 256 + 17*(16+80+8+8+8+8+8+80) + 8
	copy(b[off:off+8], "128     ")

	log, hook := test.NewNullLogger()
	rec, err := bdf.Open(bytes.NewReader(b), bdf.WithLogger(log))
	require.NoError(t, err)

	assert.Len(t, rec.Data[1], 15360)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "A2", hook.LastEntry().Data["channel"])
}
