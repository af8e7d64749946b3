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
	"testing"

	"github.com/OpenPSG/bdf"
	"github.com/OpenPSG/bdf/internal/bdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeTriggers(t *testing.T) {
	raw := []uint16{0, 0, 5, 5, 0, 3, 7, 7, 2, 2, 9}
	trig := bdf.AnalyzeTriggers(raw, 2)

	assert.Equal(t, []int{2, 5, 6, 10}, trig.Onsets)
	assert.Equal(t, []uint16{5, 3, 7, 9}, trig.Values)
	assert.Equal(t, map[uint16]int{3: 1, 5: 1, 7: 1, 9: 1}, trig.Count)
	assert.Equal(t, []float64{0, 1.5, 0.5, 2}, trig.Intervals)
	assert.Equal(t, []uint16{3, 5, 7, 9}, trig.Codes())

	assert.Equal(t, []bdf.Event{
		{Sample: 2, Value: 5, Interval: 0},
		{Sample: 5, Value: 3, Interval: 1.5},
		{Sample: 6, Value: 7, Interval: 0.5},
		{Sample: 10, Value: 9, Interval: 2},
	}, trig.Events())

	tt := trig.Time()
	assert.Equal(t, []float64{5, 3, 7, 9}, tt[0])
	assert.Equal(t, []float64{0, 1.5, 0.5, 2}, tt[1])
}

func TestAnalyzeTriggersEdges(t *testing.T) {
	// The first sample has no predecessor and is never an onset.
	trig := bdf.AnalyzeTriggers([]uint16{4, 4, 4}, 256)
	assert.Empty(t, trig.Onsets)
	assert.Empty(t, trig.Count)

	trig = bdf.AnalyzeTriggers(nil, 256)
	assert.Empty(t, trig.Onsets)

	// Codes use both trigger bytes.
	trig = bdf.AnalyzeTriggers([]uint16{0x00FF, 0x0100, 0xFFFF, 0x0000}, 256)
	assert.Equal(t, []int{1, 2}, trig.Onsets)
	assert.Equal(t, []uint16{0x0100, 0xFFFF}, trig.Values)
}

func TestTriggerEdgeLaw(t *testing.T) {
	for _, freq := range []int{256, 2048} {
		rec := openFixture(t, bdftest.Newtest17(freq))
		trig := rec.Trigger

		require.Len(t, trig.Values, len(trig.Onsets))
		for i, idx := range trig.Onsets {
			assert.Equal(t, trig.Raw[idx], trig.Values[i])
			if i > 0 {
				assert.Greater(t, idx, trig.Onsets[i-1])
			}
		}
		assert.Equal(t, map[uint16]int{1: 1, 2: 1, 255: trig.Count[255]}, trig.Count)
	}
}
