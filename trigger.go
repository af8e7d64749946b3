// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package bdf

import "sort"

// Trigger holds the trigger codes of the status channel and the events
// derived from them. Everything except Raw is recomputed from Raw.
type Trigger struct {
	Raw       []uint16       // Trigger code of every sample
	Onsets    []int          // Sample index of every rising edge, ascending
	Values    []uint16       // Trigger code at each onset
	Count     map[uint16]int // Number of onsets per trigger code
	Intervals []float64      // Seconds since the previous onset, 0 for the first
}

// Event is a single trigger onset.
type Event struct {
	Sample   int
	Value    uint16
	Interval float64
}

// AnalyzeTriggers detects trigger onsets in raw. A sample is an onset when its
// code exceeds the code of the previous sample; falling edges are ignored.
func AnalyzeTriggers(raw []uint16, frequency int) *Trigger {
	t := &Trigger{
		Raw:   raw,
		Count: make(map[uint16]int),
	}

	for i := 1; i < len(raw); i++ {
		if int32(raw[i])-int32(raw[i-1]) >= 1 {
			t.Onsets = append(t.Onsets, i)
		}
	}

	t.Values = make([]uint16, len(t.Onsets))
	t.Intervals = make([]float64, len(t.Onsets))
	for i, idx := range t.Onsets {
		t.Values[i] = raw[idx]
		t.Count[raw[idx]]++
		if i > 0 && frequency > 0 {
			t.Intervals[i] = float64(idx-t.Onsets[i-1]) / float64(frequency)
		}
	}

	return t
}

// Events returns the onsets as a table of events.
func (t *Trigger) Events() []Event {
	events := make([]Event, len(t.Onsets))
	for i := range t.Onsets {
		events[i] = Event{Sample: t.Onsets[i], Value: t.Values[i], Interval: t.Intervals[i]}
	}
	return events
}

// Codes returns the distinct trigger codes in ascending order.
func (t *Trigger) Codes() []uint16 {
	codes := make([]uint16, 0, len(t.Count))
	for c := range t.Count {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Time returns the trigger codes and inter-onset intervals as two rows.
func (t *Trigger) Time() [2][]float64 {
	var tt [2][]float64
	tt[0] = make([]float64, len(t.Values))
	for i, v := range t.Values {
		tt[0][i] = float64(v)
	}
	tt[1] = append([]float64(nil), t.Intervals...)
	return tt
}
