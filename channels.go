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
	"sort"
	"strconv"
)

// ChannelSpec identifies a channel either by label or by 1-based index.
type ChannelSpec struct {
	label   string
	index   int
	byLabel bool
}

// StatusChannel refers to the status channel whatever its position.
var StatusChannel = Index(-1)

// Label refers to the channel with the given label.
func Label(label string) ChannelSpec {
	return ChannelSpec{label: label, byLabel: true}
}

// Index refers to the channel at the given 1-based position.
func Index(i int) ChannelSpec {
	return ChannelSpec{index: i}
}

// Labels is shorthand for a Label per argument.
func Labels(labels ...string) []ChannelSpec {
	specs := make([]ChannelSpec, len(labels))
	for i, l := range labels {
		specs[i] = Label(l)
	}
	return specs
}

// Indices is shorthand for an Index per argument.
func Indices(indices ...int) []ChannelSpec {
	specs := make([]ChannelSpec, len(indices))
	for i, idx := range indices {
		specs[i] = Index(idx)
	}
	return specs
}

// ParseChannelSpec interprets s as a 1-based index if it is an integer and
// as a label otherwise.
func ParseChannelSpec(s string) ChannelSpec {
	if i, err := strconv.Atoi(s); err == nil {
		return Index(i)
	}
	return Label(s)
}

func (c ChannelSpec) String() string {
	if c.byLabel {
		return c.label
	}
	return strconv.Itoa(c.index)
}

// Selection is the result of resolving channel specifiers against a header.
type Selection struct {
	// Indices are zero based, ascending and free of duplicates. The last
	// element is always the index of the status channel.
	Indices []int
	// Ignored lists specifiers that explicitly named the status channel. It
	// is part of every selection anyway.
	Ignored []ChannelSpec
}

// DataIndices returns the selected data channels, without the status channel.
func (s *Selection) DataIndices() []int {
	return s.Indices[:len(s.Indices)-1]
}

// Resolve converts channel specifiers into zero based channel indices. Every
// specifier that matches no channel is reported in a *ChannelNotFoundError.
func (h *Header) Resolve(specs []ChannelSpec) (*Selection, error) {
	n := h.ChannelCount()
	statusIdx := n - 1

	sel := &Selection{}
	seen := make(map[int]bool, len(specs)+1)
	var missing []ChannelSpec

	for _, spec := range specs {
		if !spec.byLabel && spec.index == -1 {
			continue // Always appended below
		}

		idx, ok := h.lookup(spec)
		switch {
		case !ok:
			missing = append(missing, spec)
		case idx == statusIdx:
			sel.Ignored = append(sel.Ignored, spec)
		case !seen[idx]:
			seen[idx] = true
			sel.Indices = append(sel.Indices, idx)
		}
	}

	if len(missing) > 0 {
		return nil, &ChannelNotFoundError{Channels: missing}
	}

	sort.Ints(sel.Indices)
	sel.Indices = append(sel.Indices, statusIdx)

	return sel, nil
}

// lookup returns the zero based index of the channel spec refers to. The
// status channel is reported with index len(h.Channels).
func (h *Header) lookup(spec ChannelSpec) (int, bool) {
	if spec.byLabel {
		for i, ch := range h.Channels {
			if ch.Label == spec.label {
				return i, true
			}
		}
		if h.Status.Label == spec.label {
			return len(h.Channels), true
		}
		return 0, false
	}

	if spec.index >= 1 && spec.index <= h.ChannelCount() {
		return spec.index - 1, true
	}
	return 0, false
}

// allChannels selects every channel of h.
func (h *Header) allChannels() *Selection {
	indices := make([]int, h.ChannelCount())
	for i := range indices {
		indices[i] = i
	}
	return &Selection{Indices: indices}
}
